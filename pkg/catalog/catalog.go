// Package catalog maps {integration, action} pairs to the broker endpoint
// conventions each pair requires. Broker endpoints are not uniform: some
// actions go through a generic execution endpoint with a uniform envelope,
// others must hit the underlying third-party REST shape through a path-based
// proxy. Guessing wrong produces silent 404s, so every invokable action must
// be registered here and unknown pairs fail loudly at lookup time.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/leviousa/leviousa-broker/pkg/broker"
)

// PayloadShape selects which broker surface an action uses.
type PayloadShape string

const (
	// ShapeEnvelope posts {action, parameters} to the generic action
	// execution endpoint.
	ShapeEnvelope PayloadShape = "envelope"

	// ShapeProxy sends the parameters as the upstream API's own request body
	// through the broker's path-based proxy.
	ShapeProxy PayloadShape = "proxy"
)

var (
	ErrUnknownAction   = errors.New("action not registered in catalog")
	ErrDuplicateAction = errors.New("action already registered in catalog")
)

// Descriptor describes how one action reaches the broker.
type Descriptor struct {
	Integration string         `yaml:"integration"`
	Action      string         `yaml:"action"`
	Method      string         `yaml:"method"`
	Shape       PayloadShape   `yaml:"shape"`
	ProxyPath   string         `yaml:"proxy_path,omitempty"`
	Idempotent  bool           `yaml:"idempotent"`
	Parameters  map[string]any `yaml:"parameters,omitempty"`

	schema *gojsonschema.Schema
}

// Catalog is the process-wide registry of invokable actions. It is loaded
// and validated once at startup and read-only afterwards, so concurrent
// lookups need no locking.
type Catalog struct {
	descriptors map[string]*Descriptor
	logger      *slog.Logger
}

// catalogFile is the on-disk YAML shape for operator-supplied actions.
type catalogFile struct {
	Actions []*Descriptor `yaml:"actions"`
}

func key(integration, action string) string {
	return integration + "/" + action
}

// New builds a catalog pre-populated with the built-in Leviousa actions.
func New(logger *slog.Logger) (*Catalog, error) {
	c := &Catalog{
		descriptors: make(map[string]*Descriptor),
		logger:      logger.With("module", "catalog"),
	}

	for _, d := range builtinDescriptors() {
		if err := c.Register(d); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// LoadFile merges operator-defined actions from a YAML catalog file.
// Entries that collide with built-ins are rejected rather than silently
// shadowing them.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: failed to read catalog file %s: %w", broker.ErrConfiguration, path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: failed to parse catalog file %s: %w", broker.ErrConfiguration, path, err)
	}

	for _, d := range file.Actions {
		if err := c.Register(d); err != nil {
			return err
		}
	}

	c.logger.Info("Loaded action catalog file", "path", path, "actions", len(file.Actions))

	return nil
}

// Register validates and adds one descriptor. Validation happens here, at
// startup, so a broken descriptor is a ConfigurationError instead of a 404
// at call time.
func (c *Catalog) Register(d *Descriptor) error {
	if d.Integration == "" || d.Action == "" {
		return fmt.Errorf("%w: catalog entry needs integration and action", broker.ErrConfiguration)
	}

	switch d.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	case "":
		d.Method = http.MethodPost
	default:
		return fmt.Errorf("%w: catalog entry %s has invalid method %q", broker.ErrConfiguration, key(d.Integration, d.Action), d.Method)
	}

	switch d.Shape {
	case ShapeEnvelope:
	case ShapeProxy:
		if d.ProxyPath == "" {
			return fmt.Errorf("%w: proxy-shaped catalog entry %s needs proxy_path", broker.ErrConfiguration, key(d.Integration, d.Action))
		}

		d.ProxyPath = strings.TrimPrefix(d.ProxyPath, "/")
	default:
		return fmt.Errorf("%w: catalog entry %s has invalid shape %q", broker.ErrConfiguration, key(d.Integration, d.Action), d.Shape)
	}

	if d.Parameters != nil {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(d.Parameters))
		if err != nil {
			return fmt.Errorf("%w: catalog entry %s has invalid parameter schema: %w", broker.ErrConfiguration, key(d.Integration, d.Action), err)
		}

		d.schema = schema
	}

	k := key(d.Integration, d.Action)
	if _, exists := c.descriptors[k]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAction, k)
	}

	c.descriptors[k] = d

	return nil
}

// Resolve returns the descriptor for an {integration, action} pair.
func (c *Catalog) Resolve(integration, action string) (*Descriptor, error) {
	d, ok := c.descriptors[key(integration, action)]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", broker.ErrConfiguration, ErrUnknownAction, key(integration, action))
	}

	return d, nil
}

// Integrations lists every integration with at least one registered action.
func (c *Catalog) Integrations() []string {
	seen := make(map[string]struct{})

	for _, d := range c.descriptors {
		seen[d.Integration] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}

	return names
}

// ValidateParameters checks caller-supplied parameters against the
// descriptor's schema, when one is declared.
func (d *Descriptor) ValidateParameters(params map[string]any) error {
	if d.schema == nil {
		return nil
	}

	if params == nil {
		params = map[string]any{}
	}

	result, err := d.schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return fmt.Errorf("%w: parameter validation failed: %w", broker.ErrInvalidRequest, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}

		return fmt.Errorf("%w: invalid parameters for %s: %s", broker.ErrInvalidRequest, key(d.Integration, d.Action), strings.Join(details, "; "))
	}

	return nil
}
