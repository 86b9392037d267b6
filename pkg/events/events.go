// Package events defines the invocation lifecycle events published for the
// desktop shell and dashboard to observe.
package events

import (
	"time"

	"github.com/leviousa/leviousa-broker/pkg/broker"
)

type EventType string

// Topic carries all invocation lifecycle events.
const Topic = "leviousa.invocations"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	InvocationStartedEvent      EventType = "invocation.started"
	InvocationCompletedEvent    EventType = "invocation.completed"
	InvocationAuthRequiredEvent EventType = "invocation.auth_required"
	InvocationFailedEvent       EventType = "invocation.failed"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	UserID      string    `json:"user_id"`
	Integration string    `json:"integration"`
	Action      string    `json:"action"`
}

type InvocationStarted struct {
	BaseEvent
}

func (e InvocationStarted) GetType() EventType {
	return InvocationStartedEvent
}

type InvocationCompleted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e InvocationCompleted) GetType() EventType {
	return InvocationCompletedEvent
}

type InvocationAuthRequired struct {
	BaseEvent

	ReconnectURL string `json:"reconnect_url"`
}

func (e InvocationAuthRequired) GetType() EventType {
	return InvocationAuthRequiredEvent
}

type InvocationFailed struct {
	BaseEvent

	ErrorKind     broker.Kind `json:"error_kind"`
	Message       string      `json:"message"`
	UnsafeToRetry bool        `json:"unsafe_to_retry"`
}

func (e InvocationFailed) GetType() EventType {
	return InvocationFailedEvent
}
