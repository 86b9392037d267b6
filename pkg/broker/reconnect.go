package broker

import "net/url"

// DefaultConnectPortalURL is the broker's hosted connect portal where users
// complete OAuth flows for individual integrations.
const DefaultConnectPortalURL = "https://connect.useparagon.com/connect"

// ReconnectURL builds the portal URL a user visits to (re)authorize one
// integration. Pure construction; the authorization itself happens
// out-of-band in the user's browser.
func ReconnectURL(portalBaseURL, projectID, integration, userID string) string {
	if portalBaseURL == "" {
		portalBaseURL = DefaultConnectPortalURL
	}

	query := url.Values{}
	query.Set("projectId", projectID)
	query.Set("integration", integration)
	query.Set("userId", userID)

	return portalBaseURL + "?" + query.Encode()
}
