package testutil

import (
	"net/http"

	id "civicdesk/pkg/domain"
	"civicdesk/pkg/requestcontext"
)

// Roles used across handler tests.
const (
	RoleCitizen = "citizen"
	RoleOfficer = "officer"
	RoleAdmin   = "admin"
)

// AsUser simulates what the auth middleware does for an authenticated request.
func AsUser(req *http.Request, userID id.UserID, role string) *http.Request {
	return req.WithContext(requestcontext.WithUser(req.Context(), userID, role))
}

// AsNewUser authenticates req as a freshly minted user and returns its ID.
func AsNewUser(req *http.Request, role string) (*http.Request, id.UserID) {
	userID := id.NewUserID()
	return AsUser(req, userID, role), userID
}
