package testutil

import (
	"net/http"

	id "civitas/pkg/domain"
	"civitas/pkg/platform/middleware/auth"
)

// AsActor sets the gateway actor headers, for handlers mounted behind
// auth.Actor. A nil actor leaves the request anonymous.
func AsActor(req *http.Request, actorID id.UserID, role string) *http.Request {
	if actorID.IsNil() {
		return req
	}
	req.Header.Set(auth.HeaderActorID, actorID.String())
	req.Header.Set(auth.HeaderActorRole, role)
	return req
}
