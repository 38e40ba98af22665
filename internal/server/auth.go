package server

import (
	"errors"
	"net/http"
	"strings"
)

var errNoSession = errors.New("no valid guest session")

// guestFromRequest resolves the bearer token to the guest record in the
// current project store.
func guestFromRequest(r *http.Request) (guestRecord, error) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return guestRecord{}, errNoSession
	}
	g, err := projectStore(r).GuestFromToken(r.Context(), token)
	if err != nil {
		return guestRecord{}, errNoSession
	}
	return g, nil
}

// guestFromToken is the query-parameter variant for streaming endpoints
// that cannot set headers (SSE from EventSource, websockets).
func guestFromToken(r *http.Request, token string) (guestRecord, error) {
	if token == "" {
		return guestRecord{}, errNoSession
	}
	g, err := projectStore(r).GuestFromToken(r.Context(), token)
	if err != nil {
		return guestRecord{}, errNoSession
	}
	return g, nil
}
