package events

import (
	"net/http"
	"time"
)

// HTTPStart is published when the GraphQL handler accepts a request.
// RequestID is also echoed to the client in the graphql-request-id header.
type HTTPStart struct {
	RequestID string
	Request   *http.Request
}

// HTTPFinish is published once the response status is known.
type HTTPFinish struct {
	RequestID string
	Request   *http.Request
	Status    int
	Duration  time.Duration
}
