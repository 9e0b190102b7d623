package bemlo

import (
	"fmt"
	"strings"
)

// TransportError is a non-2xx, non-auth HTTP failure. It is never retried;
// the current page or call fails immediately.
type TransportError struct {
	Status int
	Title  string // HTML page title, when the API fronted an error page
	Body   string
}

func (e *TransportError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("bemlo: request failed with status %d (%s)", e.Status, e.Title)
	}
	return fmt.Sprintf("bemlo: request failed with status %d", e.Status)
}

// RemoteQueryError is a GraphQL-level error payload on a 200 response,
// distinct from transport failure.
type RemoteQueryError struct {
	Messages []string
}

func (e *RemoteQueryError) Error() string {
	return "bemlo: graphql errors: " + strings.Join(e.Messages, "; ")
}
