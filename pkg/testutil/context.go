package testutil

import (
	"net/http"

	"idgov/pkg/requestcontext"
)

// WithClientMetadata stands in for the metadata middleware in handler suites.
func WithClientMetadata(req *http.Request, clientIP, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), clientIP, userAgent))
}
