package httpx

import "fmt"

// NetworkError is a transport-level failure: DNS, TLS, connection reset,
// or a cancelled context. The original error is available via Unwrap, so
// errors.Is(err, context.Canceled) still works through it.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError is a non-success HTTP response, carrying the status code
// and the best-effort body text for diagnostics.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.Status)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// SchemaError marks a required field missing or wrong-shaped in an
// otherwise successful response.
type SchemaError struct {
	Field string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("response missing required field %q", e.Field)
}
