package remote

import "fmt"

// FetchError reports a failed read of the backend configuration: transport
// failure, non-2xx status, or a malformed body. Callers treat it as non-fatal.
type FetchError struct {
	URL    string
	Status int // 0 when no response was received
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch config %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PushError reports a failed write of the configuration. Callers log it and
// move on; the local value is not rolled back.
type PushError struct {
	URL       string
	RequestID string
	Status    int // 0 when no response was received
	Err       error
}

func (e *PushError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("push config %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("push config %s (request %s): %v", e.URL, e.RequestID, e.Err)
}

func (e *PushError) Unwrap() error { return e.Err }
