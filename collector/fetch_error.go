package collector

import "fmt"

type FetchErrorKind string

const (
	// Network failure, non-200 status or unreadable body.
	FetchErrorTransport FetchErrorKind = "transport"
	// The body isn't a valid posts array, Cause is a *model.DecodeError.
	FetchErrorDecode FetchErrorKind = "decode"
)

type FetchError struct {
	Kind  FetchErrorKind
	Uri   string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed (%s): %v", e.Uri, e.Kind, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}
