package stats

import (
	"errors"
	"fmt"
)

var (
	// ErrDateParse is returned when a Date header matches no known layout.
	ErrDateParse = errors.New("unparseable date")

	// ErrMissingHeader is returned when a From or To header is absent.
	ErrMissingHeader = errors.New("missing header")

	// ErrNoAddresses is returned when there is nothing to aggregate.
	ErrNoAddresses = errors.New("no addresses to aggregate")
)

// HeaderError describes a header of one message that could not be used.
type HeaderError struct {
	MessageID string
	Header    string
	Value     string
	Err       error
}

func (e *HeaderError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("message %s: header %s %q: %v", e.MessageID, e.Header, e.Value, e.Err)
	}
	return fmt.Sprintf("message %s: header %s: %v", e.MessageID, e.Header, e.Err)
}

func (e *HeaderError) Unwrap() error {
	return e.Err
}

// Reason returns a short label for metrics: "unparseable" or "missing".
func (e *HeaderError) Reason() string {
	if errors.Is(e.Err, ErrMissingHeader) {
		return "missing"
	}
	return "unparseable"
}

// FetchError is returned when listing or fetching messages for an address fails.
// The address has no entry in the result.
type FetchError struct {
	Address   string
	MessageID string
	Err       error
}

func (e *FetchError) Error() string {
	if e.MessageID != "" {
		return fmt.Sprintf("fetch message %s for %s: %v", e.MessageID, e.Address, e.Err)
	}
	return fmt.Sprintf("list messages for %s: %v", e.Address, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AddressError is returned in strict mode when a header problem fails an address.
type AddressError struct {
	Address string
	Err     error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("address %s: %v", e.Address, e.Err)
}

func (e *AddressError) Unwrap() error {
	return e.Err
}

// Failure is one failed address of an Aggregate call.
type Failure struct {
	Address string
	Err     error
}

// Failures splits an error returned by Aggregate into per-address failures,
// in processing order. Errors not tied to an address, such as context
// cancellation, have an empty Address.
func Failures(err error) []Failure {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []Failure
		for _, e := range joined.Unwrap() {
			out = append(out, Failures(e)...)
		}
		return out
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		return []Failure{{Address: fe.Address, Err: err}}
	}
	var ae *AddressError
	if errors.As(err, &ae) {
		return []Failure{{Address: ae.Address, Err: err}}
	}
	return []Failure{{Err: err}}
}

// HeaderErrors flattens err, which may be a joined error, into the
// *HeaderError values it contains.
func HeaderErrors(err error) []*HeaderError {
	if err == nil {
		return nil
	}
	var he *HeaderError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*HeaderError
		for _, e := range joined.Unwrap() {
			out = append(out, HeaderErrors(e)...)
		}
		return out
	}
	if errors.As(err, &he) {
		return []*HeaderError{he}
	}
	return nil
}

func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}
