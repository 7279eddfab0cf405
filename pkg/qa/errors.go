package qa

import (
	"fmt"

	"github.com/pkg/errors"
)

// TransportError means the endpoint could not be reached or the exchange
// broke off before a complete response was read.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("qa transport failure calling %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means the service answered with a non-success status or a
// body that does not have the expected shape.
type ProtocolError struct {
	Endpoint   string
	StatusCode int
	Reason     string
	Err        error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("qa protocol failure calling %s", e.Endpoint)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
