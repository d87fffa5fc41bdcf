package fsapi

import (
	"errors"
	"fmt"

	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

// ProtocolError is returned for responses the client cannot interpret.
type ProtocolError = wire.ProtocolError

// errInvalidSession marks a response rejecting the sid (HTTP 404 on most
// firmware). It never leaves the package; call() turns it into a retry or an
// AuthenticationError.
var errInvalidSession = errors.New("fsapi: session rejected by device")

// AuthenticationError indicates a wrong PIN or a session the device refused
// even after re-authenticating.
type AuthenticationError struct {
	Op     wire.Op
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	msg := fmt.Sprintf("fsapi authentication failed (%s): %s", e.Op, e.Reason)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// InvalidArgumentError is returned before any network call when the caller
// passes an operation or value the capability table does not allow.
type InvalidArgumentError struct {
	Operation Operation
	Reason    string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("fsapi invalid argument for %s: %s", e.Operation, e.Reason)
}

// UnexpectedResponseError indicates the device answered with a value that does
// not fit the capability's declared kind.
type UnexpectedResponseError struct {
	Operation Operation
	Node      string
	Want      wire.Kind
	Got       wire.Kind
	Reason    string
}

func (e *UnexpectedResponseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("fsapi unexpected response for %s (%s): %s", e.Operation, e.Node, e.Reason)
	}
	return fmt.Sprintf("fsapi unexpected response for %s (%s): want %s, got %s", e.Operation, e.Node, e.Want, e.Got)
}

// StatusError carries a non-OK device status for a node.
type StatusError struct {
	Op        wire.Op
	Node      string
	Status    wire.Status
	RawStatus string
}

func (e *StatusError) Error() string {
	raw := e.RawStatus
	if raw == "" {
		raw = string(e.Status)
	}
	switch e.Status {
	case wire.StatusNodeDoesNotExist:
		return fmt.Sprintf("fsapi %s %s: node not implemented by device", e.Op, e.Node)
	case wire.StatusNodeBlocked:
		return fmt.Sprintf("fsapi %s %s: device is not in the correct mode", e.Op, e.Node)
	case wire.StatusPacketBad:
		return fmt.Sprintf("fsapi %s %s: command can't be SET", e.Op, e.Node)
	}
	return fmt.Sprintf("fsapi %s %s failed: %s", e.Op, e.Node, raw)
}

// IsStatus reports whether err is a StatusError with the given status.
func IsStatus(err error, status wire.Status) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status == status
	}
	return false
}
