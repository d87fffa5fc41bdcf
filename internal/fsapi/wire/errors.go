package wire

import "fmt"

// ProtocolError indicates a response the client cannot interpret: malformed
// XML, an unknown type tag, or an inconsistent list.
type ProtocolError struct {
	Node   string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := "fsapi protocol error"
	if e.Node != "" {
		msg += " on " + e.Node
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
