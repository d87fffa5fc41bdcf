package fsapi

import (
	"strconv"
	"strings"

	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

// ParseValue turns user text into a value of the capability's kind.
func ParseValue(op Operation, text string) (wire.Value, error) {
	capability, err := lookupFor(op)
	if err != nil {
		return wire.Value{}, err
	}
	if capability.List {
		return wire.Value{}, &InvalidArgumentError{Operation: op, Reason: "list capabilities have no scalar value"}
	}

	switch capability.Kind {
	case wire.KindBool:
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "1", "true", "on", "yes":
			return wire.BoolValue(true), nil
		case "0", "false", "off", "no":
			return wire.BoolValue(false), nil
		}
		return wire.Value{}, &InvalidArgumentError{Operation: op, Reason: "not a boolean: " + strconv.Quote(text)}
	case wire.KindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return wire.Value{}, &InvalidArgumentError{Operation: op, Reason: "not an integer: " + strconv.Quote(text)}
		}
		return wire.IntValue(n), nil
	case wire.KindString:
		return wire.TextValue(text), nil
	case wire.KindBytes:
		return wire.BytesValue([]byte(text)), nil
	}
	return wire.Value{}, &InvalidArgumentError{Operation: op, Reason: "capability has no value kind"}
}

// FromJSON converts a decoded JSON value (bool, float64, string) to the
// capability's kind.
func FromJSON(op Operation, v any) (wire.Value, error) {
	switch t := v.(type) {
	case bool:
		capability, err := lookupFor(op)
		if err != nil {
			return wire.Value{}, err
		}
		if capability.Kind == wire.KindBool {
			return wire.BoolValue(t), nil
		}
		return wire.Value{}, &InvalidArgumentError{Operation: op, Reason: "expected " + capability.Kind.String() + " value, got bool"}
	case float64:
		if t != float64(int64(t)) {
			return wire.Value{}, &InvalidArgumentError{Operation: op, Reason: "not an integer: " + strconv.FormatFloat(t, 'g', -1, 64)}
		}
		return ParseValue(op, strconv.FormatInt(int64(t), 10))
	case string:
		return ParseValue(op, t)
	case nil:
		return wire.Value{}, &InvalidArgumentError{Operation: op, Reason: "value is required"}
	}
	return wire.Value{}, &InvalidArgumentError{Operation: op, Reason: "unsupported value type"}
}
