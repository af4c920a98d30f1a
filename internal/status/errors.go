// internal/status/errors.go
package status

import "errors"

type coder interface {
	Code() uint16
}

// ErrorCode maps a poll error onto the last-error slot.
// Driver errors carry their own code; anything else is generic.
func ErrorCode(err error) uint16 {
	if err == nil {
		return ErrorNone
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ErrorGeneric
}
