package errorsx

import (
	"errors"
	"fmt"
)

// ReasonedError pairs a cause with the ReasonCode outcomes report.
type ReasonedError struct {
	Err    error
	Reason ReasonCode
}

func (e ReasonedError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return e.Err.Error()
}

func (e ReasonedError) Unwrap() error { return e.Err }

func New(reason ReasonCode, msg string) error {
	return ReasonedError{Err: errors.New(msg), Reason: reason}
}

func Newf(reason ReasonCode, format string, args ...any) error {
	return ReasonedError{Err: fmt.Errorf(format, args...), Reason: reason}
}

// Wrap attaches reason to err. A reason already present in the chain wins,
// so a provider's own classification survives the pipeline wrapping it.
func Wrap(err error, reason ReasonCode) error {
	if err == nil {
		return nil
	}
	if _, ok := find(err); ok {
		return err
	}
	return ReasonedError{Err: err, Reason: reason}
}

// Reason returns the first reason in err's chain, or ReasonUnknown.
func Reason(err error) ReasonCode {
	if re, ok := find(err); ok {
		return re.Reason
	}
	return ReasonUnknown
}

func HasReason(err error, reason ReasonCode) bool {
	return Reason(err) == reason
}

func find(err error) (ReasonedError, bool) {
	var re ReasonedError
	if err == nil || !errors.As(err, &re) {
		return ReasonedError{}, false
	}
	return re, true
}
