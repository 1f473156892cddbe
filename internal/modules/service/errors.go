package service

import (
	"errors"

	"github.com/sitescan/sitescan/internal/modules/repo"
)

var (
	ErrInvalid  = errors.New("invalid input")
	ErrNotFound = repo.ErrNotFound
	ErrBusy     = errors.New("operation already in progress")
	ErrUpstream = errors.New("upstream service failed")
)

// NoticeError carries the message shown to the user next to the error
// classification used for the status code.
type NoticeError struct {
	Kind   error
	Notice string
	Err    error
}

func (e *NoticeError) Error() string {
	if e.Err != nil {
		return e.Notice + ": " + e.Err.Error()
	}
	return e.Notice
}

func (e *NoticeError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func notice(kind error, msg string, err error) error {
	return &NoticeError{Kind: kind, Notice: msg, Err: err}
}

func invalid(msg string) error { return notice(ErrInvalid, msg, nil) }

// NoticeOf returns the user facing message carried by err, if any.
func NoticeOf(err error) string {
	var ne *NoticeError
	if errors.As(err, &ne) {
		return ne.Notice
	}
	return ""
}
