package binverse

import (
	"errors"
	"fmt"
)

// Kind classifies a serialization failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindIO
	KindUnexpectedEOF
	KindInvalidVarint
	KindInvalidUTF8
	KindInvalidData
	KindSizeExceeded
	KindRevisionMismatch
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindUnexpectedEOF:
		return "unexpected_eof"
	case KindInvalidVarint:
		return "invalid_varint"
	case KindInvalidUTF8:
		return "invalid_utf8"
	case KindInvalidData:
		return "invalid_data"
	case KindSizeExceeded:
		return "size_exceeded"
	case KindRevisionMismatch:
		return "revision_mismatch"
	case KindCustom:
		return "custom"
	}
	return "unknown"
}

// Error is the error type returned by every Serializer and Deserializer
// operation. Op names the failing operation and Err holds the cause, if any.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := "binverse: " + e.Kind.String()
	if e.Op != "" {
		msg = "binverse: " + e.Op + ": " + e.Kind.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a bare sentinel of the same kind, so
// errors.Is(err, ErrUnexpectedEOF) works regardless of Op and cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrIO               = &Error{Kind: KindIO}
	ErrUnexpectedEOF    = &Error{Kind: KindUnexpectedEOF}
	ErrInvalidVarint    = &Error{Kind: KindInvalidVarint}
	ErrInvalidUTF8      = &Error{Kind: KindInvalidUTF8}
	ErrInvalidData      = &Error{Kind: KindInvalidData}
	ErrSizeExceeded     = &Error{Kind: KindSizeExceeded}
	ErrRevisionMismatch = &Error{Kind: KindRevisionMismatch}
	ErrCustom           = &Error{Kind: KindCustom}
)

// ErrFinished is returned by a Serializer after Finish has been called. Its
// sink belongs to the caller again, so it is reported as KindIO.
var ErrFinished = &Error{Kind: KindIO, Op: "write", Err: errors.New("serializer finished")}

// Errorf builds a KindCustom error, for aggregate implementations that need
// to reject a value they decoded.
func Errorf(format string, args ...any) error {
	return &Error{Kind: KindCustom, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func revisionMismatch(op string, got, max uint32) *Error {
	return newError(KindRevisionMismatch, op,
		fmt.Errorf("stream revision %d is newer than supported revision %d", got, max))
}
