// Package errors defines the error taxonomy shared by every blockfs
// component: the FAT allocator, the directory index, the descriptor table,
// and the byte I/O engine all return errors built from the Kind values
// declared here rather than raw fmt.Errorf values, so callers can branch on
// the failure cause with errors.Is/errors.As.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind identifies which entry of the failure taxonomy an Error represents.
type Kind string

const (
	// DeviceError reports any block read/write/open/close failure from the
	// underlying block device.
	DeviceError Kind = "device I/O failed"
	// NotMounted reports a file operation issued before mount or after
	// unmount.
	NotMounted Kind = "volume not mounted"
	// NotFound reports a file name absent from the directory.
	NotFound Kind = "no such file"
	// Exists reports create() of a name that is already in use.
	Exists Kind = "file already exists"
	// NameTooLong reports a name exceeding MAX_NAME bytes.
	NameTooLong Kind = "name too long"
	// DirectoryFull reports no unused directory entry remaining.
	DirectoryFull Kind = "directory is full"
	// DescriptorTableFull reports no unused descriptor slot remaining.
	DescriptorTableFull Kind = "no free descriptor slots"
	// BadDescriptor reports an fd that is out of range or unused.
	BadDescriptor Kind = "bad descriptor"
	// Busy reports delete() of a file with a nonzero reference count.
	Busy Kind = "file is busy"
	// OutOfSpace reports an allocator with no free blocks left. It is
	// returned as an error only when zero bytes could be written; a partial
	// allocation failure during write() is reported as a short write
	// instead, per the propagation policy.
	OutOfSpace Kind = "out of space"
	// InvalidArgument reports a negative offset/length, a seek past EOF, or
	// a truncate length greater than the current size.
	InvalidArgument Kind = "invalid argument"
)

// Error is a taxonomy-tagged error. It wraps an optional underlying cause so
// that errors.Is/errors.As compose the way callers expect from the standard
// library.
type Error struct {
	Kind    Kind
	message string
	cause   error
}

// New creates an Error of the given Kind with its default message.
func New(kind Kind) *Error {
	return &Error{Kind: kind, message: string(kind)}
}

// Newf creates an Error of the given Kind with a formatted message appended
// to the default one.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		message: fmt.Sprintf("%s: %s", kind, fmt.Sprintf(format, args...)),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.message
}

// Unwrap lets errors.Is/errors.As see through to the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error or a bare Kind of the same Kind, so
// that callers can write errors.Is(err, errors.New(errors.NotFound)) or
// compare directly against a Kind via errors.Is(err, errors.NotFound).
func (e *Error) Is(target error) bool {
	var other *Error
	if stderrors.As(target, &other) {
		return other.Kind == e.Kind
	}
	var kind Kind
	if asKind(target, &kind) {
		return kind == e.Kind
	}
	return false
}

func asKind(target error, out *Kind) bool {
	k, ok := target.(Kind)
	if !ok {
		return false
	}
	*out = k
	return true
}

// Is lets a bare Kind value on the error side match an *Error of the same
// Kind, e.g. errors.Is(errors.NotFound, err). (A Kind used as the target of
// errors.Is is handled by (*Error).Is.)
func (k Kind) Is(target error) bool {
	var other *Error
	if stderrors.As(target, &other) {
		return other.Kind == k
	}
	return false
}

func (k Kind) Error() string {
	return string(k)
}

// WithMessage returns a new Error of this Kind carrying a custom message
// instead of the default one.
func (k Kind) WithMessage(message string) *Error {
	return &Error{Kind: k, message: message}
}

// WrapError returns a new Error of this Kind that wraps err, combining both
// messages and preserving err for errors.Is/errors.As/errors.Unwrap.
func (k Kind) WrapError(err error) *Error {
	return &Error{
		Kind:    k,
		message: fmt.Sprintf("%s: %s", k, err.Error()),
		cause:   err,
	}
}
