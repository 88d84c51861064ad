package errors

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// Bridge taxonomy. Every rejected operation reports exactly one of these.
var (
	// ErrAccessDenied is returned when the caller lacks the owner or
	// withdrawer role required by the operation.
	ErrAccessDenied = Register(2, "access denied")

	// ErrPaused is returned by swap entry points while the pause latch is set.
	ErrPaused = Register(3, "paused")

	ErrNotWhitelistedToken = Register(4, "token not whitelisted")

	// ErrInvalidParameter covers zero address/amount, bad chain id and
	// attached value mismatches.
	ErrInvalidParameter = Register(5, "invalid parameter")

	ErrNotRelayerOrInsufficientApproval = Register(6, "not relayer or insufficient approval")

	// ErrReplayDetected is returned when a reference id was already consumed.
	ErrReplayDetected = Register(7, "replay detected")

	ErrRefundThresholdExceeded = Register(8, "refund stable coin threshold exceeded")

	// ErrTransferFailed is returned when a custody or caller balance cannot
	// cover a transfer.
	ErrTransferFailed = Register(9, "transfer failed")
)

// Infrastructure errors. These never replace a taxonomy error in a reply.
var (
	// ErrVenueFailed marks a failed swap venue call. Settlement recovers it
	// into the refund branch.
	ErrVenueFailed = Register(20, "venue call failed")

	// ErrPanic is only set when a panic was recovered at an isolation
	// boundary.
	ErrPanic = Register(21, "panic")

	ErrStore = Register(22, "store failure")
)

// Register returns an error instance that should be used as the base for
// creating error instances during runtime. Reusing a code panics.
//
// Use this function only during a program startup phase.
func Register(code uint32, description string) *Error {
	if e, ok := usedCodes[code]; ok {
		panic(fmt.Sprintf("error with code %d is already registered: %q", code, e.desc))
	}
	err := &Error{
		code: code,
		desc: description,
	}
	usedCodes[err.code] = err
	return err
}

// usedCodes is keeping track of used codes to ensure their uniqueness.
var usedCodes = map[uint32]*Error{
	1: nil, // reserved for errors that do not wrap a registered root
}

// Error represents a root error. Each error created at runtime should wrap
// one of the declared roots so callers can classify it.
type Error struct {
	code uint32
	desc string
}

func (e Error) Error() string {
	return e.desc
}

func (e Error) Code() uint32 {
	return e.code
}

// New returns a new error with this root as its cause.
func (e *Error) New(description string) error {
	return Wrap(e, description)
}

// Newf is New with formatting capabilities.
func (e *Error) Newf(description string, args ...interface{}) error {
	return e.New(fmt.Sprintf(description, args...))
}

// Is checks if given error instance is of this kind, unwrapping through
// Cause.
func (kind *Error) Is(err error) bool {
	// Reflect usage is necessary to correctly compare with
	// a nil implementation of an error.
	if kind == nil {
		if err == nil {
			return true
		}
		return reflect.ValueOf(err).IsNil()
	}

	for {
		if err == kind {
			return true
		}

		if c, ok := err.(causer); ok {
			err = c.Cause()
		} else {
			return false
		}
	}
}

// Wrap extends given error with an additional information.
//
// If err is nil, this returns nil.
func Wrap(err error, description string) error {
	if err == nil {
		return nil
	}

	// attach a stack trace once, at the innermost wrap
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}

	return &wrappedError{
		parent: err,
		msg:    description,
	}
}

// Wrapf is Wrap with formatting capabilities.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Code returns the registered code of the root cause, or 1 when the error
// does not wrap a registered root.
func Code(err error) uint32 {
	if root := Root(err); root != nil {
		return root.code
	}
	return 1
}

// Root returns the registered root error of err, or nil.
func Root(err error) *Error {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e
		}
		c, ok := err.(causer)
		if !ok {
			return nil
		}
		err = c.Cause()
	}
	return nil
}

// Recover captures a panic and stops its propagation. The panic value is
// turned into an ErrPanic instance and assigned to err. Call it with defer.
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = Wrapf(ErrPanic, "%v", r)
	}
}

type wrappedError struct {
	msg    string
	parent error
}

func (e *wrappedError) Error() string {
	return fmt.Sprintf("%s: %s", e.msg, e.parent.Error())
}

func (e *wrappedError) Cause() error {
	return e.parent
}

func (e *wrappedError) Unwrap() error {
	return e.parent
}

type causer interface {
	Cause() error
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// stackTrace returns the first found stack trace frame carried by given
// error or any wrapped error.
func stackTrace(err error) errors.StackTrace {
	if st, ok := err.(stackTracer); ok {
		return st.StackTrace()
	}
	if c, ok := err.(causer); ok {
		return stackTrace(c.Cause())
	}
	return nil
}
