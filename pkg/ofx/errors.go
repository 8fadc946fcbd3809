package ofx

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies failures raised anywhere in the host or the support runtime
type Kind int

const (
	Unknown Kind = iota
	BadHandle
	UnknownProperty
	TypeMismatch
	BadIndex
	LoadFailed
	AlreadyLoaded
	NotLoaded
	MissingHostFeature
	NotFound
	Malformed
	BadValue
	Failed
)

var kindNames = []string{
	"unknown error",
	"bad handle",
	"unknown property",
	"type mismatch",
	"bad index",
	"load failed",
	"already loaded",
	"not loaded",
	"missing host feature",
	"not found",
	"malformed",
	"bad value",
	"failed",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds lists every error kind, in declaration order
func Kinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kindNames {
		kinds[i] = Kind(i)
	}
	return kinds
}

// kindStatus is the single conversion table used at the plugin boundary.
var kindStatus = map[Kind]Status{
	Unknown:            StatErrUnknown,
	BadHandle:          StatErrBadHandle,
	UnknownProperty:    StatErrUnknown,
	TypeMismatch:       StatErrValue,
	BadIndex:           StatErrBadIndex,
	LoadFailed:         StatFailed,
	AlreadyLoaded:      StatErrExists,
	NotLoaded:          StatFailed,
	MissingHostFeature: StatErrMissingHostFeature,
	NotFound:           StatFailed,
	Malformed:          StatErrFormat,
	BadValue:           StatErrValue,
	Failed:             StatFailed,
}

// Error is the error type used by the property store, the loader, the cache
// and the support runtime.
type Error struct {
	Kind    Kind
	Op      string // e.g. "props.GetInt"
	Subject string // property name, module path or plugin identifier
	Status  Status // set when the error was raised from a status code
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Subject != "" {
		fmt.Fprintf(&b, " %q", e.Subject)
	}
	if e.Status != StatOK {
		fmt.Fprintf(&b, " (%s)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels below, so errors.Is(err, ErrNotFound) works
// for any *Error of kind NotFound.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Subject == "" && t.Err == nil && t.Status == StatOK && t.Kind == e.Kind
}

// Kind sentinels for errors.Is
var (
	ErrUnknown            = &Error{Kind: Unknown}
	ErrBadHandle          = &Error{Kind: BadHandle}
	ErrUnknownProperty    = &Error{Kind: UnknownProperty}
	ErrTypeMismatch       = &Error{Kind: TypeMismatch}
	ErrBadIndex           = &Error{Kind: BadIndex}
	ErrLoadFailed         = &Error{Kind: LoadFailed}
	ErrAlreadyLoaded      = &Error{Kind: AlreadyLoaded}
	ErrNotLoaded          = &Error{Kind: NotLoaded}
	ErrMissingHostFeature = &Error{Kind: MissingHostFeature}
	ErrNotFound           = &Error{Kind: NotFound}
	ErrMalformed          = &Error{Kind: Malformed}
	ErrBadValue           = &Error{Kind: BadValue}
	ErrFailed             = &Error{Kind: Failed}
)

// NewError builds an *Error of the given kind
func NewError(kind Kind, op, subject string) *Error {
	return &Error{Kind: kind, Op: op, Subject: subject}
}

// WrapError builds an *Error of the given kind around err
func WrapError(kind Kind, op, subject string, err error) *Error {
	return &Error{Kind: kind, Op: op, Subject: subject, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// StatusOf converts an error into the nearest status code. A nil error is
// kOfxStatOK; anything that is not an *Error is kOfxStatErrUnknown.
func StatusOf(err error) Status {
	if err == nil {
		return StatOK
	}

	var e *Error
	if !errors.As(err, &e) {
		return StatErrUnknown
	}
	if e.Status != StatOK {
		return e.Status
	}
	if stat, ok := kindStatus[e.Kind]; ok {
		return stat
	}
	return StatErrUnknown
}

func kindForStatus(stat Status) Kind {
	switch stat {
	case StatErrBadHandle:
		return BadHandle
	case StatErrBadIndex:
		return BadIndex
	case StatErrMissingHostFeature:
		return MissingHostFeature
	case StatErrFormat:
		return Malformed
	case StatErrValue:
		return BadValue
	case StatErrUnknown:
		return Unknown
	default:
		return Failed
	}
}
