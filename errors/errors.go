package errors

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDecode    Phase = "decode"    // bytes to flat tables
	PhaseEncode    Phase = "encode"    // flat tables to bytes
	PhaseLoad      Phase = "load"      // flat tables to object graph
	PhaseBuild     Phase = "build"     // object graph to flat tables
	PhaseJob       Phase = "job"       // background operations
	PhaseContainer Phase = "container" // carrier file framing
	PhaseConfig    Phase = "config"    // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfData            Kind = "out_of_data"
	KindMalformedConstant    Kind = "malformed_constant"
	KindMalformedInstruction Kind = "malformed_instruction"
	KindEncodeConstraint     Kind = "encode_constraint"
	KindOverflow             Kind = "overflow"
	KindOutOfBounds          Kind = "out_of_bounds"
	KindInvalidData          Kind = "invalid_data"
	KindUnsupported          Kind = "unsupported"
	KindBusy                 Kind = "busy"
	KindNotFound             Kind = "not_found"
)

// NoOffset marks an error without a byte position.
const NoOffset = -1

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
	Offset int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Offset >= 0 {
		b.WriteString(" (offset ")
		b.WriteString(strconv.Itoa(e.Offset))
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether any error in err's chain is an *Error of the given kind,
// regardless of phase.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Offset: NoOffset,
		},
	}
}

// Path sets the table path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// At sets the byte offset
func (b *Builder) At(offset int) *Builder {
	b.err.Offset = offset
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// OutOfData creates an error for a read past the end of the buffer
func OutOfData(phase Phase, offset, want, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfData,
		Offset: offset,
		Detail: fmt.Sprintf("need %d bytes, %d available", want, have),
	}
}

// MalformedConstant creates an error for an unknown tagged-union kind or a bad pool reference
func MalformedConstant(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMalformedConstant,
		Path:   path,
		Offset: NoOffset,
		Detail: detail,
	}
}

// InvalidKind creates a malformed constant error for an unknown kind byte
func InvalidKind(phase Phase, path []string, what string, kind byte) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMalformedConstant,
		Path:   path,
		Offset: NoOffset,
		Detail: fmt.Sprintf("unknown %s kind 0x%02x", what, kind),
		Value:  kind,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Offset: NoOffset,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Offset: NoOffset,
		Detail: fmt.Sprintf("value %v overflows %s", value, target),
		Value:  value,
	}
}

// EncodeConstraint creates an error for a graph that cannot be rendered to the binary format
func EncodeConstraint(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEncodeConstraint,
		Path:   path,
		Offset: NoOffset,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Offset: NoOffset,
		Detail: what,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Offset: NoOffset,
		Detail: detail,
	}
}

// Busy creates an error for a request rejected because another operation is in flight
func Busy(what string) *Error {
	return &Error{
		Phase:  PhaseJob,
		Kind:   KindBusy,
		Offset: NoOffset,
		Detail: fmt.Sprintf("%s already in progress", what),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Offset: NoOffset,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Offset: NoOffset,
		Detail: detail,
		Cause:  cause,
	}
}

// WithOffset returns err annotated with a byte offset and table path.
// An *Error that already carries an offset keeps it; its path is prefixed.
func WithOffset(err error, offset int, path ...string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		annotated := *e
		if annotated.Offset < 0 {
			annotated.Offset = offset
		}
		annotated.Path = append(append([]string(nil), path...), e.Path...)
		return &annotated
	}
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidData,
		Path:   path,
		Offset: offset,
		Cause:  err,
	}
}
