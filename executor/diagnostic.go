package executor

import (
	"bytes"
	"errors"
	"strings"

	"github.com/dop251/goja"

	"github.com/caffeineduck/scripthost/module"
)

// Kind classifies a Diagnostic by where the fault originated.
type Kind int

const (
	KindRuntime Kind = iota
	KindCompile
	KindModuleNotFound
	KindFileRead
	KindHostInvocation
	KindInterrupted
)

func (k Kind) String() string {
	switch k {
	case KindCompile:
		return "compile"
	case KindModuleNotFound:
		return "module_not_found"
	case KindFileRead:
		return "file_read"
	case KindHostInvocation:
		return "host_invocation"
	case KindInterrupted:
		return "interrupted"
	default:
		return "runtime"
	}
}

// UnknownError is reported when a thrown value cannot be converted to a string.
const UnknownError = "unknown script error"

// Diagnostic is the host-facing report of a script fault.
type Diagnostic struct {
	Kind    Kind
	Message string
	// Stack holds one "\tat ..." line per frame, innermost first. Empty when no
	// trace was captured.
	Stack string
}

func (d *Diagnostic) Error() string {
	if d.Stack == "" {
		return d.Message
	}
	return d.Message + "\n" + d.Stack
}

// Format converts an error produced by the engine into a Diagnostic.
// It returns nil for a nil error and never panics.
//
// Thrown objects whose string conversion runs script code are converted
// outside any runtime guard; Environment formats its own faults with the
// runtime's Try so a throwing toString is contained there.
func Format(err error) *Diagnostic {
	return format(err, recoverString)
}

type stringer func(goja.Value) (string, bool)

func recoverString(v goja.Value) (s string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s, ok = "", false
		}
	}()
	return v.String(), true
}

func format(err error, str stringer) *Diagnostic {
	if err == nil {
		return nil
	}

	switch e := err.(type) {
	case *Diagnostic:
		return e
	case *goja.InterruptedError:
		return formatInterrupt(e)
	case *goja.Exception:
		return formatException(e, str)
	}

	var diag *Diagnostic
	if errors.As(err, &diag) {
		return diag
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return formatInterrupt(interrupted)
	}

	if isCompileError(err) {
		return &Diagnostic{Kind: KindCompile, Message: err.Error()}
	}

	msg := err.Error()
	if msg == "" {
		msg = UnknownError
	}
	return &Diagnostic{Kind: kindOf(err), Message: msg}
}

func formatException(ex *goja.Exception, str stringer) *Diagnostic {
	d := &Diagnostic{
		Kind:    KindRuntime,
		Message: UnknownError,
		Stack:   formatStack(ex.Stack()),
	}
	if v := ex.Value(); v != nil {
		if s, ok := str(v); ok && s != "" {
			d.Message = s
		}
	}
	if cause := unwrapException(ex); cause != nil {
		d.Kind = kindOf(cause)
	}
	return d
}

// unwrapException returns the Go error attached to a thrown GoError, if any.
func unwrapException(ex *goja.Exception) (err error) {
	defer func() {
		if recover() != nil {
			err = nil
		}
	}()
	return ex.Unwrap()
}

func kindOf(err error) Kind {
	var invocation *InvocationError
	switch {
	case isCompileError(err):
		return KindCompile
	case errors.Is(err, module.ErrNotFound):
		return KindModuleNotFound
	case errors.Is(err, module.ErrRead):
		return KindFileRead
	case errors.As(err, &invocation):
		return KindHostInvocation
	}
	return KindRuntime
}

func isCompileError(err error) bool {
	var syntax *goja.CompilerSyntaxError
	var reference *goja.CompilerReferenceError
	return errors.As(err, &syntax) || errors.As(err, &reference)
}

func formatInterrupt(e *goja.InterruptedError) *Diagnostic {
	return &Diagnostic{
		Kind:    KindInterrupted,
		Message: interruptMessage(e),
		Stack:   formatStack(e.Stack()),
	}
}

func interruptMessage(e *goja.InterruptedError) string {
	switch v := e.Value().(type) {
	case nil:
		return "interrupted"
	case string:
		return "interrupted: " + v
	case error:
		return "interrupted: " + v.Error()
	default:
		return e.Error()
	}
}

func formatStack(frames []goja.StackFrame) string {
	if len(frames) == 0 {
		return ""
	}
	var b bytes.Buffer
	lines := make([]string, 0, len(frames))
	for i := range frames {
		b.Reset()
		b.WriteString("\tat ")
		frames[i].Write(&b)
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}
