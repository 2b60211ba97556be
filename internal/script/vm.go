// Package script compiles and runs restricted user scripts on an embedded
// ECMAScript engine. Each VM owns one engine instance seeded with the
// capability whitelist and nothing else: no host objects, no filesystem,
// no timers. Scripts reach the outside world only through the bound
// capability calls.
package script

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dop251/goja"

	"github.com/vovakirdan/blockstage/internal/capability"
)

// CallFunc performs a capability call on behalf of a running script.
// The returned value is handed back to the script as the call result.
// A non-nil error is reserved for transport failures that must abort the
// handler; ordinary capability failures arrive as {error} result values.
type CallFunc func(name string, args []any) (any, error)

// ErrInterrupted is returned by Invoke when the VM was interrupted while a
// handler was running.
var ErrInterrupted = errors.New("script: execution interrupted")

// CompileError describes a handler that failed to compile.
// The handler becomes a no-op; other handlers are unaffected.
type CompileError struct {
	Handler string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("script: cannot compile handler %q: %v", e.Handler, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// VM wraps a single engine instance with the capability bindings installed.
// Not safe for concurrent use: exactly one goroutine may compile or run
// scripts. Interrupt is the one exception and may be called from any
// goroutine.
type VM struct {
	rt       *goja.Runtime
	call     CallFunc
	handlers map[string]goja.Callable
}

// New creates a VM with every whitelisted capability bound to call.
func New(call CallFunc) *VM {
	v := &VM{
		rt:       goja.New(),
		call:     call,
		handlers: make(map[string]goja.Callable),
	}
	for _, name := range capability.Names() {
		v.bind(name)
	}
	// Shared store for script globals. Handlers run in strict mode, so this
	// is the only place they can keep state between invocations.
	_ = v.rt.Set("vars", v.rt.NewObject())
	return v
}

// bind installs the native function for one capability name.
func (v *VM) bind(name string) {
	_ = v.rt.Set(name, func(fc goja.FunctionCall) goja.Value {
		args := make([]any, len(fc.Arguments))
		for i, a := range fc.Arguments {
			args[i] = a.Export()
		}
		res, err := v.call(name, capability.NormalizeSlice(args))
		if err != nil {
			// Transport failure: the handler cannot continue.
			panic(v.rt.NewGoError(err))
		}
		if res == nil {
			return goja.Undefined()
		}
		return v.rt.ToValue(res)
	})
}

// Load compiles a handler map, replacing any previously loaded handlers.
// Handlers that fail to compile are left out and reported; the rest stay
// usable.
func (v *VM) Load(handlers map[string]string) []*CompileError {
	v.handlers = make(map[string]goja.Callable, len(handlers))

	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []*CompileError
	for _, name := range names {
		fn, err := v.compile(name, handlers[name])
		if err != nil {
			errs = append(errs, &CompileError{Handler: name, Err: err})
			continue
		}
		v.handlers[name] = fn
	}
	return errs
}

// compile wraps the handler body in a single-parameter function so the body
// sees its event payload as `args`.
func (v *VM) compile(name, src string) (goja.Callable, error) {
	wrapped := "(function(args) {\n" + src + "\n})"
	prog, err := goja.Compile(name, wrapped, true)
	if err != nil {
		return nil, err
	}
	val, err := v.rt.RunProgram(prog)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(val)
	if !ok {
		return nil, fmt.Errorf("handler %q did not evaluate to a function", name)
	}
	return fn, nil
}

// Has reports whether a handler with the given name is loaded.
func (v *VM) Has(name string) bool {
	_, ok := v.handlers[name]
	return ok
}

// Handlers returns the loaded handler names in sorted order.
func (v *VM) Handlers() []string {
	names := make([]string, 0, len(v.handlers))
	for name := range v.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs a loaded handler with the given event payload and returns its
// normalized result. Unknown handlers are a successful no-op, so a handler
// that failed to compile cannot take the session down.
func (v *VM) Invoke(name string, event map[string]any) (any, error) {
	fn, ok := v.handlers[name]
	if !ok {
		return nil, nil
	}

	var arg goja.Value = goja.Undefined()
	if event != nil {
		arg = v.rt.ToValue(capability.NormalizeMap(event))
	}

	res, err := fn(goja.Undefined(), arg)
	if err != nil {
		var ierr *goja.InterruptedError
		if errors.As(err, &ierr) {
			return nil, fmt.Errorf("%w: %v", ErrInterrupted, ierr.Value())
		}
		return nil, err
	}
	return capability.Normalize(res.Export()), nil
}

// Interrupt aborts the currently running script, if any. Safe to call from
// any goroutine. The VM must not be used again afterwards.
func (v *VM) Interrupt(reason string) {
	v.rt.Interrupt(reason)
}
