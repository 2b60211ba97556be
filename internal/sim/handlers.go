package sim

import (
	"context"

	"github.com/vovakirdan/blockstage/internal/bridge"
	"github.com/vovakirdan/blockstage/internal/script"
)

// Handler names the runtime understands. Code generation produces onStart
// and onTick; onClick and onCollision come from raw script sources.
const (
	HandlerStart     = "onStart"
	HandlerTick      = "onTick"
	HandlerClick     = "onClick"
	HandlerCollision = "onCollision"
)

// HandlerNames lists every recognized handler name.
func HandlerNames() []string {
	return []string{HandlerStart, HandlerTick, HandlerClick, HandlerCollision}
}

// KnownHandler reports whether name is a recognized handler.
func KnownHandler(name string) bool {
	switch name {
	case HandlerStart, HandlerTick, HandlerClick, HandlerCollision:
		return true
	}
	return false
}

// Handlers is one loaded generation of executable script: an isolated
// bridge, an in-process VM, or both. The isolated path serves invocations
// whenever it is present; the in-process VM is the fallback and also
// participates in onStart broadcasts so its module state stays usable if
// the bridge later dies. Replaced wholesale on every load, never patched.
type Handlers struct {
	bridge *bridge.Bridge
	vm     *script.VM
}

// NewIsolated wraps a ready bridge as the sole representation.
func NewIsolated(b *bridge.Bridge) *Handlers {
	return &Handlers{bridge: b}
}

// NewInProcess wraps a compiled VM as the sole representation.
func NewInProcess(vm *script.VM) *Handlers {
	return &Handlers{vm: vm}
}

// Isolated reports whether invocations go through the isolated context.
func (h *Handlers) Isolated() bool {
	return h != nil && h.bridge != nil
}

// Invoke runs the named handler through the active representation. A nil
// or empty Handlers value is a no-op, as is an unknown handler name.
func (h *Handlers) Invoke(ctx context.Context, name string, event map[string]any) (any, error) {
	if h == nil {
		return nil, nil
	}
	if h.bridge != nil {
		return h.bridge.Run(ctx, name, event)
	}
	if h.vm != nil {
		return h.vm.Invoke(name, event)
	}
	return nil, nil
}

// InvokeEach runs the named handler through every present representation,
// isolated first, and returns the errors in invocation order.
func (h *Handlers) InvokeEach(ctx context.Context, name string, event map[string]any) []error {
	if h == nil {
		return nil
	}
	var errs []error
	if h.bridge != nil {
		if _, err := h.bridge.Run(ctx, name, event); err != nil {
			errs = append(errs, err)
		}
	}
	if h.vm != nil {
		if _, err := h.vm.Invoke(name, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
