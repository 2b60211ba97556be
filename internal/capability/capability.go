// Package capability defines the whitelisted host API exposed to user scripts.
// Scripts can only reach the simulation through these named calls; the
// whitelist is fixed at build time and identical for the isolated and
// in-process execution paths.
package capability

import "errors"

// Canonical capability names as scripts invoke them.
const (
	SetProperty  = "setProperty"
	GetProperty  = "getProperty"
	Emit         = "emit"
	Log          = "log"
	LoadImage    = "loadImage"
	CreateSprite = "createSprite"
	AddObject    = "addObject"
	RemoveObject = "removeObject"
)

// ErrUnknown is returned when a script invokes a capability outside the
// whitelist.
var ErrUnknown = errors.New("capability: unknown capability")

// names holds the full whitelist in a stable order.
var names = []string{
	SetProperty,
	GetProperty,
	Emit,
	Log,
	LoadImage,
	CreateSprite,
	AddObject,
	RemoveObject,
}

// Names returns the full capability whitelist in a stable order.
// The returned slice is a copy and safe to mutate.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// IsAllowed reports whether name is part of the capability whitelist.
func IsAllowed(name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Dispatcher executes capability calls against the authoritative simulation
// state. Implementations must be safe for concurrent use: calls arrive from
// script execution goroutines, not from the caller's goroutine.
type Dispatcher interface {
	Dispatch(name string, args []any) (any, error)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(name string, args []any) (any, error)

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(name string, args []any) (any, error) {
	return f(name, args)
}

// Failure converts a capability error into the structured value handed back
// to scripts. Scripts observe failures as {error: "..."} results rather than
// thrown exceptions, so a broken call cannot abort a handler.
func Failure(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}

// Settle folds a dispatch outcome into the single value marshaled back to
// the calling script: the normalized result on success, a Failure value
// otherwise.
func Settle(res any, err error) any {
	if err != nil {
		return Failure(err)
	}
	return Normalize(res)
}
