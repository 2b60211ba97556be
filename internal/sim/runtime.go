// Package sim owns the authoritative simulation: the object table, the
// simulation clock, physics integration, and the capability surface that
// user scripts mutate it through. The tick scheduler is cooperative and
// frame-driven; the caller invokes Step once per display refresh and the
// runtime never blocks that call on script execution.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/blockstage/internal/assets"
	"github.com/vovakirdan/blockstage/internal/bridge"
	"github.com/vovakirdan/blockstage/internal/capability"
	"github.com/vovakirdan/blockstage/internal/script"
)

// Physics and scheduling defaults.
const (
	DefaultGravity       = 9.8
	DefaultMaxFrameDelta = 0.25
)

// Config holds runtime tuning.
type Config struct {
	// Gravity is the constant downward acceleration in units/s². The zero
	// value disables gravity; DefaultConfig supplies the standard constant.
	Gravity float64

	// MaxFrameDelta caps the delta derived from wall-clock frames, so a
	// suspended preview does not integrate one giant step on resume.
	MaxFrameDelta float64

	// Bridge configures the isolated execution path.
	Bridge bridge.Config

	// Assets backs the loadImage and createSprite capabilities.
	Assets *assets.Library

	// Logger receives runtime diagnostics and the script log sink.
	// Defaults to a silent logger.
	Logger *log.Logger
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		Gravity:       DefaultGravity,
		MaxFrameDelta: DefaultMaxFrameDelta,
	}
}

// Runtime drives one simulation session. All methods are safe for
// concurrent use; the tick path expects a single caller.
type Runtime struct {
	cfg       Config
	logger    *log.Logger
	scriptLog *log.Logger
	assets    *assets.Library
	world     *World

	mu       sync.Mutex
	handlers *Handlers
	source   map[string]string
	running  bool
	lastTick time.Time
	contacts map[string]struct{}
}

// New creates a stopped runtime with an empty world.
func New(cfg Config) *Runtime {
	if cfg.MaxFrameDelta <= 0 {
		cfg.MaxFrameDelta = DefaultMaxFrameDelta
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	lib := cfg.Assets
	if lib == nil {
		lib = assets.NewLibrary(nil)
	}
	return &Runtime{
		cfg:       cfg,
		logger:    logger,
		scriptLog: logger.WithPrefix("script"),
		assets:    lib,
		world:     NewWorld(),
		contacts:  make(map[string]struct{}),
	}
}

// World returns the authoritative state bundle.
func (r *Runtime) World() *World {
	return r.world
}

// Assets returns the image library backing the asset capabilities.
func (r *Runtime) Assets() *assets.Library {
	return r.assets
}

// AddObject inserts an object into the world, for host setup code.
func (r *Runtime) AddObject(o *Object) {
	r.world.AddObject(o)
}

// RemoveObject removes an object from the world.
func (r *Runtime) RemoveObject(id string) {
	r.world.RemoveObject(id)
}

// On registers a host listener for a script-emitted event. Registering
// under EventAny observes every event.
func (r *Runtime) On(event string, l Listener) {
	r.world.On(event, l)
}

// Running reports whether the tick scheduler is active.
func (r *Runtime) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Isolated reports whether the isolated execution path is currently active.
func (r *Runtime) Isolated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers.Isolated()
}

// LoadScript replaces the handler bindings wholesale with the given
// handler-name→source map. The isolated path is preferred; when the context
// cannot be spawned or loaded, the in-process path serves alone. Handlers
// that fail to compile become no-ops and the load still succeeds. An empty
// map means nothing to run, which is not an error.
func (r *Runtime) LoadScript(ctx context.Context, source map[string]string) error {
	for name := range source {
		if !KnownHandler(name) {
			return fmt.Errorf("sim: unknown handler %q", name)
		}
	}

	vm := script.New(r.settleCall)
	for _, cerr := range vm.Load(source) {
		r.logger.Warn("handler disabled", "handler", cerr.Handler, "err", cerr.Err)
	}

	var iso *bridge.Bridge
	b := bridge.New(r.bridgeConfig())
	if err := b.Initialize(ctx); err != nil {
		r.logger.Warn("isolated context unavailable, using in-process execution", "err", err)
	} else if err := b.LoadHandlers(ctx, source, r); err != nil {
		r.logger.Warn("handler load into isolated context failed, using in-process execution", "err", err)
		b.Terminate()
	} else {
		iso = b
	}

	src := make(map[string]string, len(source))
	for name, body := range source {
		src[name] = body
	}

	r.mu.Lock()
	old := r.handlers
	r.handlers = &Handlers{bridge: iso, vm: vm}
	r.source = src
	r.mu.Unlock()

	if old != nil && old.bridge != nil {
		old.bridge.Terminate()
	}
	return nil
}

func (r *Runtime) bridgeConfig() bridge.Config {
	cfg := r.cfg.Bridge
	if cfg.Logger == nil {
		cfg.Logger = r.logger
	}
	return cfg
}

// Start transitions Stopped to Running and fires onStart once, before the
// first tick. When both representations are present, onStart goes through
// both so module-level script state exists on whichever path serves later
// invocations.
func (r *Runtime) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.lastTick = time.Time{}
	h := r.handlers
	r.mu.Unlock()

	elapsed, _ := r.world.Clock()
	for _, err := range h.InvokeEach(ctx, HandlerStart, map[string]any{"t": elapsed}) {
		r.handleInvokeError(h, HandlerStart, err)
	}
}

// Stop halts tick scheduling. In-flight isolated handler calls are not
// aborted; only bridge termination does that.
func (r *Runtime) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// Reset stops the runtime and returns the world to its initial dynamic
// state. Objects and handler bindings survive; the clock, velocities, and
// the variable store do not.
func (r *Runtime) Reset() {
	r.mu.Lock()
	r.running = false
	r.lastTick = time.Time{}
	r.contacts = make(map[string]struct{})
	r.mu.Unlock()
	r.world.Reset()
}

// Close terminates the isolated context if one is active.
func (r *Runtime) Close() {
	r.mu.Lock()
	h := r.handlers
	r.mu.Unlock()
	if h != nil && h.bridge != nil {
		h.bridge.Terminate()
	}
}

// Step advances one display frame at wall-clock time now. The first frame
// after Start establishes the clock baseline and advances zero time; frame
// gaps larger than MaxFrameDelta clamp.
func (r *Runtime) Step(now time.Time) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	var dt float64
	if !r.lastTick.IsZero() {
		dt = now.Sub(r.lastTick).Seconds()
	}
	r.lastTick = now
	r.mu.Unlock()

	if dt < 0 {
		dt = 0
	}
	if dt > r.cfg.MaxFrameDelta {
		dt = r.cfg.MaxFrameDelta
	}
	r.Advance(dt)
}

// Advance deterministically advances the simulation by dt seconds: clock,
// physics, collision scan, then one onTick dispatch. Velocity integrates
// before position, so acceleration applied this frame already moves the
// object this frame.
func (r *Runtime) Advance(dt float64) {
	if dt < 0 {
		dt = 0
	}
	r.world.advance(dt)
	r.integrate(dt)
	r.scanCollisions()

	elapsed, _ := r.world.Clock()
	r.dispatch(HandlerTick, map[string]any{"dt": dt, "t": elapsed})
}

func (r *Runtime) integrate(dt float64) {
	if dt == 0 {
		return
	}
	g := r.cfg.Gravity
	r.world.Each(func(o *Object) {
		if o.GravityEnabled() {
			o.VY += g * o.gravityScale() * dt
		}
		o.X += o.VX * dt
		o.Y += o.VY * dt
	})
}

// scanCollisions fires one onCollision per newly overlapping pair. A pair
// stays muted until its contact breaks.
func (r *Runtime) scanCollisions() {
	objs := r.world.Snapshot()
	current := make(map[string]struct{})
	var fresh []map[string]any
	for i := 0; i < len(objs); i++ {
		for j := i + 1; j < len(objs); j++ {
			if !objs[i].Bounds().Intersects(objs[j].Bounds()) {
				continue
			}
			key := pairKey(objs[i].ID, objs[j].ID)
			current[key] = struct{}{}
			if _, held := r.heldContact(key); !held {
				fresh = append(fresh, map[string]any{"a": objs[i].ID, "b": objs[j].ID})
			}
		}
	}

	r.mu.Lock()
	r.contacts = current
	r.mu.Unlock()

	for _, ev := range fresh {
		r.dispatch(HandlerCollision, ev)
	}
}

func (r *Runtime) heldContact(key string) (struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.contacts[key]
	return v, ok
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

// Click hit-tests the stage point and fires onClick for the topmost object
// under it. Topmost means latest in draw order. Clicks on empty stage do
// nothing.
func (r *Runtime) Click(x, y float64) {
	objs := r.world.Snapshot()
	for i := len(objs) - 1; i >= 0; i-- {
		if objs[i].HitTest(x, y) {
			r.dispatch(HandlerClick, map[string]any{"id": objs[i].ID, "x": x, "y": y})
			return
		}
	}
}

// dispatch invokes a handler through the active representation. The
// isolated path runs asynchronously so a slow context cannot stall the
// tick loop; the in-process path is a plain call on the calling goroutine.
func (r *Runtime) dispatch(name string, event map[string]any) {
	r.mu.Lock()
	h := r.handlers
	r.mu.Unlock()
	if h == nil {
		return
	}
	if h.Isolated() {
		go r.invoke(h, name, event)
		return
	}
	r.invoke(h, name, event)
}

func (r *Runtime) invoke(h *Handlers, name string, event map[string]any) {
	if _, err := h.Invoke(context.Background(), name, event); err != nil {
		r.handleInvokeError(h, name, err)
	}
}

// handleInvokeError sorts handler failures into the recoverable kind, which
// is only logged, and bridge-fatal kinds, which demote execution to the
// in-process path.
func (r *Runtime) handleInvokeError(h *Handlers, name string, err error) {
	if errors.Is(err, bridge.ErrRunTimeout) || errors.Is(err, bridge.ErrTerminated) || errors.Is(err, bridge.ErrNotReady) {
		r.logger.Warn("isolated context lost, falling back to in-process execution",
			"handler", name, "err", err)
		r.fallback(h)
		return
	}
	r.logger.Warn("handler failed", "handler", name, "err", err)
}

// fallback demotes the given handler generation to its in-process
// representation. Only the generation that failed is demoted, so a stale
// error cannot displace a replacement loaded in the meantime.
func (r *Runtime) fallback(failed *Handlers) {
	r.mu.Lock()
	if r.handlers != failed {
		r.mu.Unlock()
		return
	}
	vm := failed.vm
	r.handlers = &Handlers{vm: vm}
	r.mu.Unlock()

	if failed.bridge != nil {
		failed.bridge.Terminate()
	}
	if vm == nil {
		r.logger.Warn("no in-process handlers available, simulation continues without script")
	}
}

// settleCall adapts Dispatch for the in-process path, where capability
// failures must surface to scripts as {error} values exactly as they do
// across the isolation boundary.
func (r *Runtime) settleCall(name string, args []any) (any, error) {
	res, err := dispatchSafely(r, name, args)
	return capability.Settle(res, err), nil
}

func dispatchSafely(d capability.Dispatcher, name string, args []any) (res any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("capability %s panicked: %v", name, p)
		}
	}()
	return d.Dispatch(name, args)
}

// Emit synchronously invokes every listener registered for event in
// registration order, then the EventAny listeners. A panicking listener is
// logged and the rest still run.
func (r *Runtime) Emit(event string, args ...any) {
	for _, l := range r.world.listenersFor(event) {
		r.invokeListener(event, args, l)
	}
	if event == EventAny {
		return
	}
	for _, l := range r.world.listenersFor(EventAny) {
		r.invokeListener(event, args, l)
	}
}

func (r *Runtime) invokeListener(event string, args []any, l Listener) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("event listener panicked", "event", event, "err", p)
		}
	}()
	l(event, args)
}

func formatLogArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return strings.Join(parts, " ")
}
