// Package bridge runs untrusted handler scripts inside an isolated execution
// unit reachable only through a message protocol. The host never shares
// memory with the context: handler source goes in, JSON-shaped results come
// back, and every cross-boundary call is correlated by id so concurrent
// traffic in both directions stays untangled. A context that stops
// responding is killed, never waited on: run() carries a watchdog whose
// expiry tears the whole bridge down.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/blockstage/internal/capability"
	"github.com/vovakirdan/blockstage/internal/script"
)

// State is the bridge lifecycle state.
type State int

// Lifecycle states. Terminated is absorbing: a new Bridge instance must be
// created to resume isolated execution.
const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateTerminated
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Default watchdog windows.
const (
	DefaultInitTimeout = 3 * time.Second
	DefaultRunTimeout  = 2 * time.Second
)

var (
	// ErrInitTimeout is returned when the context does not acknowledge a
	// boot or handler load within InitTimeout.
	ErrInitTimeout = errors.New("bridge: init timeout")

	// ErrRunTimeout is returned by the run() call whose watchdog expired.
	// The bridge is terminated as a side effect.
	ErrRunTimeout = errors.New("bridge: run timeout")

	// ErrTerminated is returned for every call on a terminated bridge and
	// for every pending call at the moment of termination.
	ErrTerminated = errors.New("bridge: terminated")

	// ErrNotReady is returned when an operation requires an initialized
	// bridge.
	ErrNotReady = errors.New("bridge: not ready")
)

// HandlerError reports that a handler threw inside the isolated context.
// Unlike watchdog expiry this is not fatal: the bridge stays usable.
type HandlerError struct {
	Handler string
	Message string
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("bridge: handler %q failed: %s", e.Handler, e.Message)
}

// Config holds bridge tuning.
type Config struct {
	// InitTimeout bounds boot and handler-load acknowledgements.
	InitTimeout time.Duration

	// RunTimeout bounds a single handler execution. When it expires the
	// whole bridge is torn down: a wedged context cannot be trusted again.
	RunTimeout time.Duration

	// Logger receives bridge diagnostics. Defaults to a silent logger.
	Logger *log.Logger
}

type runOutcome struct {
	result any
	err    error
}

// pendingRun correlates one in-flight run request. The outcome channel is
// buffered so exactly one of settle/Terminate can deliver without blocking.
type pendingRun struct {
	handler string
	ch      chan runOutcome
}

// Bridge is the host side of the isolation boundary.
// All methods are safe for concurrent use.
type Bridge struct {
	cfg    Config
	logger *log.Logger

	toWorker   chan Message
	fromWorker chan Message
	done       chan struct{}
	killOnce   sync.Once

	mu         sync.Mutex
	state      State
	booted     bool
	bootReady  chan struct{}
	loadWait   chan struct{}
	pending    map[int64]*pendingRun
	dispatcher capability.Dispatcher
	nextID     int64
	vm         *script.VM
}

// New creates an uninitialized bridge. The isolated context is not spawned
// until Initialize.
func New(cfg Config) *Bridge {
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = DefaultInitTimeout
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Bridge{
		cfg:        cfg,
		logger:     logger,
		toWorker:   make(chan Message, 64),
		fromWorker: make(chan Message, 64),
		done:       make(chan struct{}),
		pending:    make(map[int64]*pendingRun),
	}
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Initialize spawns the isolated context and blocks until it acknowledges
// boot. Idempotent while initializing or ready: concurrent callers join the
// same boot wait. A boot that never completes within InitTimeout tears the
// context down.
func (b *Bridge) Initialize(ctx context.Context) error {
	b.mu.Lock()
	switch b.state {
	case StateTerminated:
		b.mu.Unlock()
		return ErrTerminated
	case StateReady:
		b.mu.Unlock()
		return nil
	case StateInitializing:
		ready := b.bootReady
		b.mu.Unlock()
		return b.awaitBoot(ctx, ready)
	}

	b.state = StateInitializing
	b.bootReady = make(chan struct{})
	ready := b.bootReady
	w := newWorker(b.toWorker, b.fromWorker, b.done, b.logger)
	b.vm = w.vm
	go w.run()
	go b.pump()
	b.mu.Unlock()

	b.logger.Debug("isolated context spawned")
	return b.awaitBoot(ctx, ready)
}

func (b *Bridge) awaitBoot(ctx context.Context, ready <-chan struct{}) error {
	timer := time.NewTimer(b.cfg.InitTimeout)
	defer timer.Stop()
	select {
	case <-ready:
		return nil
	case <-b.done:
		return ErrTerminated
	case <-timer.C:
		b.logger.Error("context never acknowledged boot", "timeout", b.cfg.InitTimeout)
		b.Terminate()
		return ErrInitTimeout
	case <-ctx.Done():
		b.Terminate()
		return ctx.Err()
	}
}

// LoadHandlers ships the handler source map into the context for compilation
// and installs the dispatcher that will serve its capability calls. Handlers
// that fail to compile become no-ops inside the context; the load itself
// still succeeds. Blocks until the context signals readiness.
func (b *Bridge) LoadHandlers(ctx context.Context, handlers map[string]string, dispatcher capability.Dispatcher) error {
	b.mu.Lock()
	switch {
	case b.state == StateTerminated:
		b.mu.Unlock()
		return ErrTerminated
	case b.state != StateReady:
		b.mu.Unlock()
		return ErrNotReady
	case b.loadWait != nil:
		b.mu.Unlock()
		return errors.New("bridge: handler load already in progress")
	}
	wait := make(chan struct{})
	b.loadWait = wait
	b.dispatcher = dispatcher
	b.mu.Unlock()

	src := make(map[string]string, len(handlers))
	for name, body := range handlers {
		src[name] = body
	}

	timer := time.NewTimer(b.cfg.InitTimeout)
	defer timer.Stop()

	select {
	case b.toWorker <- Message{Type: MsgInit, Handlers: src}:
	case <-b.done:
		return ErrTerminated
	case <-timer.C:
		b.abandonLoad(wait)
		return ErrInitTimeout
	case <-ctx.Done():
		b.abandonLoad(wait)
		return ctx.Err()
	}

	select {
	case <-wait:
		b.logger.Debug("handlers loaded", "count", len(src))
		return nil
	case <-b.done:
		return ErrTerminated
	case <-timer.C:
		b.abandonLoad(wait)
		return ErrInitTimeout
	case <-ctx.Done():
		b.abandonLoad(wait)
		return ctx.Err()
	}
}

// abandonLoad clears the load slot so a late ready cannot close a channel
// nobody watches anymore.
func (b *Bridge) abandonLoad(wait chan struct{}) {
	b.mu.Lock()
	if b.loadWait == wait {
		b.loadWait = nil
	}
	b.mu.Unlock()
}

// Run executes a loaded handler in the isolated context and returns its
// result. A handler that throws returns a *HandlerError and leaves the
// bridge usable. If the watchdog fires first the entire bridge is torn
// down and Run returns ErrRunTimeout; every other pending call fails with
// ErrTerminated.
func (b *Bridge) Run(ctx context.Context, name string, args map[string]any) (any, error) {
	b.mu.Lock()
	switch b.state {
	case StateTerminated:
		b.mu.Unlock()
		return nil, ErrTerminated
	case StateReady:
	default:
		b.mu.Unlock()
		return nil, ErrNotReady
	}
	b.nextID++
	id := b.nextID
	pr := &pendingRun{handler: name, ch: make(chan runOutcome, 1)}
	b.pending[id] = pr
	b.mu.Unlock()

	// The watchdog covers the send as well: a context wedged in an earlier
	// handler can stall the channel itself.
	timer := time.NewTimer(b.cfg.RunTimeout)
	defer timer.Stop()

	var event any
	if args != nil {
		event = capability.NormalizeMap(args)
	}

	select {
	case b.toWorker <- Message{Type: MsgRun, RequestID: id, Name: name, Args: event}:
	case <-b.done:
		b.removePending(id)
		return nil, ErrTerminated
	case <-timer.C:
		b.removePending(id)
		b.watchdogExpired(name)
		return nil, ErrRunTimeout
	case <-ctx.Done():
		b.removePending(id)
		return nil, ctx.Err()
	}

	select {
	case out := <-pr.ch:
		return out.result, out.err
	case <-timer.C:
		b.removePending(id)
		b.watchdogExpired(name)
		return nil, ErrRunTimeout
	case <-ctx.Done():
		b.removePending(id)
		return nil, ctx.Err()
	}
}

func (b *Bridge) watchdogExpired(handler string) {
	b.logger.Error("handler watchdog expired, terminating context",
		"handler", handler, "timeout", b.cfg.RunTimeout)
	b.Terminate()
}

func (b *Bridge) removePending(id int64) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// Terminate disposes the isolated context and rejects every pending request
// with ErrTerminated. Safe to call from any state and any goroutine; only
// the first call has any effect.
func (b *Bridge) Terminate() {
	b.killOnce.Do(func() {
		b.mu.Lock()
		b.state = StateTerminated
		pending := b.pending
		b.pending = make(map[int64]*pendingRun)
		vm := b.vm
		b.mu.Unlock()

		close(b.done)
		if vm != nil {
			vm.Interrupt("bridge terminated")
		}
		for _, pr := range pending {
			pr.ch <- runOutcome{err: ErrTerminated}
		}
		b.logger.Debug("bridge terminated", "rejected", len(pending))
	})
}

// pump services context→host traffic. Capability dispatches run in their own
// goroutines so a slow dispatcher can never stall result delivery.
func (b *Bridge) pump() {
	for {
		select {
		case msg := <-b.fromWorker:
			switch msg.Type {
			case MsgReady:
				b.signalReady()
			case MsgResult:
				b.settle(msg.ID, msg.Result, "")
			case MsgError:
				b.settle(msg.ID, nil, msg.Error)
			case MsgAPI:
				go b.dispatchCapability(msg)
			default:
				b.logger.Debug("ignoring unexpected message from context", "type", msg.Type)
			}
		case <-b.done:
			return
		}
	}
}

// signalReady routes a ready message to whichever wait is outstanding: the
// first one acknowledges boot, later ones acknowledge handler loads.
func (b *Bridge) signalReady() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.booted {
		b.booted = true
		if b.state == StateInitializing {
			b.state = StateReady
		}
		close(b.bootReady)
		return
	}
	if b.loadWait != nil {
		close(b.loadWait)
		b.loadWait = nil
		return
	}
	b.logger.Debug("unexpected ready signal")
}

// settle resolves one pending run request by id. Responses are matched
// purely by id, never by arrival order. Responses for unknown ids (already
// timed out, cancelled, or terminated) are dropped.
func (b *Bridge) settle(id int64, result any, errMsg string) {
	b.mu.Lock()
	pr, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()
	if !ok {
		b.logger.Debug("dropping response for unknown request", "id", id)
		return
	}
	if errMsg != "" {
		pr.ch <- runOutcome{err: &HandlerError{Handler: pr.handler, Message: errMsg}}
		return
	}
	pr.ch <- runOutcome{result: result}
}

// dispatchCapability serves one capability call from the context. Dispatcher
// failures (including panics) settle the context-side call with a structured
// {error} value; they are never thrown across the boundary.
func (b *Bridge) dispatchCapability(msg Message) {
	b.mu.Lock()
	d := b.dispatcher
	b.mu.Unlock()

	args, _ := msg.Args.([]any)
	var res any
	var err error
	if d == nil {
		err = errors.New("no capability dispatcher installed")
	} else {
		res, err = safeDispatch(d, msg.Name, args)
	}
	if err != nil {
		b.logger.Warn("capability call failed", "capability", msg.Name, "err", err)
	}

	reply := Message{Type: MsgAPIResponse, ID: msg.ID, Result: capability.Settle(res, err)}
	select {
	case b.toWorker <- reply:
	case <-b.done:
	}
}

// safeDispatch shields the pump from a panicking dispatcher.
func safeDispatch(d capability.Dispatcher, name string, args []any) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capability %s panicked: %v", name, r)
		}
	}()
	return d.Dispatch(name, args)
}
