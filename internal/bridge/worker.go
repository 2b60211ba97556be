package bridge

import (
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/blockstage/internal/capability"
	"github.com/vovakirdan/blockstage/internal/script"
)

// worker is the context side of the bridge. It owns the script VM and is the
// only goroutine that touches it; the host reaches the worker exclusively
// through the message channels. The one cross-goroutine exception is the
// engine interrupt used by Terminate.
type worker struct {
	vm     *script.VM
	inbox  <-chan Message // host → context
	outbox chan<- Message // context → host
	done   <-chan struct{}
	logger *log.Logger

	nextID int64 // correlation ids for outgoing api calls

	// parked holds api results consumed from the inbox on behalf of a
	// suspended outer call while an inner handler was executing.
	parked map[int64]any
}

func newWorker(inbox <-chan Message, outbox chan<- Message, done <-chan struct{}, logger *log.Logger) *worker {
	w := &worker{
		inbox:  inbox,
		outbox: outbox,
		done:   done,
		logger: logger,
		parked: make(map[int64]any),
	}
	w.vm = script.New(w.capabilityCall)
	return w
}

// run is the worker main loop. The first message out is the boot
// acknowledgement the host's initialize() waits for.
func (w *worker) run() {
	if !w.send(Message{Type: MsgReady}) {
		return
	}
	for {
		select {
		case msg := <-w.inbox:
			w.handle(msg)
		case <-w.done:
			return
		}
	}
}

func (w *worker) handle(msg Message) {
	switch msg.Type {
	case MsgInit:
		for _, cerr := range w.vm.Load(msg.Handlers) {
			w.logger.Warn("handler rejected", "handler", cerr.Handler, "err", cerr.Err)
		}
		w.send(Message{Type: MsgReady})
	case MsgRun:
		w.execute(msg)
	case MsgAPIResponse:
		// A response nobody waits for belongs to a call abandoned during
		// teardown. Drop it.
		w.logger.Debug("dropping unsolicited api response", "id", msg.ID)
	default:
		w.logger.Debug("ignoring unexpected message", "type", msg.Type)
	}
}

// execute runs one handler and reports its outcome. Failed handlers produce
// an error message; they never take the worker down.
func (w *worker) execute(msg Message) {
	event, _ := msg.Args.(map[string]any)
	res, err := w.vm.Invoke(msg.Name, event)
	if err != nil {
		w.send(Message{Type: MsgError, ID: msg.RequestID, Error: err.Error()})
		return
	}
	w.send(Message{Type: MsgResult, ID: msg.RequestID, Result: res})
}

// capabilityCall crosses the boundary for one capability invocation and
// suspends the calling handler until the matching apiResponse arrives.
// While suspended, the worker keeps servicing the inbox the way an event
// loop would: further run requests execute reentrantly, and responses for
// other suspended calls are parked until control unwinds to their waiter.
func (w *worker) capabilityCall(name string, args []any) (any, error) {
	w.nextID++
	id := w.nextID
	if !w.send(Message{Type: MsgAPI, ID: id, Name: name, Args: capability.NormalizeSlice(args)}) {
		return nil, ErrTerminated
	}
	for {
		if res, ok := w.parked[id]; ok {
			delete(w.parked, id)
			return res, nil
		}
		select {
		case msg := <-w.inbox:
			if msg.Type == MsgAPIResponse {
				if msg.ID == id {
					return msg.Result, nil
				}
				w.parked[msg.ID] = msg.Result
				continue
			}
			w.handle(msg)
		case <-w.done:
			return nil, ErrTerminated
		}
	}
}

// send delivers a message to the host unless the bridge is already torn down.
func (w *worker) send(msg Message) bool {
	select {
	case w.outbox <- msg:
		return true
	case <-w.done:
		return false
	}
}
