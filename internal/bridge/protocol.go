package bridge

// MsgType identifies a protocol message.
type MsgType string

// Protocol message types, both directions.
const (
	MsgInit        MsgType = "init"        // host→context: compile handler bodies
	MsgReady       MsgType = "ready"       // context→host: context usable
	MsgRun         MsgType = "run"         // host→context: execute named handler
	MsgResult      MsgType = "result"      // context→host: handler completed
	MsgError       MsgType = "error"       // context→host: handler threw
	MsgAPI         MsgType = "api"         // context→host: capability call request
	MsgAPIResponse MsgType = "apiResponse" // host→context: capability call settled
)

// Message is the single envelope exchanged with the isolated context.
// Field use per type:
//
//	init:        Handlers
//	ready:       (no fields)
//	run:         RequestID, Name, Args (event object)
//	result:      ID, Result
//	error:       ID, Error
//	api:         ID, Name, Args (positional call arguments)
//	apiResponse: ID, Result
//
// Payloads are restricted to JSON-native shapes and are normalized on send,
// so neither side can retain references into the other's state.
type Message struct {
	Type      MsgType           `json:"type"`
	RequestID int64             `json:"requestId,omitempty"`
	ID        int64             `json:"id,omitempty"`
	Name      string            `json:"name,omitempty"`
	Handlers  map[string]string `json:"handlers,omitempty"`
	Args      any               `json:"args,omitempty"`
	Result    any               `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
}
