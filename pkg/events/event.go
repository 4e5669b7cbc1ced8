package events

// EventType classifies output so front ends can route it.
type EventType int

const (
	EvText        EventType = iota // Raw text (universal fallback)
	EvPrint                        // print command output
	EvEcho                         // echo command output
	EvMessage                      // status line from a command ("3 bonds created")
	EvWrite                        // write output sent to the print channel
	EvMeasure                      // measurement created or deleted
	EvError                        // statement failure
	EvSuspend                      // script suspended by delay
	EvModelChange                  // structural edit bumped the model generation
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EvText:
		return "text"
	case EvPrint:
		return "print"
	case EvEcho:
		return "echo"
	case EvMessage:
		return "message"
	case EvWrite:
		return "write"
	case EvMeasure:
		return "measure"
	case EvError:
		return "error"
	case EvSuspend:
		return "suspend"
	case EvModelChange:
		return "model_change"
	default:
		return "unknown"
	}
}

// Event is one piece of script output flowing through the bus.
// Terminal front ends print Text; structured consumers read Data.
type Event struct {
	Type    EventType
	Session string         // Originating session ("" for broadcast)
	Line    int            // Script line that produced the event
	Text    string         // Pre-formatted text
	Data    map[string]any // Structured payload (file name, byte count, ids)
}
