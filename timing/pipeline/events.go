package pipeline

// EventKind classifies an observable pipeline event.
type EventKind uint8

// Event kinds.
const (
	EventRetire EventKind = iota
	EventFlush
	EventDataStall
	EventMemStall
	EventFetchStall
	EventFetchCancel
	EventHalt
)

var eventKindNames = []string{
	"retire", "flush", "data_stall", "mem_stall", "fetch_stall", "fetch_cancel", "halt",
}

func (k EventKind) String() string {
	if int(k) >= len(eventKindNames) {
		return "unknown"
	}
	return eventKindNames[k]
}

// Event is one pipeline event, stamped with the cycle it happened in.
type Event struct {
	Cycle uint64
	Kind  EventKind
	PC    uint64
	Word  uint32
}

// Recorder receives pipeline events.
type Recorder interface {
	Record(e Event)
}

// probe is shared by the stages to count and report what they do.
type probe struct {
	stats    *Statistics
	recorder Recorder
}

func (p *probe) record(kind EventKind, pc uint64, word uint32) {
	if p.recorder == nil {
		return
	}

	p.recorder.Record(Event{
		Cycle: p.stats.Cycles,
		Kind:  kind,
		PC:    pc,
		Word:  word,
	})
}
