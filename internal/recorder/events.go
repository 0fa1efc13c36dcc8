// Package recorder is the central state machine of spec.md §4.5: one
// Recorder manages every display and audio endpoint, buffering captured
// frames/samples, rotating chunks, and writing batched metadata into
// internal/storage.
package recorder

import "sync"

// ChunkKind distinguishes the two chunk-finalized event sources. Neither
// original_source/src/memoire-core/src/recorder.rs's ChunkFinalizedEvent
// nor its orchestrator.rs actually tag events this way (both OCR and audio
// indexers subscribe to the same untyped broadcast there); a Kind field is
// the one Go-native addition this port makes, so a single fan-out can feed
// distinct OCR and audio indexer subscribers without each having to guess
// from the file extension. See DESIGN.md's Open Question decisions.
type ChunkKind int

const (
	ChunkVideo ChunkKind = iota
	ChunkAudio
)

// ChunkFinalizedEvent is broadcast once a chunk file is complete and its
// metadata durably committed, signaling an indexer may safely read it.
type ChunkFinalizedEvent struct {
	Kind       ChunkKind
	ChunkID    int64
	FilePath   string
	DeviceName string
}

// eventBus is an in-process multi-subscriber fan-out, the shape of
// tui/internal/daemon/protocol.go's flat tagged Event type delivered over a
// buffered Go channel per subscriber rather than a socket, since spec §5
// describes the recorder and indexers as sharing only storage and the
// running flag — no transport is warranted.
type eventBus struct {
	mu   sync.Mutex
	subs []chan ChunkFinalizedEvent
}

// eventBusCapacity is generous enough that a slow-starting indexer does not
// cause the recorder to block on a send.
const eventBusCapacity = 100

func newEventBus() *eventBus {
	return &eventBus{}
}

// Subscribe returns a channel that receives every future event. Never
// closed by the bus; callers drop it when done.
func (b *eventBus) Subscribe() <-chan ChunkFinalizedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan ChunkFinalizedEvent, eventBusCapacity)
	b.subs = append(b.subs, ch)
	return ch
}

// Publish fans an event out to every subscriber, dropping it for any
// subscriber whose buffer is full rather than blocking the recorder.
func (b *eventBus) Publish(ev ChunkFinalizedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
