package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// PendingFrame tracks one acknowledged send awaiting its ack.
type PendingFrame struct {
	Buffer        uint8
	Seq           uint8
	Command       string
	Attempts      int
	QueuedAt      time.Time
	LastAttemptAt time.Time
	LastError     string
}

type ackKey struct {
	buffer uint8
	seq    uint8
}

// AckOutbox stores pending frames by (buffer, seq).
type AckOutbox struct {
	mu      sync.RWMutex
	items   map[ackKey]PendingFrame
	waiters map[ackKey]chan struct{}
}

func NewAckOutbox() *AckOutbox {
	return &AckOutbox{
		items:   make(map[ackKey]PendingFrame),
		waiters: make(map[ackKey]chan struct{}),
	}
}

// ErrSeqInFlight reports a (buffer, seq) pair still waiting for its ack.
// Sequence numbers wrap at 256, so a busy buffer can come back to it.
var ErrSeqInFlight = errors.New("session: sequence number still awaiting ack")

// Add stores item and returns a channel closed when it is acknowledged. A
// key that is still pending is refused so each waiter owns its entry.
func (o *AckOutbox) Add(item PendingFrame) (<-chan struct{}, error) {
	key := ackKey{item.Buffer, item.Seq}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, pending := o.items[key]; pending {
		return nil, fmt.Errorf("%w: buffer=%d seq=%d", ErrSeqInFlight, item.Buffer, item.Seq)
	}
	o.items[key] = item
	ch := make(chan struct{})
	o.waiters[key] = ch
	return ch, nil
}

func (o *AckOutbox) MarkAttempt(buffer, seq uint8, at time.Time, lastErr string) (PendingFrame, bool) {
	key := ackKey{buffer, seq}
	o.mu.Lock()
	defer o.mu.Unlock()
	item, ok := o.items[key]
	if !ok {
		return PendingFrame{}, false
	}
	item.Attempts++
	item.LastAttemptAt = at
	item.LastError = lastErr
	o.items[key] = item
	return item, true
}

// Ack removes the entry and wakes its waiter. It reports whether anything
// was pending.
func (o *AckOutbox) Ack(buffer, seq uint8) bool {
	key := ackKey{buffer, seq}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.items[key]; !ok {
		return false
	}
	delete(o.items, key)
	if ch, ok := o.waiters[key]; ok {
		close(ch)
		delete(o.waiters, key)
	}
	return true
}

// Remove drops the entry without waking its waiter.
func (o *AckOutbox) Remove(buffer, seq uint8) {
	key := ackKey{buffer, seq}
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.items, key)
	delete(o.waiters, key)
}

func (o *AckOutbox) Get(buffer, seq uint8) (PendingFrame, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	item, ok := o.items[ackKey{buffer, seq}]
	return item, ok
}

func (o *AckOutbox) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.items)
}

func (o *AckOutbox) List() []PendingFrame {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]PendingFrame, 0, len(o.items))
	for _, item := range o.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Buffer != out[j].Buffer {
			return out[i].Buffer < out[j].Buffer
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}
