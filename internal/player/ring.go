// ABOUTME: Fixed-capacity byte ring between the network producer and the audio callback
// ABOUTME: Frame-aligned pops with silence on underrun and one-shot drain signaling
package player

import (
	"context"
	"errors"
	"sync"
)

// ErrRingClosed is returned for pushes after Close.
var ErrRingClosed = errors.New("playback ring closed")

// Ring is the shared byte queue between exactly two parties: the
// network receive path pushing at the tail and the audio callback
// popping whole frames at the head. Capacity is fixed; a full ring
// makes the producer wait rather than grow or drop.
type Ring struct {
	mu    sync.Mutex
	space *sync.Cond

	buf        []byte
	head       int
	count      int
	frameBytes int

	// armed is set by a push and cleared when the consumer empties the
	// queue, firing drained once per non-empty-to-empty cycle.
	armed   bool
	drained chan struct{}
	closed  bool
}

// NewRing creates a ring holding capacity bytes, rounded up to whole
// frames of frameBytes.
func NewRing(capacity, frameBytes int) *Ring {
	if capacity < frameBytes {
		capacity = frameBytes
	}
	if rem := capacity % frameBytes; rem != 0 {
		capacity += frameBytes - rem
	}
	r := &Ring{
		buf:        make([]byte, capacity),
		frameBytes: frameBytes,
		drained:    make(chan struct{}, 1),
	}
	r.space = sync.NewCond(&r.mu)
	return r
}

// Push appends data to the tail, waiting for the consumer to free
// space when the ring is full. Bytes are never dropped.
func (r *Ring) Push(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(data) > 0 {
		if r.closed {
			return ErrRingClosed
		}
		free := len(r.buf) - r.count
		if free == 0 {
			r.space.Wait()
			continue
		}
		n := len(data)
		if n > free {
			n = free
		}
		tail := (r.head + r.count) % len(r.buf)
		first := copy(r.buf[tail:], data[:n])
		copy(r.buf, data[first:n])
		r.count += n
		if !r.armed {
			r.armed = true
			// A token left over from the previous cycle is stale now
			// that new audio is queued; a waiter must not consume it.
			select {
			case <-r.drained:
			default:
			}
		}
		data = data[n:]
	}
	return nil
}

// ReadFrame fills out on the audio thread: for each whole frame it pops
// queued bytes when available and writes silence otherwise. It never
// waits for the producer.
func (r *Ring) ReadFrame(out []byte) {
	r.mu.Lock()

	filled := 0
	for filled+r.frameBytes <= len(out) {
		if r.count >= r.frameBytes {
			r.pop(out[filled : filled+r.frameBytes])
		} else {
			// Underrun: the zero byte pattern is silence for both the
			// integer and IEEE float representations.
			zero(out[filled : filled+r.frameBytes])
		}
		filled += r.frameBytes
	}
	zero(out[filled:])

	if r.count == 0 && r.armed {
		r.armed = false
		select {
		case r.drained <- struct{}{}:
		default:
		}
	}

	r.space.Broadcast()
	r.mu.Unlock()
}

func (r *Ring) pop(dst []byte) {
	first := copy(dst, r.buf[r.head:min(r.head+len(dst), len(r.buf))])
	copy(dst[first:], r.buf)
	r.head = (r.head + len(dst)) % len(r.buf)
	r.count -= len(dst)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Len returns the number of queued bytes.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// WaitDrained blocks until everything pushed so far has been consumed.
// It returns immediately if nothing is pending. A token alone is not
// trusted: emptiness is re-checked under the lock after each receive,
// so a token from an earlier cycle never reports queued audio as
// played.
func (r *Ring) WaitDrained(ctx context.Context) error {
	for {
		r.mu.Lock()
		pending := r.count > 0
		r.mu.Unlock()
		if !pending {
			// Consume a signal left over from an already-completed
			// cycle so the next wait does not return spuriously.
			select {
			case <-r.drained:
			default:
			}
			return nil
		}
		select {
		case <-r.drained:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Drained exposes the one-shot completion signal.
func (r *Ring) Drained() <-chan struct{} {
	return r.drained
}

// Close wakes any waiting producer and rejects further pushes.
func (r *Ring) Close() {
	r.mu.Lock()
	r.closed = true
	r.space.Broadcast()
	r.mu.Unlock()
}
