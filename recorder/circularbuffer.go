// thermal-sequence-recorder - buffered recording of thermal frame sequences
//  Copyright (C) 2020, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package recorder

import (
	"context"
	"sync"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/sequence"
)

type PushResult int

const (
	Accepted PushResult = iota
	Dropped
)

// CircularBuffer is the bounded FIFO between frame producers and the
// recording worker. Push never blocks; when the buffer is full the new
// frame is refused and the caller counts it as lost.
type CircularBuffer struct {
	mu       sync.Mutex
	frames   []*sequence.Frame
	head     int
	count    int
	capacity int
	signal   chan struct{}
	closed   chan struct{}
	once     sync.Once
}

func NewCircularBuffer(capacity int) *CircularBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &CircularBuffer{
		frames:   make([]*sequence.Frame, capacity),
		capacity: capacity,
		signal:   make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
}

func (b *CircularBuffer) Push(f *sequence.Frame) PushResult {
	b.mu.Lock()
	if b.count >= b.capacity || b.isClosed() {
		b.mu.Unlock()
		return Dropped
	}
	b.frames[(b.head+b.count)%len(b.frames)] = f
	b.count++
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
	return Accepted
}

// TryPop removes the oldest frame without waiting.
func (b *CircularBuffer) TryPop() (*sequence.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil, false
	}
	f := b.frames[b.head]
	b.frames[b.head] = nil
	b.head = (b.head + 1) % len(b.frames)
	b.count--
	return f, true
}

// Pop removes the oldest frame, waiting for one to arrive. It reports false
// once the buffer is closed and empty, or when ctx is done.
func (b *CircularBuffer) Pop(ctx context.Context) (*sequence.Frame, bool) {
	for {
		if f, ok := b.TryPop(); ok {
			return f, true
		}
		select {
		case <-b.signal:
		case <-b.closed:
			return b.TryPop()
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Close stops further pushes. Frames already queued can still be popped.
func (b *CircularBuffer) Close() {
	b.once.Do(func() {
		close(b.closed)
	})
}

func (b *CircularBuffer) isClosed() bool {
	select {
	case <-b.closed:
		return true
	default:
		return false
	}
}

// Resize changes the capacity. Queued frames are never discarded; if the
// buffer holds more than the new capacity, pushes are refused until the
// worker has drained below it.
func (b *CircularBuffer) Resize(capacity int) {
	if capacity <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	size := capacity
	if b.count > size {
		size = b.count
	}
	frames := make([]*sequence.Frame, size)
	for i := 0; i < b.count; i++ {
		frames[i] = b.frames[(b.head+i)%len(b.frames)]
	}
	b.frames = frames
	b.head = 0
	b.capacity = capacity
}

// Discard empties the buffer, returning how many frames were dropped.
func (b *CircularBuffer) Discard() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.count
	for i := range b.frames {
		b.frames[i] = nil
	}
	b.head = 0
	b.count = 0
	return n
}

func (b *CircularBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *CircularBuffer) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}
