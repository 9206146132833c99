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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/sequence"
)

func rawFrame(n byte) *sequence.Frame {
	return &sequence.Frame{Raw: []byte{n}}
}

func TestCircularBufferFIFO(t *testing.T) {
	b := NewCircularBuffer(3)
	for i := byte(0); i < 3; i++ {
		assert.Equal(t, Accepted, b.Push(rawFrame(i)))
	}
	for i := byte(0); i < 3; i++ {
		f, ok := b.TryPop()
		require.True(t, ok)
		assert.Equal(t, []byte{i}, f.Raw)
	}
	_, ok := b.TryPop()
	assert.False(t, ok)
}

func TestCircularBufferDropsWhenFull(t *testing.T) {
	b := NewCircularBuffer(2)
	assert.Equal(t, Accepted, b.Push(rawFrame(1)))
	assert.Equal(t, Accepted, b.Push(rawFrame(2)))
	assert.Equal(t, Dropped, b.Push(rawFrame(3)))
	assert.Equal(t, 2, b.Len())

	f, _ := b.TryPop()
	assert.Equal(t, []byte{1}, f.Raw)
	assert.Equal(t, Accepted, b.Push(rawFrame(4)))

	f, _ = b.TryPop()
	assert.Equal(t, []byte{2}, f.Raw)
	f, _ = b.TryPop()
	assert.Equal(t, []byte{4}, f.Raw)
}

func TestCircularBufferWraps(t *testing.T) {
	b := NewCircularBuffer(3)
	next := byte(0)
	for round := 0; round < 5; round++ {
		b.Push(rawFrame(next))
		b.Push(rawFrame(next + 1))
		next += 2
		for i := byte(2); i > 0; i-- {
			f, ok := b.TryPop()
			require.True(t, ok)
			assert.Equal(t, []byte{next - i}, f.Raw)
		}
	}
}

func TestCircularBufferCloseDrains(t *testing.T) {
	b := NewCircularBuffer(4)
	b.Push(rawFrame(1))
	b.Push(rawFrame(2))
	b.Close()
	b.Close()

	assert.Equal(t, Dropped, b.Push(rawFrame(3)))

	ctx := context.Background()
	f, ok := b.Pop(ctx)
	require.True(t, ok)
	assert.Equal(t, []byte{1}, f.Raw)
	f, ok = b.Pop(ctx)
	require.True(t, ok)
	assert.Equal(t, []byte{2}, f.Raw)
	_, ok = b.Pop(ctx)
	assert.False(t, ok)
}

func TestCircularBufferPopWaitsForPush(t *testing.T) {
	b := NewCircularBuffer(4)
	got := make(chan *sequence.Frame)
	go func() {
		f, _ := b.Pop(context.Background())
		got <- f
	}()

	time.Sleep(10 * time.Millisecond)
	b.Push(rawFrame(7))

	select {
	case f := <-got:
		assert.Equal(t, []byte{7}, f.Raw)
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not return after Push")
	}
}

func TestCircularBufferPopCancelled(t *testing.T) {
	b := NewCircularBuffer(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := b.Pop(ctx)
	assert.False(t, ok)
}

func TestCircularBufferResizeKeepsQueuedFrames(t *testing.T) {
	b := NewCircularBuffer(4)
	for i := byte(0); i < 4; i++ {
		b.Push(rawFrame(i))
	}
	b.TryPop()

	b.Resize(2)
	assert.Equal(t, 2, b.Cap())
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, Dropped, b.Push(rawFrame(9)))

	for i := byte(1); i < 4; i++ {
		f, ok := b.TryPop()
		require.True(t, ok)
		assert.Equal(t, []byte{i}, f.Raw)
	}
	assert.Equal(t, Accepted, b.Push(rawFrame(9)))
	assert.Equal(t, Accepted, b.Push(rawFrame(10)))
	assert.Equal(t, Dropped, b.Push(rawFrame(11)))

	b.Resize(5)
	assert.Equal(t, Accepted, b.Push(rawFrame(11)))
	assert.Equal(t, 3, b.Len())
}

func TestCircularBufferDiscard(t *testing.T) {
	b := NewCircularBuffer(4)
	b.Push(rawFrame(1))
	b.Push(rawFrame(2))
	assert.Equal(t, 2, b.Discard())
	assert.Equal(t, 0, b.Len())
	_, ok := b.TryPop()
	assert.False(t, ok)
}
