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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/sequence"
)

func historyBytes(frames []*sequence.Frame) []byte {
	out := make([]byte, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Raw[0])
	}
	return out
}

func TestPreRecordBufferKeepsNewest(t *testing.T) {
	pb := NewPreRecordBuffer(3)
	assert.Empty(t, pb.GetHistory())

	pb.Push(rawFrame(1))
	pb.Push(rawFrame(2))
	assert.Equal(t, []byte{1, 2}, historyBytes(pb.GetHistory()))

	pb.Push(rawFrame(3))
	pb.Push(rawFrame(4))
	pb.Push(rawFrame(5))
	assert.Equal(t, []byte{3, 4, 5}, historyBytes(pb.GetHistory()))
	assert.Equal(t, 3, pb.Len())
}

func TestPreRecordBufferResize(t *testing.T) {
	pb := NewPreRecordBuffer(4)
	for i := byte(1); i <= 4; i++ {
		pb.Push(rawFrame(i))
	}

	pb.Resize(2)
	assert.Equal(t, 2, pb.Cap())
	assert.Equal(t, []byte{3, 4}, historyBytes(pb.GetHistory()))

	pb.Push(rawFrame(5))
	assert.Equal(t, []byte{4, 5}, historyBytes(pb.GetHistory()))

	pb.Resize(4)
	pb.Push(rawFrame(6))
	assert.Equal(t, []byte{4, 5, 6}, historyBytes(pb.GetHistory()))

	pb.Resize(0)
	assert.Equal(t, 4, pb.Cap())
}

func TestPreRecordBufferDrainInto(t *testing.T) {
	pb := NewPreRecordBuffer(5)
	for i := byte(1); i <= 5; i++ {
		pb.Push(rawFrame(i))
	}

	cb := NewCircularBuffer(3)
	moved, dropped := pb.DrainInto(cb)
	assert.Equal(t, 3, moved)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 0, pb.Len())

	for i := byte(1); i <= 3; i++ {
		f, ok := cb.TryPop()
		assert.True(t, ok)
		assert.Equal(t, []byte{i}, f.Raw)
	}
}

func TestPreRecordBufferDrainsByCaptureTime(t *testing.T) {
	base := time.Date(2020, 3, 1, 21, 0, 0, 0, time.UTC)
	pb := NewPreRecordBuffer(4)
	for _, n := range []byte{3, 1, 4, 2} {
		f := rawFrame(n)
		f.Timestamp = base.Add(time.Duration(n) * time.Second)
		pb.Push(f)
	}

	cb := NewCircularBuffer(4)
	moved, dropped := pb.DrainInto(cb)
	assert.Equal(t, 4, moved)
	assert.Equal(t, 0, dropped)
	for i := byte(1); i <= 4; i++ {
		f, ok := cb.TryPop()
		assert.True(t, ok)
		assert.Equal(t, []byte{i}, f.Raw)
	}
}

func TestPreRecordBufferClear(t *testing.T) {
	pb := NewPreRecordBuffer(2)
	pb.Push(rawFrame(1))
	pb.Clear()
	assert.Equal(t, 0, pb.Len())
	pb.Push(rawFrame(2))
	assert.Equal(t, []byte{2}, historyBytes(pb.GetHistory()))
}
