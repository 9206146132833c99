// thermal-sequence-recorder - buffered recording of thermal frame sequences
//  Copyright (C) 2018, The Cacophony Project
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
	"sort"
	"sync"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/sequence"
)

func NewPreRecordBuffer(size int) *PreRecordBuffer {
	if size <= 0 {
		size = 1
	}
	return &PreRecordBuffer{
		size:   size,
		frames: make([]*sequence.Frame, size),
	}
}

// PreRecordBuffer keeps the most recent frames seen while stopped so a
// recording can begin with the moments before it was started. When full,
// the oldest frame is overwritten.
type PreRecordBuffer struct {
	mu           sync.Mutex
	size         int
	currentIndex int
	count        int
	frames       []*sequence.Frame
}

func (pb *PreRecordBuffer) nextIndexAfter(index int) int {
	return (index + 1) % pb.size
}

func (pb *PreRecordBuffer) oldestIndex() int {
	return (pb.currentIndex - pb.count + pb.size) % pb.size
}

// Push stores f as the newest frame, evicting the oldest when full.
func (pb *PreRecordBuffer) Push(f *sequence.Frame) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	pb.frames[pb.currentIndex] = f
	pb.currentIndex = pb.nextIndexAfter(pb.currentIndex)
	if pb.count < pb.size {
		pb.count++
	}
}

// GetHistory returns the buffered frames, oldest first.
func (pb *PreRecordBuffer) GetHistory() []*sequence.Frame {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.history()
}

func (pb *PreRecordBuffer) history() []*sequence.Frame {
	ordered := make([]*sequence.Frame, 0, pb.count)
	i := pb.oldestIndex()
	for n := 0; n < pb.count; n++ {
		ordered = append(ordered, pb.frames[i])
		i = pb.nextIndexAfter(i)
	}
	return ordered
}

// Resize changes the capacity, keeping the newest frames that fit.
func (pb *PreRecordBuffer) Resize(size int) {
	if size <= 0 {
		return
	}
	pb.mu.Lock()
	defer pb.mu.Unlock()

	history := pb.history()
	if len(history) > size {
		history = history[len(history)-size:]
	}
	pb.size = size
	pb.frames = make([]*sequence.Frame, size)
	copy(pb.frames, history)
	pb.count = len(history)
	pb.currentIndex = pb.count % size
}

// DrainInto moves every buffered frame into cb in capture timestamp order,
// leaving this buffer empty. Frames with equal timestamps keep the order
// they were pushed in. It returns how many frames cb accepted and refused.
func (pb *PreRecordBuffer) DrainInto(cb *CircularBuffer) (moved, dropped int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	history := pb.history()
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.Before(history[j].Timestamp)
	})
	for _, f := range history {
		if cb.Push(f) == Accepted {
			moved++
		} else {
			dropped++
		}
	}
	pb.clear()
	return moved, dropped
}

func (pb *PreRecordBuffer) Clear() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.clear()
}

func (pb *PreRecordBuffer) clear() {
	for i := range pb.frames {
		pb.frames[i] = nil
	}
	pb.count = 0
	pb.currentIndex = 0
}

func (pb *PreRecordBuffer) Len() int {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.count
}

func (pb *PreRecordBuffer) Cap() int {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.size
}
