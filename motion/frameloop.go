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

package motion

import (
	"sync"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
)

func newFrame(cols, rows int) *cptvframe.Frame {
	pix := make([][]uint16, rows)
	for y := range pix {
		pix[y] = make([]uint16, cols)
	}
	return &cptvframe.Frame{Pix: pix}
}

func NewFrameLoop(size, cols, rows int) *FrameLoop {
	frames := make([]*cptvframe.Frame, size)
	for i := range frames {
		frames[i] = newFrame(cols, rows)
	}
	return &FrameLoop{
		size:   size,
		frames: frames,
	}
}

const noOldestSet = -1

// FrameLoop holds the last n processed frames of the detector. All frames
// returned by a FrameLoop are eventually overwritten.
type FrameLoop struct {
	mu           sync.Mutex
	size         int
	currentIndex int
	frames       []*cptvframe.Frame
	oldest       int
}

func (fl *FrameLoop) nextIndexAfter(index int) int {
	return (index + 1) % fl.size
}

// Move advances to the next frame and returns it.
func (fl *FrameLoop) Move() *cptvframe.Frame {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	fl.currentIndex = fl.nextIndexAfter(fl.currentIndex)
	if fl.currentIndex == fl.oldest {
		fl.oldest = noOldestSet
	}
	return fl.frames[fl.currentIndex]
}

func (fl *FrameLoop) Current() *cptvframe.Frame {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.frames[fl.currentIndex]
}

// Oldest returns the frame marked by SetAsOldest, or otherwise the next
// frame to be overwritten.
func (fl *FrameLoop) Oldest() *cptvframe.Frame {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.oldest != noOldestSet {
		return fl.frames[fl.oldest]
	}
	return fl.frames[fl.nextIndexAfter(fl.currentIndex)]
}

// SetAsOldest marks the current frame so Oldest never returns a frame
// written before it.
func (fl *FrameLoop) SetAsOldest() *cptvframe.Frame {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.oldest = fl.currentIndex
	return fl.frames[fl.currentIndex]
}
