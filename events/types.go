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

package events

import "time"

const (
	TypeStateChanged uint32 = iota + 1
	TypeRecordingFinalized
	TypeRecordingFailed
	TypeFramesLost
)

// Event is implemented by everything published on a Bus.
type Event interface {
	Type() uint32
}

// StateChanged is published on every recorder state transition.
type StateChanged struct {
	Path string
	From string
	To   string
	At   time.Time
}

func (e StateChanged) Type() uint32 { return TypeStateChanged }

// RecordingFinalized is published once the worker has drained the buffer and
// closed the sequence file.
type RecordingFinalized struct {
	Path    string
	Frames  uint64
	Lost    uint64
	Elapsed time.Duration
	At      time.Time
}

func (e RecordingFinalized) Type() uint32 { return TypeRecordingFinalized }

// RecordingFailed is published when a write error aborts a recording.
type RecordingFailed struct {
	Path      string
	Frames    uint64
	Discarded int
	Err       error
	At        time.Time
}

func (e RecordingFailed) Type() uint32 { return TypeRecordingFailed }

// FramesLost is published when a frame is dropped because the recording
// buffer was full. Total is the lost count for the current recording.
type FramesLost struct {
	Path  string
	Total uint64
	At    time.Time
}

func (e FramesLost) Type() uint32 { return TypeFramesLost }
