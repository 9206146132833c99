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

// State is the recorder's recording state. The zero value is Stopped.
type State int

const (
	Stopped State = iota
	Recording
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	}
	return "unknown"
}
