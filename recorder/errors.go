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
	"errors"
	"fmt"
)

var (
	ErrAlreadyRecording = errors.New("recorder is already recording")
	ErrInvalidCapacity  = errors.New("buffer capacity must be greater than zero")
	ErrInvalidInterval  = errors.New("frame interval must not be negative")
)

// WriteError reports a failure that aborted a recording. Frame is the
// number of frames written before the failure.
type WriteError struct {
	Path  string
	Frame uint64
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("recording %s aborted after %d frames: %v", e.Path, e.Frame, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
