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
)

func TestStopwatchExcludesPauses(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	var s stopwatch
	assert.Zero(t, s.read(t0))

	s.start(t0)
	assert.Equal(t, time.Second, s.read(t0.Add(time.Second)))

	s.pause(t0.Add(2 * time.Second))
	s.pause(t0.Add(3 * time.Second))
	assert.Equal(t, 2*time.Second, s.read(t0.Add(10*time.Second)))

	s.resume(t0.Add(10 * time.Second))
	s.resume(t0.Add(11 * time.Second))
	assert.Equal(t, 4*time.Second, s.read(t0.Add(12*time.Second)))

	s.start(t0.Add(20 * time.Second))
	assert.Zero(t, s.read(t0.Add(20*time.Second)))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "recording", Recording.String())
	assert.Equal(t, "paused", Paused.String())
	assert.Equal(t, "unknown", State(42).String())
}
