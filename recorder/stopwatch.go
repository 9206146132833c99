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
	"time"

	"github.com/juju/ratelimit"
)

// realClock implements ratelimit.Clock in terms of standard time functions.
type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

var _ ratelimit.Clock = realClock{}

// stopwatch measures recording time, leaving out paused intervals.
type stopwatch struct {
	elapsed time.Duration
	since   time.Time
	running bool
}

func (s *stopwatch) start(now time.Time) {
	s.elapsed = 0
	s.since = now
	s.running = true
}

func (s *stopwatch) pause(now time.Time) {
	if s.running {
		s.elapsed += now.Sub(s.since)
		s.running = false
	}
}

func (s *stopwatch) resume(now time.Time) {
	if !s.running {
		s.since = now
		s.running = true
	}
}

func (s *stopwatch) read(now time.Time) time.Duration {
	if s.running {
		return s.elapsed + now.Sub(s.since)
	}
	return s.elapsed
}
