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

// Package throttle limits how much motion-triggered footage is recorded so
// a busy scene cannot fill the disk. The allowance is a token bucket
// holding a number of frames that refills over time.
package throttle

import (
	"log"
	"time"

	"github.com/juju/ratelimit"
)

// Listener is told whenever a recording is refused or cut short.
type Listener interface {
	WhenThrottled()
}

type nullListener struct{}

func (nullListener) WhenThrottled() {}

type Throttler struct {
	bucket             *ratelimit.Bucket
	listener           Listener
	minRecordingLength int64
	throttled          bool
}

func NewThrottler(conf *Config, fps, minSeconds int, listener Listener) *Throttler {
	return NewThrottlerWithClock(conf, fps, minSeconds, listener, realClock{})
}

// NewThrottlerWithClock returns a Throttler that allows conf.BucketSize
// of footage at most, and refills enough for one minimum length recording
// every conf.MinRefill.
func NewThrottlerWithClock(
	conf *Config,
	fps, minSeconds int,
	listener Listener,
	clock ratelimit.Clock,
) *Throttler {
	bucketFrames := int64(conf.BucketSize.Seconds()) * int64(fps)
	minFrames := int64(minSeconds * fps)
	refillRate := float64(minFrames) / conf.MinRefill.Seconds()

	if minFrames > bucketFrames {
		log.Println("minimum recording length is greater than throttle bucket - recording will not be possible!")
	}
	if listener == nil {
		listener = nullListener{}
	}

	return &Throttler{
		bucket:             ratelimit.NewBucketWithRateAndClock(refillRate, bucketFrames, clock),
		listener:           listener,
		minRecordingLength: minFrames,
	}
}

// CanStart reports whether there is enough allowance for a minimum length
// recording.
func (t *Throttler) CanStart() bool {
	if t.bucket.Available() >= t.minRecordingLength {
		t.throttled = false
		return true
	}
	if !t.throttled {
		log.Print("recording not started due to throttling")
		t.throttled = true
		t.listener.WhenThrottled()
	}
	return false
}

// TakeFrame uses up the allowance for one recorded frame. It returns false
// once the bucket is empty and the recording should stop.
func (t *Throttler) TakeFrame() bool {
	if t.bucket.TakeAvailable(1) > 0 {
		return true
	}
	log.Print("recording throttled")
	t.throttled = true
	t.listener.WhenThrottled()
	return false
}

// Available returns the number of frames that can currently be recorded.
func (t *Throttler) Available() int64 {
	return t.bucket.Available()
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
