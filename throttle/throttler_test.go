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

package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const fps = 10

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Sleep(d time.Duration) {
	c.now = c.now.Add(d)
}

type countingListener struct {
	calls int
}

func (l *countingListener) WhenThrottled() {
	l.calls++
}

func newTestThrottler(listener Listener) (*Throttler, *testClock) {
	clock := &testClock{now: time.Date(2020, 6, 1, 3, 0, 0, 0, time.UTC)}
	conf := &Config{
		ApplyThrottling: true,
		BucketSize:      10 * time.Second,
		MinRefill:       20 * time.Second,
	}
	// 100 frame bucket, 20 frame minimum recording refilled every 20s.
	return NewThrottlerWithClock(conf, fps, 2, listener, clock), clock
}

func takeFrames(t *Throttler, n int) int {
	taken := 0
	for i := 0; i < n; i++ {
		if !t.TakeFrame() {
			break
		}
		taken++
	}
	return taken
}

func TestStartsWithFullBucket(t *testing.T) {
	th, _ := newTestThrottler(nil)
	assert.EqualValues(t, 100, th.Available())
	assert.True(t, th.CanStart())
	assert.Equal(t, 100, takeFrames(th, 150))
}

func TestCannotStartWithoutMinimumAllowance(t *testing.T) {
	listener := new(countingListener)
	th, clock := newTestThrottler(listener)

	takeFrames(th, 90)
	assert.False(t, th.CanStart())
	assert.False(t, th.CanStart())
	assert.Equal(t, 1, listener.calls)

	clock.Sleep(10 * time.Second)
	assert.True(t, th.CanStart())
}

func TestThrottledWhenBucketEmpties(t *testing.T) {
	listener := new(countingListener)
	th, clock := newTestThrottler(listener)

	assert.Equal(t, 100, takeFrames(th, 200))
	assert.Equal(t, 1, listener.calls)
	assert.False(t, th.CanStart())
	assert.Equal(t, 1, listener.calls)

	clock.Sleep(20 * time.Second)
	assert.True(t, th.CanStart())
	assert.Equal(t, 20, takeFrames(th, 50))
}

func TestBucketDoesNotOverfill(t *testing.T) {
	th, clock := newTestThrottler(nil)
	clock.Sleep(time.Hour)
	assert.EqualValues(t, 100, th.Available())
}

func TestConfigValidate(t *testing.T) {
	conf := DefaultConfig()
	assert.NoError(t, conf.Validate())

	conf.BucketSize = 0
	assert.Error(t, conf.Validate())

	conf.ApplyThrottling = false
	assert.NoError(t, conf.Validate())
}
