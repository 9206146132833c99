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

package loglimiter

import (
	"bytes"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrintDistinctLines(t *testing.T) {
	logs, reset := captureLogs()
	defer reset()

	limiter := New(time.Minute)
	limiter.Print("write failed")
	limiter.Printf("frames lost: %d", 3)

	assert.Equal(t, "write failed\nframes lost: 3\n", logs.String())
}

func TestRepeatsSuppressedWithinInterval(t *testing.T) {
	logs, reset := captureLogs()
	defer reset()

	now := time.Now()
	limiter := New(2 * time.Second)
	limiter.nowFunc = func() time.Time { return now }

	limiter.Print("buffer full")
	now = now.Add(time.Second)
	limiter.Print("buffer full")
	limiter.Print("buffer full")
	assert.Equal(t, "buffer full\n", logs.String())
	assert.Equal(t, 2, limiter.Suppressed())

	// Past the window the line comes through with the skipped count.
	now = now.Add(2 * time.Second)
	limiter.Print("buffer full")
	assert.Equal(t, "buffer full\nlast message repeated 2 times\nbuffer full\n", logs.String())
	assert.Equal(t, 0, limiter.Suppressed())
}

func TestDifferentLineResetsSuppression(t *testing.T) {
	logs, reset := captureLogs()
	defer reset()

	limiter := New(time.Minute)
	limiter.Print("a")
	limiter.Printf("a")
	limiter.Print("b")
	assert.Equal(t, "a\nlast message repeated 1 times\nb\n", logs.String())
}

func TestConcurrentPrint(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	limiter := New(time.Minute)
	limiter.output = func(v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, v[0].(string))
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				limiter.Print("same")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"same"}, lines)
	assert.Equal(t, 799, limiter.Suppressed())
}

func captureLogs() (*bytes.Buffer, func()) {
	flags := log.Flags()
	log.SetFlags(0)

	logs := new(bytes.Buffer)
	log.SetOutput(logs)

	return logs, func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	}
}
