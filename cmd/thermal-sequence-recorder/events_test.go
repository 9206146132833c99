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

package main

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/events"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/recorder"
)

type queuedEvent struct {
	eventType string
	details   map[string]interface{}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []queuedEvent
}

func (r *eventRecorder) queue(eventType string, details map[string]interface{}, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, queuedEvent{eventType, details})
}

func (r *eventRecorder) queued() []queuedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]queuedEvent(nil), r.events...)
}

func TestFinalizedRecordingRenamedAndQueued(t *testing.T) {
	dir := t.TempDir()
	bus := events.New()
	queued := new(eventRecorder)
	recordings := handleRecordingEvents(bus, queued.queue)
	defer recordings.Close()

	rec := recorder.New(recorder.WithEventBus(bus))
	temp := filepath.Join(dir, "rec.seq.temp")
	require.NoError(t, rec.Start(temp))
	require.NoError(t, rec.Add([]byte{1, 2, 3}))
	require.NoError(t, rec.StopAndWait(context.Background()))

	assert.Eventually(t, func() bool {
		return len(queued.queued()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	e := queued.queued()[0]
	assert.Equal(t, "thermalSequence", e.eventType)
	assert.Equal(t, filepath.Join(dir, "rec.seq"), e.details["path"])
	assert.EqualValues(t, 1, e.details["frames"])
	assert.FileExists(t, filepath.Join(dir, "rec.seq"))
}

func TestWaitForFinishedRecording(t *testing.T) {
	dir := t.TempDir()
	bus := events.New()
	queued := new(eventRecorder)
	recordings := handleRecordingEvents(bus, queued.queue)
	defer recordings.Close()

	rec := recorder.New(recorder.WithEventBus(bus))
	temp := filepath.Join(dir, "last.seq.temp")
	require.NoError(t, rec.Start(temp))
	require.NoError(t, rec.Add([]byte{1, 2, 3}))
	require.NoError(t, rec.Close())

	require.True(t, recordings.wait(rec.Path(), 5*time.Second))
	assert.FileExists(t, filepath.Join(dir, "last.seq"))
	assert.NoFileExists(t, temp)
	assert.Len(t, queued.queued(), 1)

	// Waiting again returns straight away.
	assert.True(t, recordings.wait(temp, time.Millisecond))
	assert.False(t, recordings.wait(filepath.Join(dir, "other.seq.temp"), 10*time.Millisecond))
}
