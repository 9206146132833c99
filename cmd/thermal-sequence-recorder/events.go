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
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/godbus/dbus"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/events"
)

// queueEvent hands an event to the Cacophony events service for upload.
func queueEvent(eventType string, details map[string]interface{}, ts time.Time) error {
	eventDetails := map[string]interface{}{
		"description": map[string]interface{}{
			"type":    eventType,
			"details": details,
		},
	}
	detailsJSON, err := json.Marshal(&eventDetails)
	if err != nil {
		return err
	}

	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	obj := conn.Object("org.cacophony.Events", "/org/cacophony/Events")
	return obj.Call("org.cacophony.Events.Queue", 0, detailsJSON, ts.UnixNano()).Err
}

func logQueueEvent(eventType string, details map[string]interface{}, ts time.Time) {
	if err := queueEvent(eventType, details, ts); err != nil {
		log.Printf("could not record %s event: %v", eventType, err)
	}
}

// throttleEvents records an event each time recording is throttled.
type throttleEvents struct{}

func (throttleEvents) WhenThrottled() {
	logQueueEvent("throttle", nil, time.Now())
}

// recordingEvents gives finished recordings their final name and reports
// them. A failed recording keeps every frame written before the failure so
// it is kept too.
type recordingEvents struct {
	unsubscribe func()

	mu       sync.Mutex
	lastPath string
	lastDone chan struct{}
}

func handleRecordingEvents(bus *events.Bus, queue func(string, map[string]interface{}, time.Time)) *recordingEvents {
	h := &recordingEvents{}
	unsubFinalized := bus.Subscribe(func(e events.RecordingFinalized) {
		defer close(h.finished(e.Path))
		path := finishRecording(e.Path)
		queue("thermalSequence", map[string]interface{}{
			"path":       path,
			"frames":     e.Frames,
			"lostFrames": e.Lost,
			"durationMs": e.Elapsed.Milliseconds(),
		}, e.At)
	})
	unsubFailed := bus.Subscribe(func(e events.RecordingFailed) {
		defer close(h.finished(e.Path))
		path := finishRecording(e.Path)
		queue("thermalSequenceFailed", map[string]interface{}{
			"path":   path,
			"frames": e.Frames,
			"error":  e.Err.Error(),
		}, e.At)
	})
	h.unsubscribe = func() {
		unsubFinalized()
		unsubFailed()
	}
	return h
}

// finished returns the channel closed once the recording at path has been
// renamed and reported. Only the latest recording is tracked.
func (h *recordingEvents) finished(path string) chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastDone == nil || h.lastPath != path {
		h.lastPath = path
		h.lastDone = make(chan struct{})
	}
	return h.lastDone
}

// wait blocks until the recording at path has been handled, reporting false
// if that takes longer than timeout.
func (h *recordingEvents) wait(path string, timeout time.Duration) bool {
	select {
	case <-h.finished(path):
		return true
	case <-time.After(timeout):
		return false
	}
}

func (h *recordingEvents) Close() {
	h.unsubscribe()
}

func finishRecording(tempName string) string {
	finalName, err := renameTempRecording(tempName)
	if err != nil {
		log.Printf("failed to rename %s: %v", tempName, err)
		return tempName
	}
	return finalName
}
