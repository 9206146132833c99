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
	"log"
	"sync"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
	"github.com/coreos/go-systemd/daemon"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/headers"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/motion"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/recorder"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/sequence"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/throttle"
)

// app holds the recorder shared by every camera connection and the
// settings it was last given.
type app struct {
	conf     *Config
	rec      *recorder.Recorder
	snapshot *snapshotter

	mu       sync.Mutex
	settings recorder.Settings
	trigger  *motion.Trigger
}

func newApp(conf *Config, rec *recorder.Recorder, snapshot *snapshotter) *app {
	return &app{
		conf:     conf,
		rec:      rec,
		snapshot: snapshot,
		settings: conf.Recorder,
	}
}

func (a *app) applySettings(s recorder.Settings) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.applyLocked(s)
}

func (a *app) setSetting(name, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, err := applySetting(a.settings, name, value)
	if err != nil {
		return err
	}
	return a.applyLocked(s)
}

func (a *app) setTrigger(t *motion.Trigger) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.trigger = t
	return a.applyLocked(a.settings)
}

func (a *app) applyLocked(s recorder.Settings) error {
	effective := s
	if a.trigger != nil {
		effective = prerecordSettings(s, a.trigger.PrerecordFrames())
	}
	if err := a.rec.ApplySettings(effective); err != nil {
		return err
	}
	a.settings = s
	return nil
}

func (a *app) recentFrame() *cptvframe.Frame {
	a.mu.Lock()
	t := a.trigger
	a.mu.Unlock()
	if t == nil {
		return nil
	}
	return t.RecentFrame()
}

// prerecordSettings makes sure the pre-record buffer holds the trigger's
// preview, and that the recording buffer can take all of it at once.
func prerecordSettings(s recorder.Settings, frames int) recorder.Settings {
	s.PrerecordingEnabled = true
	if s.PrerecordingMaxFrames < frames {
		s.PrerecordingMaxFrames = frames
	}
	if s.SizeCircularBuffer < 2*s.PrerecordingMaxFrames {
		s.SizeCircularBuffer = 2 * s.PrerecordingMaxFrames
	}
	return s
}

// cameraSession runs the motion trigger for one camera connection. The
// trigger is built from the connection header when the first frame
// arrives.
type cameraSession struct {
	app         *app
	header      func() *headers.HeaderInfo
	trigger     *motion.Trigger
	frames      int
	notifyEvery int
}

func newCameraSession(a *app, header func() *headers.HeaderInfo) *cameraSession {
	return &cameraSession{
		app:    a,
		header: header,
	}
}

// ProcessFrame implements stream.FrameListener.
func (c *cameraSession) ProcessFrame(frame *cptvframe.Frame) {
	if c.trigger == nil {
		c.begin(c.header())
	}
	c.trigger.ProcessFrame(frame)

	if c.frames++; c.frames >= c.notifyEvery {
		daemon.SdNotify(false, "WATCHDOG=1")
		c.frames = 0
	}
}

func (c *cameraSession) begin(h *headers.HeaderInfo) {
	conf := c.app.conf
	c.app.rec.SetHeader(sequence.Header{
		DeviceName: conf.DeviceName,
		DeviceID:   conf.DeviceID,
		Brand:      h.Brand(),
		Model:      h.Model(),
		FPS:        h.FPS(),
		ResX:       h.ResX(),
		ResY:       h.ResY(),
	})

	opts := []motion.TriggerOption{
		motion.WithCanRecord(func() error {
			return checkDiskSpace(conf.OutputDir, conf.MinDiskSpace)
		}),
	}
	if conf.Throttler.ApplyThrottling {
		minSecs := conf.Trigger.MinSecs + conf.Trigger.PreviewSecs
		opts = append(opts, motion.WithThrottler(
			throttle.NewThrottler(&conf.Throttler, h.FPS(), minSecs, throttleEvents{})))
	}
	c.trigger = motion.NewTrigger(&conf.Motion, &conf.Trigger, h, c.app.rec, func() string {
		return newRecordingTempName(conf.OutputDir)
	}, opts...)
	if err := c.app.setTrigger(c.trigger); err != nil {
		log.Printf("failed to apply pre-recording settings: %v", err)
	}
	c.notifyEvery = 5 * h.FPS()
}

// end stops a recording the trigger started, since no more frames will
// arrive for it.
func (c *cameraSession) end() {
	if c.trigger == nil {
		return
	}
	if c.trigger.IsRecording() {
		if err := c.app.rec.Stop(); err != nil {
			log.Printf("recording ended with error: %v", err)
		}
	}
	if err := c.app.setTrigger(nil); err != nil {
		log.Printf("failed to restore recorder settings: %v", err)
	}
}
