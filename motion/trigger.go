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

package motion

import (
	"errors"
	"sync"
	"time"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
	"github.com/TheCacophonyProject/window"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/loglimiter"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/recorder"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/throttle"
)

const minLogInterval = time.Minute

var errOutsideWindow = errors.New("motion detected but outside of recording window")

// Controller is the recorder a Trigger drives.
type Controller interface {
	Start(filename string) error
	Stop() error
	State() recorder.State
}

type RecordingListener interface {
	MotionDetected()
	RecordingStarted()
	RecordingEnded()
}

type TriggerOption func(*Trigger)

// WithThrottler limits how much footage the trigger records.
func WithThrottler(t *throttle.Throttler) TriggerOption {
	return func(tr *Trigger) {
		tr.throttler = t
	}
}

func WithListener(l RecordingListener) TriggerOption {
	return func(tr *Trigger) {
		tr.listener = l
	}
}

// WithCanRecord adds a check, such as free disk space, that must pass
// before a recording is started.
func WithCanRecord(check func() error) TriggerOption {
	return func(tr *Trigger) {
		tr.canRecord = check
	}
}

// Trigger watches a camera's frames and records while there is motion.
// A recording lasts at least MinSecs after the last motion and at most
// MaxSecs. Frames from before the trigger come from the recorder's
// pre-record buffer, sized with PrerecordFrames.
//
// ProcessFrame must be called before the frame is given to the recorder.
type Trigger struct {
	detector      *Detector
	ctrl          Controller
	nextFilename  func() string
	throttler     *throttle.Throttler
	listener      RecordingListener
	canRecord     func() error
	window        window.Window
	constant      bool
	minFrames     int
	maxFrames     int
	previewFrames int
	triggerFrames int
	framesWritten int
	writeUntil    int
	triggered     int
	isRecording   bool
	log           *loglimiter.LogLimiter

	recentMu sync.Mutex
	recent   *cptvframe.Frame
}

func NewTrigger(
	conf *Config,
	triggerConf *TriggerConfig,
	camera cptvframe.CameraSpec,
	ctrl Controller,
	nextFilename func() string,
	opts ...TriggerOption,
) *Trigger {
	fps := camera.FPS()
	t := &Trigger{
		detector:      NewDetector(*conf, camera.ResX(), camera.ResY()),
		ctrl:          ctrl,
		nextFilename:  nextFilename,
		window:        triggerConf.Window,
		constant:      triggerConf.ConstantRecorder,
		minFrames:     triggerConf.MinSecs * fps,
		maxFrames:     triggerConf.MaxSecs * fps,
		previewFrames: triggerConf.PreviewSecs*fps + conf.TriggerFrames - 1,
		triggerFrames: conf.TriggerFrames,
		log:           loglimiter.New(minLogInterval),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// PrerecordFrames is the pre-record buffer size needed to include
// PreviewSecs of footage before the frames that caused the trigger.
func (t *Trigger) PrerecordFrames() int {
	if t.previewFrames < 1 {
		return 1
	}
	return t.previewFrames
}

// ProcessFrame implements stream.FrameListener.
func (t *Trigger) ProcessFrame(frame *cptvframe.Frame) {
	t.keepRecent(frame)

	if t.isRecording && (t.framesWritten >= t.writeUntil || t.ctrl.State() == recorder.Stopped) {
		t.stopRecording()
	}

	if t.constant || t.detector.Detect(frame) {
		if t.listener != nil {
			t.listener.MotionDetected()
		}
		t.triggered++

		if t.isRecording {
			t.writeUntil = min(t.framesWritten+t.minFrames, t.maxFrames)
		} else if t.triggered < t.triggerFrames {
			// Wait for enough consecutive frames with motion.
		} else if err := t.canStartWriting(); err != nil {
			t.log.Printf("recording not started: %v", err)
		} else if err := t.startRecording(); err != nil {
			t.log.Printf("can't start recording: %v", err)
		} else {
			t.writeUntil = t.minFrames
		}
	} else {
		t.triggered = 0
	}

	if t.isRecording {
		if t.throttler != nil && !t.throttler.TakeFrame() {
			t.stopRecording()
			return
		}
		t.framesWritten++
	}
}

// IsRecording reports whether a recording started by the trigger is in
// progress.
func (t *Trigger) IsRecording() bool {
	return t.isRecording
}

// RecentFrame returns a copy of the last frame processed, or nil.
func (t *Trigger) RecentFrame() *cptvframe.Frame {
	t.recentMu.Lock()
	defer t.recentMu.Unlock()
	if t.recent == nil {
		return nil
	}
	return copyFrame(t.recent, nil)
}

func (t *Trigger) keepRecent(frame *cptvframe.Frame) {
	t.recentMu.Lock()
	defer t.recentMu.Unlock()
	t.recent = copyFrame(frame, t.recent)
}

// copyFrame copies src into dst, allocating dst if it has the wrong shape.
func copyFrame(src, dst *cptvframe.Frame) *cptvframe.Frame {
	if dst == nil || len(dst.Pix) != len(src.Pix) {
		dst = &cptvframe.Frame{Pix: make([][]uint16, len(src.Pix))}
	}
	for y, row := range src.Pix {
		if len(dst.Pix[y]) != len(row) {
			dst.Pix[y] = make([]uint16, len(row))
		}
		copy(dst.Pix[y], row)
	}
	dst.Status = src.Status
	return dst
}

func (t *Trigger) canStartWriting() error {
	if !t.window.Active() {
		return errOutsideWindow
	}
	if t.canRecord != nil {
		if err := t.canRecord(); err != nil {
			return err
		}
	}
	if t.throttler != nil && !t.throttler.CanStart() {
		return errors.New("recording throttled")
	}
	return nil
}

func (t *Trigger) startRecording() error {
	if err := t.ctrl.Start(t.nextFilename()); err != nil {
		return err
	}
	t.isRecording = true
	if t.listener != nil {
		t.listener.RecordingStarted()
	}
	return nil
}

func (t *Trigger) stopRecording() {
	if t.listener != nil {
		t.listener.RecordingEnded()
	}
	if err := t.ctrl.Stop(); err != nil {
		t.log.Printf("recording ended with error: %v", err)
	}
	t.framesWritten = 0
	t.writeUntil = 0
	t.isRecording = false
	t.triggered = 0
}
