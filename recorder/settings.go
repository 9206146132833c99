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

const (
	defaultSizeCircularBuffer    = 30
	defaultFrameIntervalTimeMs   = 1000
	defaultPrerecordingMaxFrames = 10
)

// Settings configures a Recorder. Changes made while recording take effect
// from the next frame admitted or dequeued; there is no atomic snapshot.
type Settings struct {
	EnableCompression        bool `yaml:"enable-compression"`
	SizeCircularBuffer       int  `yaml:"size-circular-buffer"`
	FrameIntervalTimeEnabled bool `yaml:"frame-interval-time-enabled"`
	FrameIntervalTimeMs      int  `yaml:"frame-interval-time-ms"`
	PrerecordingEnabled      bool `yaml:"prerecording-enabled"`
	PrerecordingMaxFrames    int  `yaml:"prerecording-max-frames"`
}

func DefaultSettings() Settings {
	return Settings{
		SizeCircularBuffer:    defaultSizeCircularBuffer,
		FrameIntervalTimeMs:   defaultFrameIntervalTimeMs,
		PrerecordingMaxFrames: defaultPrerecordingMaxFrames,
	}
}

func (s *Settings) Validate() error {
	if s.SizeCircularBuffer <= 0 || s.PrerecordingMaxFrames <= 0 {
		return ErrInvalidCapacity
	}
	if s.FrameIntervalTimeMs < 0 {
		return ErrInvalidInterval
	}
	return nil
}

// Settings returns a copy of the current settings.
func (r *Recorder) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// ApplySettings replaces every setting at once. Nothing changes if s is
// invalid.
func (r *Recorder) ApplySettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setSizeCircularBuffer(s.SizeCircularBuffer)
	r.setPrerecordingMaxFrames(s.PrerecordingMaxFrames)
	r.setPrerecordingEnabled(s.PrerecordingEnabled)
	r.settings.EnableCompression = s.EnableCompression
	r.settings.FrameIntervalTimeEnabled = s.FrameIntervalTimeEnabled
	r.settings.FrameIntervalTimeMs = s.FrameIntervalTimeMs
	return nil
}

func (r *Recorder) EnableCompression() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings.EnableCompression
}

// SetEnableCompression applies from the next frame the worker dequeues.
func (r *Recorder) SetEnableCompression(enable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.EnableCompression = enable
}

func (r *Recorder) SizeCircularBuffer() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings.SizeCircularBuffer
}

// SetSizeCircularBuffer changes the recording buffer capacity, including the
// buffer of a recording in progress.
func (r *Recorder) SetSizeCircularBuffer(size int) error {
	if size <= 0 {
		return ErrInvalidCapacity
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setSizeCircularBuffer(size)
	return nil
}

func (r *Recorder) setSizeCircularBuffer(size int) {
	r.settings.SizeCircularBuffer = size
	if r.state != Stopped {
		r.buffer.Resize(size)
	}
}

func (r *Recorder) FrameIntervalTimeEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings.FrameIntervalTimeEnabled
}

func (r *Recorder) SetFrameIntervalTimeEnabled(enable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.FrameIntervalTimeEnabled = enable
}

func (r *Recorder) FrameIntervalTimeMs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings.FrameIntervalTimeMs
}

func (r *Recorder) SetFrameIntervalTimeMs(ms int) error {
	if ms < 0 {
		return ErrInvalidInterval
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.FrameIntervalTimeMs = ms
	return nil
}

func (r *Recorder) PrerecordingEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings.PrerecordingEnabled
}

// SetPrerecordingEnabled turns pre-recording on or off. Turning it off
// drops the frames already held.
func (r *Recorder) SetPrerecordingEnabled(enable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setPrerecordingEnabled(enable)
}

func (r *Recorder) setPrerecordingEnabled(enable bool) {
	if !enable {
		r.prerecord.Clear()
	}
	r.settings.PrerecordingEnabled = enable
}

func (r *Recorder) PrerecordingMaxFrames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings.PrerecordingMaxFrames
}

// SetPrerecordingMaxFrames resizes the pre-record buffer, keeping the
// newest frames that fit.
func (r *Recorder) SetPrerecordingMaxFrames(size int) error {
	if size <= 0 {
		return ErrInvalidCapacity
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setPrerecordingMaxFrames(size)
	return nil
}

func (r *Recorder) setPrerecordingMaxFrames(size int) {
	r.settings.PrerecordingMaxFrames = size
	r.prerecord.Resize(size)
}
