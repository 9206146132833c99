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

// Package recorder records frames to sequence files without ever blocking
// the frame producer. Frames pass an interval throttle and a state gate on
// the caller's goroutine, then queue in a bounded buffer that a worker
// goroutine drains to disk.
package recorder

import (
	"context"
	"image"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
	"github.com/google/uuid"
	"github.com/juju/ratelimit"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/events"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/loglimiter"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/sequence"
)

const minLogInterval = time.Minute

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

type Option func(*Recorder)

// WithClock replaces the wall clock used for throttling and elapsed time.
func WithClock(clock ratelimit.Clock) Option {
	return func(r *Recorder) {
		r.clock = clock
	}
}

func WithEncoder(encoder sequence.FrameEncoder) Option {
	return func(r *Recorder) {
		r.encoder = encoder
	}
}

// WithHeader sets the device and camera details written at the start of
// each sequence file. The recording id and start time are filled in by
// Start.
func WithHeader(h sequence.Header) Option {
	return func(r *Recorder) {
		r.header = h
	}
}

func WithEventBus(bus *events.Bus) Option {
	return func(r *Recorder) {
		r.bus = bus
	}
}

// Recorder writes admitted frames to one sequence file at a time. Calls
// that change its state, and the Add methods, should come from one
// goroutine or be serialised by the caller; the getters may be polled from
// anywhere.
type Recorder struct {
	startMu sync.Mutex

	mu           sync.Mutex
	state        State
	settings     Settings
	clock        ratelimit.Clock
	encoder      sequence.FrameEncoder
	header       sequence.Header
	bus          *events.Bus
	log          *loglimiter.LogLimiter
	prerecord    *PreRecordBuffer
	buffer       *CircularBuffer
	watch        stopwatch
	lastAccepted time.Time
	hasAccepted  bool
	path         string
	done         chan struct{}
	err          error
	pending      error

	frames atomic.Uint64
	lost   atomic.Uint64
}

func New(opts ...Option) *Recorder {
	r := &Recorder{
		settings: DefaultSettings(),
		clock:    realClock{},
		encoder:  sequence.NewEncoder(),
		log:      loglimiter.New(minLogInterval),
		done:     closedChan,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.prerecord = NewPreRecordBuffer(r.settings.PrerecordingMaxFrames)
	return r
}

// SetHeader replaces the header written by recordings started from now on.
func (r *Recorder) SetHeader(h sequence.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.header = h
}

// Start begins a recording to filename, truncating any existing file. If
// pre-recording is enabled the buffered history is queued first, oldest
// first. If the previous recording is still being finalized, Start waits
// for it to finish, and returns its error if it failed without starting a
// new one.
func (r *Recorder) Start(filename string) error {
	r.startMu.Lock()
	defer r.startMu.Unlock()

	r.mu.Lock()
	if r.state != Stopped {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	done := r.done
	header := r.header
	r.mu.Unlock()
	<-done

	r.mu.Lock()
	err := r.takePending()
	r.mu.Unlock()
	if err != nil {
		return err
	}

	header.RecordingID = uuid.NewString()
	header.Timestamp = r.clock.Now()
	writer, err := sequence.Create(filename, header)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	buffer := NewCircularBuffer(r.settings.SizeCircularBuffer)
	r.frames.Store(0)
	r.lost.Store(0)
	if r.settings.PrerecordingEnabled {
		moved, dropped := r.prerecord.DrainInto(buffer)
		if dropped > 0 {
			r.lost.Add(uint64(dropped))
			framesLost.Add(float64(dropped))
			log.Printf("recording buffer too small for pre-recorded frames, %d lost", dropped)
		}
		if moved > 0 {
			log.Printf("recording %d pre-recorded frames", moved)
		}
	}

	r.buffer = buffer
	r.path = filename
	r.done = make(chan struct{})
	r.err = nil
	r.pending = nil
	r.watch.start(r.clock.Now())
	r.setState(Recording)
	log.Printf("recording started: %s", filename)

	go r.work(writer, buffer, filename, r.done)
	return nil
}

// Stop ends the recording. It returns immediately; the worker writes every
// frame still queued and then closes the file. Use Wait or Done to know
// when the file is complete.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Stopped {
		r.watch.pause(r.clock.Now())
		r.setState(Stopped)
		r.buffer.Close()
		log.Printf("recording stopped: %s", r.path)
	}
	return r.takePending()
}

// Wait blocks until the current or most recent recording is finalized and
// returns the error that aborted it, if any.
func (r *Recorder) Wait(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == r.err {
		r.pending = nil
	}
	return r.err
}

// StopAndWait stops the recording and waits for the file to be finalized.
func (r *Recorder) StopAndWait(ctx context.Context) error {
	if err := r.Stop(); err != nil {
		return err
	}
	return r.Wait(ctx)
}

// Close stops any recording and waits for it to be written out.
func (r *Recorder) Close() error {
	return r.StopAndWait(context.Background())
}

// Done returns a channel that is closed once the current recording has
// been finalized. Each recording gets its own channel.
func (r *Recorder) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Pause stops admitting frames and stops the elapsed time clock. Frames
// already queued are still written. It does nothing unless recording.
func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Recording {
		r.watch.pause(r.clock.Now())
		r.setState(Paused)
	}
	return r.takePending()
}

// Resume undoes Pause. It does nothing unless paused.
func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Paused {
		r.watch.resume(r.clock.Now())
		r.setState(Recording)
	}
	return r.takePending()
}

// Add offers an encoded camera frame to the recorder. The bytes are copied
// if the frame is kept.
func (r *Recorder) Add(raw []byte) error {
	if len(raw) == 0 {
		return sequence.ErrEmptyFrame
	}
	return r.AddFrame(&sequence.Frame{Raw: raw})
}

// AddImage offers a decoded thermal image, optionally with a paired visual
// image. The thermal pixels are copied if the frame is kept; the visual
// image must not be modified afterwards.
func (r *Recorder) AddImage(thermal *cptvframe.Frame, visual image.Image) error {
	if thermal == nil {
		return sequence.ErrEmptyFrame
	}
	return r.AddFrame(&sequence.Frame{Thermal: thermal, Visual: visual})
}

// AddFrame runs a frame through admission. Frames filtered by the interval
// throttle, or arriving while paused, are dropped without error. A full
// recording buffer drops the frame and counts it as lost. While stopped,
// frames go to the pre-record buffer if it is enabled.
//
// Any error returned comes from a failed recording that has not been
// reported yet; the frame itself has still been processed.
func (r *Recorder) AddFrame(f *sequence.Frame) error {
	if f == nil || (f.Raw == nil && f.Thermal == nil) {
		return sequence.ErrEmptyFrame
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if r.settings.FrameIntervalTimeEnabled && r.hasAccepted {
		interval := time.Duration(r.settings.FrameIntervalTimeMs) * time.Millisecond
		if now.Sub(r.lastAccepted) < interval {
			framesFiltered.Inc()
			return r.takePending()
		}
	}
	r.lastAccepted = now
	r.hasAccepted = true

	switch r.state {
	case Recording:
		if r.buffer.Push(own(f, now)) == Dropped {
			lost := r.lost.Add(1)
			framesLost.Inc()
			r.log.Print("recording buffer full, dropping frames")
			r.bus.Publish(events.FramesLost{Path: r.path, Total: lost, At: now})
		}
	case Stopped:
		if r.settings.PrerecordingEnabled {
			r.prerecord.Push(own(f, now))
		}
	}
	return r.takePending()
}

func own(f *sequence.Frame, now time.Time) *sequence.Frame {
	c := f.Clone()
	if c.Timestamp.IsZero() {
		c.Timestamp = now
	}
	return c
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// FrameCounter returns the frames written in the current or last recording.
func (r *Recorder) FrameCounter() uint64 {
	return r.frames.Load()
}

// LostFramesCounter returns the frames dropped because the buffer was full.
func (r *Recorder) LostFramesCounter() uint64 {
	return r.lost.Load()
}

// Elapsed returns the recording time so far, excluding pauses. It stops
// advancing when the recording stops.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watch.read(r.clock.Now())
}

func (r *Recorder) ElapsedMilliseconds() int64 {
	return r.Elapsed().Milliseconds()
}

// Path returns the file of the current or last recording.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Err returns the error that aborted the current or last recording.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) takePending() error {
	err := r.pending
	r.pending = nil
	return err
}

func (r *Recorder) setState(s State) {
	if r.state == s {
		return
	}
	from := r.state
	r.state = s
	recorderState.Set(float64(s))
	r.bus.Publish(events.StateChanged{
		Path: r.path,
		From: from.String(),
		To:   s.String(),
		At:   r.clock.Now(),
	})
}
