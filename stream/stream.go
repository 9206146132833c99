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

// Package stream reads frames from a camera connection and hands them to
// listeners and, when one is attached, a recorder.
package stream

import (
	"bufio"
	"context"
	"errors"
	"image"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/headers"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/loglimiter"
)

const minLogInterval = time.Minute

var ErrRecorderAttached = errors.New("a recorder is already attached to the stream")

// FrameParser decodes one raw camera frame into out.
type FrameParser func(raw []byte, out *cptvframe.Frame) error

// Sink receives every frame while attached. It must copy anything it keeps.
type Sink interface {
	AddImage(thermal *cptvframe.Frame, visual image.Image) error
}

// FrameListener is given each frame before the sink.
type FrameListener interface {
	ProcessFrame(frame *cptvframe.Frame)
}

type Stream struct {
	src   io.Reader
	parse FrameParser
	log   *loglimiter.LogLimiter

	mu        sync.Mutex
	sink      Sink
	listeners []FrameListener
	header    *headers.HeaderInfo

	frames atomic.Uint64
}

func New(src io.Reader, parse FrameParser) *Stream {
	return &Stream{
		src:   src,
		parse: parse,
		log:   loglimiter.New(minLogInterval),
	}
}

// AttachRecorder starts delivering frames to sink.
func (s *Stream) AttachRecorder(sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink != nil {
		return ErrRecorderAttached
	}
	s.sink = sink
	return nil
}

// DetachRecorder stops delivering frames to the attached sink. A recording
// in progress is left running.
func (s *Stream) DetachRecorder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = nil
}

func (s *Stream) AddListener(l FrameListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Header returns the camera header, or nil until Run has read it.
func (s *Stream) Header() *headers.HeaderInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header
}

func (s *Stream) FramesRead() uint64 {
	return s.frames.Load()
}

// Run reads the camera header and then frames until the connection ends or
// ctx is cancelled. If the source can be closed it is closed on
// cancellation so a blocked read returns.
func (s *Stream) Run(ctx context.Context) error {
	if closer, ok := s.src.(io.Closer); ok {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				closer.Close()
			case <-done:
			}
		}()
	}

	reader := bufio.NewReader(s.src)
	header, err := headers.ReadHeaderInfo(reader)
	if err != nil {
		return s.runErr(ctx, err)
	}
	if err := header.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.header = header
	s.mu.Unlock()
	log.Printf("connection from %s", header)

	logFirstMinute := 15 * header.FPS()
	logInterval := 60 * 5 * header.FPS()

	raw := make([]byte, header.FrameSize())
	frame := newFrame(header.ResX(), header.ResY())
	for {
		if _, err := io.ReadFull(reader, raw); err != nil {
			return s.runErr(ctx, err)
		}
		total := int(s.frames.Add(1))
		if total%logFirstMinute == 0 && total <= 60*header.FPS() || total%logInterval == 0 {
			log.Printf("%d frames for this connection", total)
		}

		if err := s.parse(raw, frame); err != nil {
			s.log.Printf("failed to parse frame: %v", err)
			continue
		}
		s.deliver(frame)
	}
}

func (s *Stream) deliver(frame *cptvframe.Frame) {
	s.mu.Lock()
	sink := s.sink
	listeners := s.listeners
	s.mu.Unlock()

	for _, l := range listeners {
		l.ProcessFrame(frame)
	}
	if sink != nil {
		if err := sink.AddImage(frame, nil); err != nil {
			s.log.Printf("recorder: %v", err)
		}
	}
}

func (s *Stream) runErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func newFrame(cols, rows int) *cptvframe.Frame {
	pix := make([][]uint16, rows)
	for y := range pix {
		pix[y] = make([]uint16, cols)
	}
	return &cptvframe.Frame{Pix: pix}
}
