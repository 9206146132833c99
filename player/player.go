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

// Package player gives random access to the frames of a sequence file and
// replays them at their recorded pace.
package player

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/juju/ratelimit"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/sequence"
)

var (
	ErrOutOfRange  = errors.New("frame index out of range")
	ErrInvalidRate = errors.New("playback rate must be greater than zero")
	ErrNoFrames    = errors.New("sequence has no frames")
)

type Option func(*Player)

// WithClock sets the clock Play sleeps on.
func WithClock(clock ratelimit.Clock) Option {
	return func(p *Player) {
		p.clock = clock
	}
}

type entry struct {
	offset    int64
	timestamp time.Time
}

// Player reads one sequence file. It is safe for concurrent use, though
// frames are decoded one at a time.
type Player struct {
	mu       sync.Mutex
	file     *os.File
	reader   *sequence.Reader
	index    []entry
	selected int
	rate     float64
	clock    ratelimit.Clock
}

// Open indexes every complete frame record in filename. A record cut short
// at the end of the file, as left by a recording that never finalized, is
// ignored.
func Open(filename string, opts ...Option) (*Player, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	reader, err := sequence.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	p := &Player{
		file:   f,
		reader: reader,
		rate:   1,
		clock:  realClock{},
	}
	for _, opt := range opts {
		opt(p)
	}

	for {
		offset := reader.Offset()
		ts, err := reader.Skip()
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			log.Printf("%s: ignoring incomplete frame at offset %d", filename, offset)
			break
		}
		if err != nil {
			f.Close()
			return nil, err
		}
		p.index = append(p.index, entry{offset: offset, timestamp: ts})
	}
	return p, nil
}

func (p *Player) Close() error {
	return p.file.Close()
}

func (p *Player) Header() sequence.Header {
	return p.reader.Header()
}

func (p *Player) FrameCount() int {
	return len(p.index)
}

// Duration returns the time between the first and last frame.
func (p *Player) Duration() time.Duration {
	if len(p.index) < 2 {
		return 0
	}
	return p.index[len(p.index)-1].timestamp.Sub(p.index[0].timestamp)
}

// Frame decodes frame i without changing the selection.
func (p *Player) Frame(i int) (*sequence.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame(i)
}

func (p *Player) frame(i int) (*sequence.Frame, error) {
	if i < 0 || i >= len(p.index) {
		return nil, ErrOutOfRange
	}
	return p.reader.ReadAt(p.index[i].offset)
}

func (p *Player) SelectedIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected
}

// Select moves the selection to frame i and returns it.
func (p *Player) Select(i int) (*sequence.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectFrame(i)
}

func (p *Player) selectFrame(i int) (*sequence.Frame, error) {
	f, err := p.frame(i)
	if err != nil {
		return nil, err
	}
	p.selected = i
	return f, nil
}

func (p *Player) First() (*sequence.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.index) == 0 {
		return nil, ErrNoFrames
	}
	return p.selectFrame(0)
}

func (p *Player) Last() (*sequence.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.index) == 0 {
		return nil, ErrNoFrames
	}
	return p.selectFrame(len(p.index) - 1)
}

// Next selects the frame after the current one. It returns io.EOF when the
// last frame is selected.
func (p *Player) Next() (*sequence.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selected+1 >= len(p.index) {
		return nil, io.EOF
	}
	return p.selectFrame(p.selected + 1)
}

// Previous selects the frame before the current one. It returns io.EOF when
// the first frame is selected.
func (p *Player) Previous() (*sequence.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selected == 0 || len(p.index) == 0 {
		return nil, io.EOF
	}
	return p.selectFrame(p.selected - 1)
}

func (p *Player) PlaybackRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// SetPlaybackRate scales playback speed; 2 plays twice as fast as recorded.
func (p *Player) SetPlaybackRate(rate float64) error {
	if rate <= 0 {
		return ErrInvalidRate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rate = rate
	return nil
}

// FrameFunc is called with each frame's index. Returning false stops the
// iteration.
type FrameFunc func(i int, f *sequence.Frame) bool

// ForEach calls fn for every frame in order.
func (p *Player) ForEach(fn FrameFunc) error {
	if len(p.index) == 0 {
		return nil
	}
	return p.ForEachInRange(0, len(p.index)-1, fn)
}

// ForEachInRange calls fn for frames from through to, inclusive.
func (p *Player) ForEachInRange(from, to int, fn FrameFunc) error {
	if from < 0 || to >= len(p.index) || from > to {
		return ErrOutOfRange
	}
	for i := from; i <= to; i++ {
		f, err := p.Frame(i)
		if err != nil {
			return err
		}
		if !fn(i, f) {
			return nil
		}
	}
	return nil
}

// Play calls fn for each frame from the selected one to the end, sleeping
// between frames for the recorded gap divided by the playback rate. The
// selection follows playback. It returns ctx.Err() if cancelled.
func (p *Player) Play(ctx context.Context, fn FrameFunc) error {
	p.mu.Lock()
	start := p.selected
	p.mu.Unlock()

	for i := start; i < len(p.index); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > start {
			p.clock.Sleep(p.gap(i))
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		f, err := p.Select(i)
		if err != nil {
			return err
		}
		if !fn(i, f) {
			return nil
		}
	}
	return nil
}

func (p *Player) gap(i int) time.Duration {
	d := p.index[i].timestamp.Sub(p.index[i-1].timestamp)
	if d <= 0 {
		return 0
	}
	return time.Duration(float64(d) / p.PlaybackRate())
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
