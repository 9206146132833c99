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

package stream

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/headers"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/recorder"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/sequence"
)

const (
	cols = 4
	rows = 3
)

// parseTestFrame reads big endian pixels, failing on frames starting 0xFFFF.
func parseTestFrame(raw []byte, out *cptvframe.Frame) error {
	if binary.BigEndian.Uint16(raw) == 0xFFFF {
		return errors.New("bad frame")
	}
	for y := range out.Pix {
		for x := range out.Pix[y] {
			out.Pix[y][x] = binary.BigEndian.Uint16(raw[2*(y*cols+x):])
		}
	}
	return nil
}

func encodeTestFrame(first uint16) []byte {
	raw := make([]byte, cols*rows*2)
	for i := 0; i < cols*rows; i++ {
		binary.BigEndian.PutUint16(raw[2*i:], first+uint16(i))
	}
	return raw
}

func cameraInput(t *testing.T, frames ...[]byte) *bytes.Buffer {
	var buf bytes.Buffer
	require.NoError(t, headers.Write(&buf, headers.New(cols, rows, 9, cols*rows*2, "test", "fake")))
	for _, f := range frames {
		buf.Write(f)
	}
	return &buf
}

type event struct {
	source string
	first  uint16
}

type eventLog struct {
	mu     sync.Mutex
	events []event
}

func (l *eventLog) add(source string, f *cptvframe.Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event{source, f.Pix[0][0]})
}

type testListener struct{ log *eventLog }

func (l testListener) ProcessFrame(f *cptvframe.Frame) { l.log.add("listener", f) }

type testSink struct{ log *eventLog }

func (s testSink) AddImage(f *cptvframe.Frame, _ image.Image) error {
	s.log.add("sink", f)
	return nil
}

func TestRunDeliversFramesToListenersThenSink(t *testing.T) {
	input := cameraInput(t, encodeTestFrame(100), encodeTestFrame(200))
	s := New(input, parseTestFrame)
	events := new(eventLog)
	s.AddListener(testListener{events})
	require.NoError(t, s.AttachRecorder(testSink{events}))

	assert.Equal(t, io.EOF, s.Run(context.Background()))
	assert.EqualValues(t, 2, s.FramesRead())
	assert.Equal(t, []event{
		{"listener", 100}, {"sink", 100},
		{"listener", 200}, {"sink", 200},
	}, events.events)

	h := s.Header()
	require.NotNil(t, h)
	assert.Equal(t, cols, h.ResX())
	assert.Equal(t, "fake", h.Model())
}

func TestAttachRecorderTwiceFails(t *testing.T) {
	s := New(new(bytes.Buffer), parseTestFrame)
	events := new(eventLog)
	require.NoError(t, s.AttachRecorder(testSink{events}))
	assert.Equal(t, ErrRecorderAttached, s.AttachRecorder(testSink{events}))

	s.DetachRecorder()
	assert.NoError(t, s.AttachRecorder(testSink{events}))
}

func TestDetachedStreamOnlyFeedsListeners(t *testing.T) {
	input := cameraInput(t, encodeTestFrame(1))
	s := New(input, parseTestFrame)
	events := new(eventLog)
	s.AddListener(testListener{events})
	require.NoError(t, s.AttachRecorder(testSink{events}))
	s.DetachRecorder()

	s.Run(context.Background())
	assert.Equal(t, []event{{"listener", 1}}, events.events)
}

func TestUnparseableFramesSkipped(t *testing.T) {
	input := cameraInput(t, encodeTestFrame(0xFFFF), encodeTestFrame(7))
	s := New(input, parseTestFrame)
	events := new(eventLog)
	s.AddListener(testListener{events})

	s.Run(context.Background())
	assert.EqualValues(t, 2, s.FramesRead())
	assert.Equal(t, []event{{"listener", 7}}, events.events)
}

func TestTruncatedFrameEndsRun(t *testing.T) {
	input := cameraInput(t, encodeTestFrame(1)[:5])
	s := New(input, parseTestFrame)
	assert.Equal(t, io.ErrUnexpectedEOF, s.Run(context.Background()))
	assert.Zero(t, s.FramesRead())
}

func TestIncompleteHeaderRejected(t *testing.T) {
	s := New(bytes.NewBufferString("Brand: test\n\n"), parseTestFrame)
	assert.Equal(t, headers.ErrIncompleteHeader, s.Run(context.Background()))
}

func TestRunStopsWhenCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	s := New(pr, parseTestFrame)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.NoError(t, headers.Write(pw, headers.New(cols, rows, 9, cols*rows*2, "test", "fake")))
	_, err := pw.Write(encodeTestFrame(1))
	require.NoError(t, err)
	cancel()

	select {
	case err := <-done:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStreamIntoRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.seq")
	rec := recorder.New()
	require.NoError(t, rec.Start(path))

	input := cameraInput(t, encodeTestFrame(10), encodeTestFrame(20), encodeTestFrame(30))
	s := New(input, parseTestFrame)
	require.NoError(t, s.AttachRecorder(rec))
	s.Run(context.Background())

	s.DetachRecorder()
	assert.Equal(t, recorder.Recording, rec.State())
	require.NoError(t, rec.StopAndWait(context.Background()))
	assert.EqualValues(t, 3, rec.FrameCounter())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	reader, err := sequence.NewReader(f)
	require.NoError(t, err)
	for _, first := range []uint16{10, 20, 30} {
		frame, err := reader.Next()
		require.NoError(t, err)
		require.NotNil(t, frame.Thermal)
		assert.Equal(t, first, frame.Thermal.Pix[0][0])
		assert.Equal(t, first+uint16(cols*rows-1), frame.Thermal.Pix[rows-1][cols-1])
	}
}
