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

import (
	"context"
	"log"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/events"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/sequence"
)

// work drains buffer into w until the buffer is closed and empty, then
// finalizes the file. A failed encode or write aborts the recording.
func (r *Recorder) work(w *sequence.FileWriter, buffer *CircularBuffer, path string, done chan struct{}) {
	defer close(done)

	for {
		f, ok := buffer.Pop(context.Background())
		if !ok {
			break
		}
		bufferDepth.Set(float64(buffer.Len()))

		encoded, err := r.encoder.Encode(f, r.EnableCompression())
		if err == nil {
			err = w.WriteFrame(encoded)
		}
		if err != nil {
			r.abort(w, buffer, path, err)
			return
		}
		r.frames.Add(1)
		framesWritten.Inc()
	}

	if err := w.Close(); err != nil {
		r.abort(nil, buffer, path, err)
		return
	}

	frames, lost := r.frames.Load(), r.lost.Load()
	elapsed := r.Elapsed()
	log.Printf("recording finalized: %s (%d frames, %d lost, %s)", path, frames, lost, elapsed)
	recordingsTotal.WithLabelValues("complete").Inc()
	r.bus.Publish(events.RecordingFinalized{
		Path:    path,
		Frames:  frames,
		Lost:    lost,
		Elapsed: elapsed,
		At:      r.clock.Now(),
	})
}

// abort stops the recording after an I/O failure. Queued frames are thrown
// away and the file keeps every record written before the failure.
func (r *Recorder) abort(w *sequence.FileWriter, buffer *CircularBuffer, path string, cause error) {
	if w != nil {
		if err := w.Close(); err != nil {
			log.Printf("closing %s after failure: %v", path, err)
		}
	}

	werr := &WriteError{Path: path, Frame: r.frames.Load(), Err: cause}

	r.mu.Lock()
	if r.state != Stopped {
		r.watch.pause(r.clock.Now())
		r.setState(Stopped)
	}
	buffer.Close()
	r.err = werr
	r.pending = werr
	r.mu.Unlock()

	discarded := buffer.Discard()
	bufferDepth.Set(0)
	writeErrors.Inc()
	recordingsTotal.WithLabelValues("failed").Inc()
	log.Printf("%v (%d queued frames discarded)", werr, discarded)
	r.bus.Publish(events.RecordingFailed{
		Path:      path,
		Frames:    werr.Frame,
		Discarded: discarded,
		Err:       werr,
		At:        r.clock.Now(),
	})
}
