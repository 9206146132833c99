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

package sequence

import (
	"fmt"
	"io"
	"os"
)

// Create truncates or creates the file at filename and writes the sequence
// header to it.
func Create(filename string, h Header) (*FileWriter, error) {
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	fw := NewWriter(f)
	if err := fw.WriteHeader(h); err != nil {
		f.Close()
		return nil, err
	}
	return fw, nil
}

// File is what a FileWriter writes to. *os.File satisfies it.
type File interface {
	io.WriteCloser
	io.Seeker
	Truncate(size int64) error
	Sync() error
	Name() string
}

func NewWriter(f File) *FileWriter {
	return &FileWriter{f: f}
}

// FileWriter appends whole records to a sequence file. A record is either
// written completely or not at all: after a failed write the file is cut
// back to the end of the last complete record.
type FileWriter struct {
	f      File
	size   int64
	frames int
	buf    []byte
}

func (fw *FileWriter) WriteHeader(h Header) error {
	fieldData, numFields := h.fields().Bytes()
	fw.buf = append(fw.buf[:0], magic...)
	fw.buf = append(fw.buf, version, headerSection, byte(numFields))
	fw.buf = append(fw.buf, fieldData...)
	return fw.writeRecord(fw.buf)
}

func (fw *FileWriter) WriteFrame(e *EncodedFrame) error {
	fieldData, numFields := e.Fields.Bytes()
	fw.buf = append(fw.buf[:0], frameSection, byte(numFields))
	fw.buf = append(fw.buf, fieldData...)
	fw.buf = append(fw.buf, e.Payload...)
	if err := fw.writeRecord(fw.buf); err != nil {
		return err
	}
	fw.frames++
	return nil
}

func (fw *FileWriter) writeRecord(b []byte) error {
	n, err := fw.f.Write(b)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	if err != nil {
		if n > 0 {
			if rerr := fw.rollback(); rerr != nil {
				return fmt.Errorf("%w; partial record left in %s: %w", err, fw.f.Name(), rerr)
			}
		}
		return err
	}
	fw.size += int64(n)
	return nil
}

// rollback cuts the file back to the end of the last complete record.
func (fw *FileWriter) rollback() error {
	if err := fw.f.Truncate(fw.size); err != nil {
		return err
	}
	_, err := fw.f.Seek(fw.size, io.SeekStart)
	return err
}

// Frames returns the number of frame records written.
func (fw *FileWriter) Frames() int {
	return fw.frames
}

// Size returns the number of bytes in complete records.
func (fw *FileWriter) Size() int64 {
	return fw.size
}

func (fw *FileWriter) Name() string {
	return fw.f.Name()
}

// Close flushes the file to stable storage and closes it.
func (fw *FileWriter) Close() error {
	if err := fw.f.Sync(); err != nil {
		fw.f.Close()
		return err
	}
	return fw.f.Close()
}
