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
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"time"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
)

// Reader decodes a sequence file record by record.
type Reader struct {
	src    io.Reader
	br     *bufio.Reader
	offset int64
	header Header
}

// NewReader reads and checks the preamble and header of a sequence.
func NewReader(r io.Reader) (*Reader, error) {
	rd := &Reader{
		src: r,
		br:  bufio.NewReader(r),
	}
	if err := rd.readHeader(); err != nil {
		return nil, err
	}
	return rd, nil
}

func (r *Reader) Header() Header {
	return r.header
}

// Offset returns the file offset of the next record.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Next decodes the next frame. It returns io.EOF after the last complete
// record and io.ErrUnexpectedEOF if the file ends inside a record.
func (r *Reader) Next() (*Frame, error) {
	fields, payload, err := r.nextRecord(true)
	if err != nil {
		return nil, err
	}
	return decodeFrame(fields, payload)
}

// Skip moves past the next frame without decoding its payload, returning
// the frame's timestamp.
func (r *Reader) Skip() (time.Time, error) {
	fields, _, err := r.nextRecord(false)
	if err != nil {
		return time.Time{}, err
	}
	return fields.getTimestamp(Timestamp)
}

// ReadAt decodes the frame record starting at offset. The underlying reader
// must be an io.Seeker. Subsequent calls to Next continue from the record
// after it.
func (r *Reader) ReadAt(offset int64) (*Frame, error) {
	seeker, ok := r.src.(io.Seeker)
	if !ok {
		return nil, errors.New("sequence reader is not seekable")
	}
	if _, err := seeker.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	r.br.Reset(r.src)
	r.offset = offset
	return r.Next()
}

func (r *Reader) readHeader() error {
	pre := make([]byte, len(magic)+1)
	if err := r.readFull(pre); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return ErrBadMagic
		}
		return err
	}
	if string(pre[:len(magic)]) != magic {
		return ErrBadMagic
	}
	if pre[len(magic)] != version {
		return ErrBadVersion
	}

	code, err := r.readByte()
	if err != nil {
		return noEOF(err)
	}
	if code != headerSection {
		return fmt.Errorf("expected header section, got %q", code)
	}
	fields, err := r.readFields()
	if err != nil {
		return err
	}
	r.header, err = parseHeader(fields)
	return err
}

func (r *Reader) nextRecord(withPayload bool) (fieldMap, []byte, error) {
	start := r.offset
	code, err := r.readByte()
	if err != nil {
		return nil, nil, err
	}
	if code != frameSection {
		return nil, nil, fmt.Errorf("unexpected section %q at offset %d", code, start)
	}
	fields, err := r.readFields()
	if err != nil {
		return nil, nil, err
	}

	size := int(fields.getUint32(FrameSize)) + int(fields.getUint32(VisualSize))
	if !withPayload {
		n, err := r.br.Discard(size)
		r.offset += int64(n)
		return fields, nil, noEOF(err)
	}
	payload := make([]byte, size)
	if err := r.readFull(payload); err != nil {
		return nil, nil, noEOF(err)
	}
	return fields, payload, nil
}

func (r *Reader) readFields() (fieldMap, error) {
	n, err := r.readByte()
	if err != nil {
		return nil, noEOF(err)
	}
	fields := make(fieldMap, n)
	var lenCode [2]byte
	for i := 0; i < int(n); i++ {
		if err := r.readFull(lenCode[:]); err != nil {
			return nil, noEOF(err)
		}
		v := make([]byte, lenCode[0])
		if err := r.readFull(v); err != nil {
			return nil, noEOF(err)
		}
		fields[lenCode[1]] = v
	}
	return fields, nil
}

func (r *Reader) readFull(p []byte) error {
	n, err := io.ReadFull(r.br, p)
	r.offset += int64(n)
	return err
}

func (r *Reader) readByte() (byte, error) {
	b, err := r.br.ReadByte()
	if err == nil {
		r.offset++
	}
	return b, err
}

func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func decodeFrame(fields fieldMap, payload []byte) (*Frame, error) {
	ts, err := fields.getTimestamp(Timestamp)
	if err != nil {
		return nil, err
	}
	f := &Frame{Timestamp: ts}

	size := int(fields.getUint32(FrameSize))
	data, visual := payload[:size], payload[size:]
	compression := fields.getUint8(Compression)

	switch kind := fields.getUint8(Kind); kind {
	case KindRaw:
		switch compression {
		case CompressionNone:
			f.Raw = data
		case CompressionZstd:
			if f.Raw, err = zstdDecoder.DecodeAll(data, nil); err != nil {
				return nil, fmt.Errorf("raw frame decompression failed: %w", err)
			}
		default:
			return nil, fmt.Errorf("unknown raw compression %d", compression)
		}
	case KindThermal:
		if f.Thermal, err = decodeThermal(fields, compression, data); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown frame kind %d", kind)
	}

	switch format := fields.getUint8(VisualFormat); format {
	case VisualNone:
	case VisualPNG:
		if f.Visual, err = png.Decode(bytes.NewReader(visual)); err != nil {
			return nil, fmt.Errorf("visual png decoding failed: %w", err)
		}
	case VisualJPEG:
		f.VisualJPEG = visual
		if f.Visual, err = jpeg.Decode(bytes.NewReader(visual)); err != nil {
			return nil, fmt.Errorf("visual jpeg decoding failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown visual format %d", format)
	}
	return f, nil
}

func decodeThermal(fields fieldMap, compression uint8, data []byte) (*cptvframe.Frame, error) {
	cols := int(fields.getUint32(XResolution))
	rows := int(fields.getUint32(YResolution))

	var pix [][]uint16
	switch compression {
	case CompressionNone:
		if len(data) != 2*cols*rows {
			return nil, fmt.Errorf("thermal payload is %d bytes, want %d", len(data), 2*cols*rows)
		}
		pix = make([][]uint16, rows)
		for y := range pix {
			pix[y] = make([]uint16, cols)
			for x := range pix[y] {
				pix[y][x] = binary.LittleEndian.Uint16(data[2*(y*cols+x):])
			}
		}
	case CompressionPacked:
		var err error
		if pix, err = Decompress(fields.getUint8(BitWidth), cols, rows, data); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown thermal compression %d", compression)
	}

	fr := &cptvframe.Frame{Pix: pix}
	fr.Status.FrameCount = int(fields.getUint32(FrameCount))
	fr.Status.TimeOn = time.Duration(fields.getUint32(TimeOn)) * time.Millisecond
	return fr, nil
}
