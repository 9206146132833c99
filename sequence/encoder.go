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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"sync"
	"time"

	cptv "github.com/TheCacophonyProject/go-cptv"
	"github.com/TheCacophonyProject/go-cptv/cptvframe"
	"github.com/klauspost/compress/zstd"
)

const defaultJPEGQuality = 90

var ErrEmptyFrame = errors.New("frame has no raw or thermal data")

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// EncodedFrame is a frame ready to be appended to a sequence file.
type EncodedFrame struct {
	Fields  *cptv.FieldWriter
	Payload []byte
}

// FrameEncoder converts frames into file records. compress is the
// recorder's compression setting when the frame was taken off the buffer.
type FrameEncoder interface {
	Encode(f *Frame, compress bool) (*EncodedFrame, error)
}

// Encoder is the default FrameEncoder. With compression on, raw frames
// are zstd compressed, thermal images are bit packed losslessly and
// visual images are stored as JPEG. With compression off everything is
// stored losslessly and uncompressed, visual images as PNG.
type Encoder struct {
	JPEGQuality int

	mu   sync.Mutex
	comp *Compressor
}

func NewEncoder() *Encoder {
	return &Encoder{
		JPEGQuality: defaultJPEGQuality,
		comp:        NewCompressor(),
	}
}

func (e *Encoder) Encode(f *Frame, compress bool) (*EncodedFrame, error) {
	fields := cptv.NewFieldWriter()
	if !f.Timestamp.IsZero() {
		fields.Timestamp(Timestamp, f.Timestamp)
	}

	var payload bytes.Buffer
	switch {
	case f.Thermal != nil:
		if err := e.encodeThermal(fields, &payload, f.Thermal, compress); err != nil {
			return nil, err
		}
	case f.Raw != nil:
		fields.Uint8(Kind, KindRaw)
		if compress {
			fields.Uint8(Compression, CompressionZstd)
			payload.Write(zstdEncoder.EncodeAll(f.Raw, nil))
		} else {
			fields.Uint8(Compression, CompressionNone)
			payload.Write(f.Raw)
		}
	default:
		return nil, ErrEmptyFrame
	}
	fields.Uint32(FrameSize, uint32(payload.Len()))

	visual, format, err := e.encodeVisual(f, compress)
	if err != nil {
		return nil, err
	}
	if format != VisualNone {
		fields.Uint8(VisualFormat, format)
		fields.Uint32(VisualSize, uint32(len(visual)))
		payload.Write(visual)
	}

	return &EncodedFrame{
		Fields:  fields,
		Payload: payload.Bytes(),
	}, nil
}

func (e *Encoder) encodeThermal(fields *cptv.FieldWriter, out *bytes.Buffer, fr *cptvframe.Frame, compress bool) error {
	rows := len(fr.Pix)
	if rows == 0 || len(fr.Pix[0]) == 0 {
		return errors.New("thermal frame has no pixels")
	}
	cols := len(fr.Pix[0])
	for y, row := range fr.Pix {
		if len(row) != cols {
			return fmt.Errorf("thermal frame row %d has %d pixels, want %d", y, len(row), cols)
		}
	}

	fields.Uint8(Kind, KindThermal)
	fields.Uint32(XResolution, uint32(cols))
	fields.Uint32(YResolution, uint32(rows))
	fields.Uint32(FrameCount, uint32(fr.Status.FrameCount))
	fields.Uint32(TimeOn, uint32(fr.Status.TimeOn/time.Millisecond))

	if !compress {
		fields.Uint8(Compression, CompressionNone)
		out.Grow(2 * rows * cols)
		b := make([]byte, 2)
		for _, row := range fr.Pix {
			for _, v := range row {
				binary.LittleEndian.PutUint16(b, v)
				out.Write(b)
			}
		}
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	width, data := e.comp.Compress(fr.Pix)
	fields.Uint8(Compression, CompressionPacked)
	fields.Uint8(BitWidth, width)
	out.Write(data)
	return nil
}

func (e *Encoder) encodeVisual(f *Frame, compress bool) ([]byte, uint8, error) {
	if len(f.VisualJPEG) > 0 {
		return f.VisualJPEG, VisualJPEG, nil
	}
	if f.Visual == nil {
		return nil, VisualNone, nil
	}

	var buf bytes.Buffer
	if compress {
		quality := e.JPEGQuality
		if quality <= 0 {
			quality = defaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, f.Visual, &jpeg.Options{Quality: quality}); err != nil {
			return nil, VisualNone, fmt.Errorf("visual jpeg encoding failed: %w", err)
		}
		return buf.Bytes(), VisualJPEG, nil
	}
	if err := png.Encode(&buf, f.Visual); err != nil {
		return nil, VisualNone, fmt.Errorf("visual png encoding failed: %w", err)
	}
	return buf.Bytes(), VisualPNG, nil
}
