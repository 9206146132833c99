// thermal-sequence-recorder - buffered recording of thermal frame sequences
//  Copyright (C) 2018, The Cacophony Project
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
	"io"
	"math/bits"
)

var errShortPayload = errors.New("thermal payload is truncated")

// Compressor losslessly packs thermal frames. Each frame is packed on its
// own so any record in a sequence can be decoded without its neighbours.
type Compressor struct {
	snaked    []int32
	adjDeltas []int32
	outBuf    *bytes.Buffer
}

func NewCompressor() *Compressor {
	return &Compressor{
		outBuf: new(bytes.Buffer),
	}
}

// Compress returns the bit width used and the packed pixels. The returned
// slice is only valid until the next call.
func (c *Compressor) Compress(pix [][]uint16) (uint8, []byte) {
	rows := len(pix)
	cols := len(pix[0])
	elems := rows * cols
	if cap(c.snaked) < elems {
		c.snaked = make([]int32, elems)
		c.adjDeltas = make([]int32, elems-1)
		c.outBuf.Grow(2 * elems) // 16 bits per element; worst case
	}
	c.snaked = c.snaked[:elems]
	c.adjDeltas = c.adjDeltas[:elems-1]

	// Walk the frame in a "snaked" fashion so the step from the end of one
	// row to the start of the next stays small.
	i := 0
	for y := 0; y < rows; y++ {
		if y%2 == 0 {
			for x := 0; x < cols; x++ {
				c.snaked[i] = int32(pix[y][x])
				i++
			}
		} else {
			for x := cols - 1; x >= 0; x-- {
				c.snaked[i] = int32(pix[y][x])
				i++
			}
		}
	}

	var maxD uint32
	for i := 0; i < len(c.snaked)-1; i++ {
		d := c.snaked[i+1] - c.snaked[i]
		c.adjDeltas[i] = d
		if absD := abs(d); absD > maxD {
			maxD = absD
		}
	}

	width := numBits(maxD) + 1 // add 1 to allow for sign bit

	// The first value is stored whole; everything after it is a delta.
	c.outBuf.Reset()
	binary.Write(c.outBuf, binary.LittleEndian, c.snaked[0])
	packBits(width, c.adjDeltas, c.outBuf)
	return width, c.outBuf.Bytes()
}

// Decompress reverses Compress for a frame of the given dimensions.
func Decompress(width uint8, cols, rows int, data []byte) ([][]uint16, error) {
	if width == 0 || width > 32 {
		return nil, errors.New("invalid bit width")
	}
	elems := cols * rows
	if elems == 0 {
		return nil, errors.New("empty thermal frame")
	}
	if len(data) < 4 {
		return nil, errShortPayload
	}
	first := int32(binary.LittleEndian.Uint32(data))
	deltas, err := unpackBits(width, elems-1, data[4:])
	if err != nil {
		return nil, err
	}

	pix := make([][]uint16, rows)
	for y := range pix {
		pix[y] = make([]uint16, cols)
	}
	v := first
	i := 0
	for y := 0; y < rows; y++ {
		for n := 0; n < cols; n++ {
			if i > 0 {
				v += deltas[i-1]
			}
			if v < 0 || v > 0xffff {
				return nil, errors.New("thermal pixel out of range")
			}
			x := n
			if y%2 == 1 {
				x = cols - 1 - n
			}
			pix[y][x] = uint16(v)
			i++
		}
	}
	return pix, nil
}

func packBits(width uint8, input []int32, w io.ByteWriter) {
	var bits uint32 // scratch buffer
	var nBits uint8 // number of bits in use in scratch
	for _, d := range input {
		bits |= twosComp(d, width) << (32 - width - nBits)
		nBits += width
		for nBits >= 8 {
			w.WriteByte(uint8(bits >> 24))
			bits <<= 8
			nBits -= 8
		}
	}
	if nBits > 0 {
		w.WriteByte(uint8(bits >> 24))
	}
}

func unpackBits(width uint8, n int, data []byte) ([]int32, error) {
	out := make([]int32, n)
	mask := uint64(1)<<width - 1
	var scratch uint64
	var nBits uint8
	pos := 0
	for i := range out {
		for nBits < width {
			if pos >= len(data) {
				return nil, errShortPayload
			}
			scratch = scratch<<8 | uint64(data[pos])
			pos++
			nBits += 8
		}
		v := (scratch >> (nBits - width)) & mask
		nBits -= width
		scratch &= uint64(1)<<nBits - 1
		out[i] = signExtend(uint32(v), width)
	}
	return out, nil
}

func abs(x int32) uint32 {
	if x < 0 {
		return uint32(-x)
	}
	return uint32(x)
}

func twosComp(v int32, width uint8) uint32 {
	if v >= 0 {
		return uint32(v)
	}
	widthMask := uint32((1 << width) - 1) // all 1's for the target width
	return uint32(-(v+1))&widthMask ^ widthMask
}

func signExtend(v uint32, width uint8) int32 {
	if v&(1<<(width-1)) != 0 {
		return int32(int64(v) - int64(1)<<width)
	}
	return int32(v)
}

func numBits(x uint32) uint8 {
	return uint8(bits.Len32(x))
}
