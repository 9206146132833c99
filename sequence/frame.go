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
	"image"
	"time"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
)

// Frame is one unit of a sequence: an opaque camera frame or a decoded
// thermal image, optionally paired with a visual image. When both Raw and
// Thermal are set, Thermal is recorded.
type Frame struct {
	Timestamp time.Time
	Raw       []byte
	Thermal   *cptvframe.Frame
	Visual    image.Image
	// VisualJPEG is an already compressed visual image. It is written as is
	// and takes precedence over Visual.
	VisualJPEG []byte
}

// Clone returns a deep copy of the frame's pixel data. Visual images are
// treated as immutable and shared.
func (f *Frame) Clone() *Frame {
	c := *f
	if f.Raw != nil {
		c.Raw = append([]byte(nil), f.Raw...)
	}
	if f.Thermal != nil {
		c.Thermal = CopyThermal(f.Thermal)
	}
	if f.VisualJPEG != nil {
		c.VisualJPEG = append([]byte(nil), f.VisualJPEG...)
	}
	return &c
}

// CopyThermal returns a deep copy of a thermal frame.
func CopyThermal(src *cptvframe.Frame) *cptvframe.Frame {
	dst := &cptvframe.Frame{
		Status: src.Status,
		Pix:    make([][]uint16, len(src.Pix)),
	}
	for y, row := range src.Pix {
		dst.Pix[y] = append([]uint16(nil), row...)
	}
	return dst
}
