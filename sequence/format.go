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

// Package sequence implements the thermal sequence file: a magic/version
// preamble, one header section, then one self-contained section per frame.
// Sections carry typed fields in the CPTV field encoding followed by the
// frame payload.
package sequence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	cptv "github.com/TheCacophonyProject/go-cptv"
)

const (
	magic        = "CPTS"
	version byte = 0x01

	headerSection = 'H'
	frameSection  = 'F'

	// Header fields
	Timestamp   byte = 'T'
	RecordingID byte = 'U'
	DeviceName  byte = 'D'
	DeviceID    byte = 'I'
	Brand       byte = 'B'
	Model       byte = 'M'
	FPS         byte = 'Z'
	XResolution byte = 'X'
	YResolution byte = 'Y'

	// Frame fields (Timestamp, XResolution and YResolution are shared)
	Kind         byte = 'k'
	Compression  byte = 'c'
	FrameSize    byte = 'f'
	BitWidth     byte = 'w'
	FrameCount   byte = 'n'
	TimeOn       byte = 'o'
	VisualSize   byte = 'v'
	VisualFormat byte = 'V'
)

// Payload kinds.
const (
	KindRaw     uint8 = 0
	KindThermal uint8 = 1
)

// Compression schemes, recorded per frame.
const (
	CompressionNone   uint8 = 0
	CompressionPacked uint8 = 1 // lossless thermal bit packing
	CompressionZstd   uint8 = 2 // raw blobs
)

// Visual image formats.
const (
	VisualNone uint8 = 0
	VisualPNG  uint8 = 1
	VisualJPEG uint8 = 2
)

var (
	ErrBadMagic   = errors.New("not a thermal sequence file")
	ErrBadVersion = errors.New("unsupported thermal sequence version")
)

// Header describes a whole recording. Zero fields are omitted from the file.
type Header struct {
	RecordingID string
	Timestamp   time.Time
	DeviceName  string
	DeviceID    int
	Brand       string
	Model       string
	FPS         int
	ResX        int
	ResY        int
}

func (h *Header) fields() *cptv.FieldWriter {
	fields := cptv.NewFieldWriter()
	if !h.Timestamp.IsZero() {
		fields.Timestamp(Timestamp, h.Timestamp)
	}
	if h.RecordingID != "" {
		fields.String(RecordingID, truncate(h.RecordingID))
	}
	if h.DeviceName != "" {
		fields.String(DeviceName, truncate(h.DeviceName))
	}
	if h.DeviceID > 0 {
		fields.Uint32(DeviceID, uint32(h.DeviceID))
	}
	if h.Brand != "" {
		fields.String(Brand, truncate(h.Brand))
	}
	if h.Model != "" {
		fields.String(Model, truncate(h.Model))
	}
	if h.FPS > 0 {
		fields.Uint8(FPS, uint8(h.FPS))
	}
	if h.ResX > 0 && h.ResY > 0 {
		fields.Uint32(XResolution, uint32(h.ResX))
		fields.Uint32(YResolution, uint32(h.ResY))
	}
	return fields
}

// String fields carry a one byte length.
func truncate(s string) string {
	if len(s) > 255 {
		return s[:255]
	}
	return s
}

func parseHeader(f fieldMap) (Header, error) {
	var h Header
	var err error
	if h.Timestamp, err = f.getTimestamp(Timestamp); err != nil {
		return h, err
	}
	h.RecordingID = f.getString(RecordingID)
	h.DeviceName = f.getString(DeviceName)
	h.Brand = f.getString(Brand)
	h.Model = f.getString(Model)
	h.DeviceID = int(f.getUint32(DeviceID))
	h.FPS = int(f.getUint8(FPS))
	h.ResX = int(f.getUint32(XResolution))
	h.ResY = int(f.getUint32(YResolution))
	return h, nil
}

// fieldMap holds the raw values of one section's fields keyed by code.
type fieldMap map[byte][]byte

func (f fieldMap) getUint8(code byte) uint8 {
	if v := f[code]; len(v) == 1 {
		return v[0]
	}
	return 0
}

func (f fieldMap) getUint32(code byte) uint32 {
	if v := f[code]; len(v) == 4 {
		return binary.LittleEndian.Uint32(v)
	}
	return 0
}

func (f fieldMap) getString(code byte) string {
	return string(f[code])
}

// Timestamps are stored as microseconds since the epoch.
func (f fieldMap) getTimestamp(code byte) (time.Time, error) {
	v, ok := f[code]
	if !ok {
		return time.Time{}, nil
	}
	if len(v) != 8 {
		return time.Time{}, fmt.Errorf("timestamp field %q has %d bytes", code, len(v))
	}
	return time.UnixMicro(int64(binary.LittleEndian.Uint64(v))), nil
}
