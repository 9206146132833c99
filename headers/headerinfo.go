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

// Package headers reads and writes the YAML header a camera service sends
// at the start of a frame connection. The header is terminated by a blank
// line and is followed by fixed-size raw frames.
package headers

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v1"
)

// Header keys.
const (
	XResolution = "ResX"
	YResolution = "ResY"
	FPS         = "FPS"
	FrameSize   = "FrameSize"
	Model       = "Model"
	Brand       = "Brand"
	Serial      = "CameraSerial"
	Firmware    = "Firmware"
)

var ErrIncompleteHeader = errors.New("camera header is missing resolution, fps or frame size")

// HeaderInfo contains the camera description fields returned by a
// camera service.
type HeaderInfo struct {
	resX      int
	resY      int
	fps       int
	framesize int
	brand     string
	model     string
	serial    int
	firmware  string
}

func New(resX, resY, fps, framesize int, brand, model string) *HeaderInfo {
	return &HeaderInfo{
		resX:      resX,
		resY:      resY,
		fps:       fps,
		framesize: framesize,
		brand:     brand,
		model:     model,
	}
}

// ResX implements cptvframe.CameraSpec.
func (h *HeaderInfo) ResX() int {
	return h.resX
}

// ResY implements cptvframe.CameraSpec.
func (h *HeaderInfo) ResY() int {
	return h.resY
}

// FPS implements cptvframe.CameraSpec.
func (h *HeaderInfo) FPS() int {
	return h.fps
}

// FrameSize returns the number of bytes in each frame (include any
// telemetry bytes).
func (h *HeaderInfo) FrameSize() int {
	return h.framesize
}

func (h *HeaderInfo) Model() string {
	return h.model
}

func (h *HeaderInfo) Brand() string {
	return h.brand
}

// CameraSerial returns the camera serial number, or 0 if not sent.
func (h *HeaderInfo) CameraSerial() int {
	return h.serial
}

func (h *HeaderInfo) Firmware() string {
	return h.firmware
}

// Validate checks the fields needed to read frames are present.
func (h *HeaderInfo) Validate() error {
	if h.resX <= 0 || h.resY <= 0 || h.fps <= 0 || h.framesize <= 0 {
		return ErrIncompleteHeader
	}
	return nil
}

func (h *HeaderInfo) String() string {
	return fmt.Sprintf("%s %s (%dx%d@%dfps)", h.brand, h.model, h.resX, h.resY, h.fps)
}

// Write sends h in the form ReadHeaderInfo expects, including the
// terminating blank line.
func Write(w io.Writer, h *HeaderInfo) error {
	fields := map[string]interface{}{
		XResolution: h.resX,
		YResolution: h.resY,
		FPS:         h.fps,
		FrameSize:   h.framesize,
		Brand:       h.brand,
		Model:       h.model,
	}
	if h.serial != 0 {
		fields[Serial] = h.serial
	}
	if h.firmware != "" {
		fields[Firmware] = h.firmware
	}
	out, err := yaml.Marshal(fields)
	if err != nil {
		return err
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}

// ReadHeaderInfo reads a camera header from reader, leaving it positioned
// at the first frame.
func ReadHeaderInfo(reader *bufio.Reader) (*HeaderInfo, error) {
	var buf bytes.Buffer
	for {
		line, err := reader.ReadString(byte('\n'))
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		buf.WriteString(line)
	}
	h := make(map[string]interface{})
	err := yaml.Unmarshal(buf.Bytes(), &h)
	if err != nil {
		return nil, err
	}

	return &HeaderInfo{
		resX:      toInt(h[XResolution]),
		resY:      toInt(h[YResolution]),
		fps:       toInt(h[FPS]),
		framesize: toInt(h[FrameSize]),
		brand:     toStr(h[Brand]),
		model:     toStr(h[Model]),
		serial:    toInt(h[Serial]),
		firmware:  toStr(h[Firmware]),
	}, nil
}

func toInt(v interface{}) int {
	switch out := v.(type) {
	case int:
		return out
	case int64:
		return int(out)
	}
	return 0
}

func toStr(v interface{}) string {
	out, ok := v.(string)
	if !ok {
		return ""
	}
	return out
}
