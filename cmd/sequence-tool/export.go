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

package main

import (
	"errors"
	"fmt"
	"os"

	cptv "github.com/TheCacophonyProject/go-cptv"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/player"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/sequence"
)

const defaultFPS = 9

// camera describes the exported footage to the CPTV writer.
type camera struct {
	resX, resY, fps int
}

func (c camera) ResX() int { return c.resX }
func (c camera) ResY() int { return c.resY }
func (c camera) FPS() int  { return c.fps }

// exportCPTV writes the thermal frames of a sequence to a CPTV file. Every
// frame must carry a thermal image of the same size.
func exportCPTV(filename, out string) (int, error) {
	p, err := player.Open(filename)
	if err != nil {
		return 0, err
	}
	defer p.Close()

	first, err := p.First()
	if err != nil {
		return 0, err
	}
	if first.Thermal == nil || len(first.Thermal.Pix) == 0 {
		return 0, errors.New("frame 0 has no thermal image")
	}

	h := p.Header()
	cam := camera{
		resX: len(first.Thermal.Pix[0]),
		resY: len(first.Thermal.Pix),
		fps:  h.FPS,
	}
	if cam.fps == 0 {
		cam.fps = defaultFPS
	}

	writer, err := cptv.NewFileWriter(out, cam)
	if err != nil {
		return 0, err
	}
	err = writer.WriteHeader(cptv.Header{
		DeviceName: h.DeviceName,
		DeviceID:   h.DeviceID,
		FPS:        cam.fps,
		Brand:      h.Brand,
		Model:      h.Model,
	})
	if err != nil {
		writer.Close()
		os.Remove(out)
		return 0, err
	}

	exported := 0
	var frameErr error
	err = p.ForEach(func(i int, f *sequence.Frame) bool {
		if f.Thermal == nil {
			frameErr = fmt.Errorf("frame %d has no thermal image", i)
			return false
		}
		if len(f.Thermal.Pix) != cam.resY || len(f.Thermal.Pix[0]) != cam.resX {
			frameErr = fmt.Errorf("frame %d is %dx%d, want %dx%d",
				i, len(f.Thermal.Pix[0]), len(f.Thermal.Pix), cam.resX, cam.resY)
			return false
		}
		if frameErr = writer.WriteFrame(f.Thermal); frameErr != nil {
			return false
		}
		exported++
		return true
	})
	if err == nil {
		err = frameErr
	}
	writer.Close()
	if err != nil {
		os.Remove(out)
		return 0, err
	}
	return exported, nil
}
