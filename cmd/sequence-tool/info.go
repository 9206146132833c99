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
	"fmt"
	"io"
	"time"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/player"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/sequence"
)

type frameKinds struct {
	thermal, raw, visual int
}

func countKinds(p *player.Player) (frameKinds, error) {
	var kinds frameKinds
	err := p.ForEach(func(_ int, f *sequence.Frame) bool {
		if f.Thermal != nil {
			kinds.thermal++
		} else {
			kinds.raw++
		}
		if f.Visual != nil {
			kinds.visual++
		}
		return true
	})
	return kinds, err
}

func printInfo(w io.Writer, filename string) error {
	p, err := player.Open(filename)
	if err != nil {
		return err
	}
	defer p.Close()

	kinds, err := countKinds(p)
	if err != nil {
		return err
	}

	h := p.Header()
	fmt.Fprintf(w, "file:      %s\n", filename)
	fmt.Fprintf(w, "recording: %s\n", h.RecordingID)
	if !h.Timestamp.IsZero() {
		fmt.Fprintf(w, "started:   %s\n", h.Timestamp.Format(time.RFC3339))
	}
	if h.DeviceName != "" || h.DeviceID > 0 {
		fmt.Fprintf(w, "device:    %s (%d)\n", h.DeviceName, h.DeviceID)
	}
	fmt.Fprintf(w, "camera:    %s %s (%dx%d@%dfps)\n", h.Brand, h.Model, h.ResX, h.ResY, h.FPS)
	fmt.Fprintf(w, "frames:    %d (%d thermal, %d raw, %d with visual)\n",
		p.FrameCount(), kinds.thermal, kinds.raw, kinds.visual)
	fmt.Fprintf(w, "duration:  %s\n", p.Duration())
	return nil
}
