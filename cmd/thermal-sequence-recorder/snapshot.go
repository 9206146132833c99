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
	"image"
	"image/color"
	"image/png"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
	"github.com/juju/ratelimit"
)

const (
	snapshotName          = "still.png"
	rawSnapshotName       = "still-raw.png"
	allowedSnapshotPeriod = 500 * time.Millisecond
)

var errNoFrames = errors.New("no frames yet")

// snapshotter writes the latest camera frame to dir as a PNG.
type snapshotter struct {
	dir   string
	clock ratelimit.Clock

	mu                   sync.Mutex
	previousSnapshotID   int
	previousSnapshotTime time.Time
}

func newSnapshotter(dir string, clock ratelimit.Clock) *snapshotter {
	return &snapshotter{dir: dir, clock: clock}
}

// take saves f, normalised to the full 16 bit range unless raw is set.
// Requests closer together than allowedSnapshotPeriod, or for a frame
// identical to the last one saved, are ignored.
func (s *snapshotter) take(f *cptvframe.Frame, raw bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clock.Now().Sub(s.previousSnapshotTime) < allowedSnapshotPeriod {
		return nil
	}
	if f == nil || len(f.Pix) == 0 {
		return errNoFrames
	}

	var valMax uint16
	var valMin uint16 = math.MaxUint16
	var id int
	for _, row := range f.Pix {
		for _, val := range row {
			id += int(val)
			valMax = max(valMax, val)
			valMin = min(valMin, val)
		}
	}
	if id == s.previousSnapshotID {
		return nil
	}

	var norm uint16
	if valMax > valMin {
		norm = math.MaxUint16 / (valMax - valMin)
	}
	g16 := image.NewGray16(image.Rect(0, 0, len(f.Pix[0]), len(f.Pix)))
	for y, row := range f.Pix {
		for x, val := range row {
			if raw {
				g16.SetGray16(x, y, color.Gray16{Y: val})
			} else {
				g16.SetGray16(x, y, color.Gray16{Y: (val - valMin) * norm})
			}
		}
	}

	filename := snapshotName
	if raw {
		filename = rawSnapshotName
	}
	out, err := os.Create(filepath.Join(s.dir, filename))
	if err != nil {
		return err
	}
	defer out.Close()
	if err := png.Encode(out, g16); err != nil {
		return err
	}

	s.previousSnapshotID = id
	s.previousSnapshotTime = s.clock.Now()
	return nil
}

func (s *snapshotter) delete() {
	for _, name := range []string{snapshotName, rawSnapshotName} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			log.Printf("error deleting snapshot image: %v", err)
		}
	}
}
