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

// Package motion finds warm moving objects in thermal frames and starts
// and stops recordings around them.
package motion

import (
	"log"

	"github.com/TheCacophonyProject/go-cptv/cptvframe"
)

const (
	noData               = -1
	tooManyPointsChanged = -2

	statsLogInterval = 100
)

// Detector compares each frame with one FrameCompareGap frames earlier,
// after flooring both at TempThresh, and reports motion when enough
// pixels changed by more than DeltaThresh.
type Detector struct {
	cols          int
	rows          int
	flooredFrames *FrameLoop
	diffFrames    *FrameLoop
	firstDiff     bool
	useOneDiff    bool
	tempThresh    uint16
	deltaThresh   uint16
	countThresh   int
	nonzeroLimit  int
	verbose       bool
	warmerOnly    bool
	stats         *pixelStats
	processed     int
}

func NewDetector(conf Config, cols, rows int) *Detector {
	d := &Detector{
		cols:          cols,
		rows:          rows,
		flooredFrames: NewFrameLoop(conf.FrameCompareGap+1, cols, rows),
		diffFrames:    NewFrameLoop(2, cols, rows),
		useOneDiff:    conf.UseOneDiffOnly,
		tempThresh:    conf.TempThresh,
		deltaThresh:   conf.DeltaThresh,
		countThresh:   conf.CountThresh,
		nonzeroLimit:  cols * rows * conf.NonzeroMaxPercent / 100,
		verbose:       conf.Verbose,
		warmerOnly:    conf.WarmerOnly,
	}
	if d.verbose {
		d.stats = newPixelStats()
	}
	return d
}

// Detect reports whether frame shows motion. Frames of the wrong size are
// ignored.
func (d *Detector) Detect(frame *cptvframe.Frame) bool {
	if len(frame.Pix) != d.rows || d.rows == 0 || len(frame.Pix[0]) != d.cols {
		return false
	}
	movement, deltas := d.pixelsChanged(frame)
	if d.verbose {
		d.logStats(deltas)
	}
	return movement
}

func (d *Detector) logStats(deltas int) {
	d.stats.update("deltas", deltas)
	d.processed++
	if d.processed%statsLogInterval == 0 {
		log.Printf("motion: %s", d.stats.summary("deltas:all"))
		d.stats.reset()
	}
}

func (d *Detector) pixelsChanged(frame *cptvframe.Frame) (bool, int) {
	processedFrame := d.flooredFrames.Current()
	d.setFloor(frame, processedFrame)

	compareFrame := d.flooredFrames.Oldest()
	defer d.flooredFrames.Move()

	diffFrame := d.diffFrames.Current()
	if d.warmerOnly {
		d.diff(processedFrame, compareFrame, diffFrame, warmerDiff)
	} else {
		d.diff(processedFrame, compareFrame, diffFrame, absDiff)
	}
	prevDiffFrame := d.diffFrames.Move()

	if !d.firstDiff {
		d.firstDiff = true
		return false, noData
	}

	if d.useOneDiff {
		return d.hasMotion(diffFrame, nil)
	}
	return d.hasMotion(diffFrame, prevDiffFrame)
}

func (d *Detector) setFloor(f, out *cptvframe.Frame) {
	for y := 0; y < d.rows; y++ {
		for x := 0; x < d.cols; x++ {
			v := f.Pix[y][x]
			if v < d.tempThresh {
				v = d.tempThresh
			}
			out.Pix[y][x] = v
		}
	}
}

// countPixels counts the non-zero pixels of f1 and those above
// DeltaThresh. With f2 set, a pixel counts only where both frames changed.
func (d *Detector) countPixels(f1, f2 *cptvframe.Frame) (nonzeros, deltas int) {
	for y := 0; y < d.rows; y++ {
		for x := 0; x < d.cols; x++ {
			v1 := f1.Pix[y][x]
			if f2 == nil {
				if v1 > 0 {
					nonzeros++
					if v1 > d.deltaThresh {
						deltas++
					}
				}
				continue
			}
			v2 := f2.Pix[y][x]
			if v1 > 0 || v2 > 0 {
				nonzeros++
				if v1 > d.deltaThresh && v2 > d.deltaThresh {
					deltas++
				}
			}
		}
	}
	return nonzeros, deltas
}

func (d *Detector) hasMotion(f1, f2 *cptvframe.Frame) (bool, int) {
	nonzeros, deltas := d.countPixels(f1, f2)

	// A sudden jump across most of the frame is the camera recalibrating,
	// not motion.
	if nonzeros > d.nonzeroLimit {
		log.Print("motion detector: too many points changed, probably a recalibration")
		d.flooredFrames.SetAsOldest()
		d.firstDiff = false
		return false, tooManyPointsChanged
	}
	return deltas >= d.countThresh, deltas
}

func (d *Detector) diff(a, b, out *cptvframe.Frame, op func(a, b uint16) uint16) {
	for y := 0; y < d.rows; y++ {
		for x := 0; x < d.cols; x++ {
			out.Pix[y][x] = op(a.Pix[y][x], b.Pix[y][x])
		}
	}
}

func absDiff(a, b uint16) uint16 {
	d := int32(a) - int32(b)
	if d < 0 {
		return uint16(-d)
	}
	return uint16(d)
}

func warmerDiff(a, b uint16) uint16 {
	d := int32(a) - int32(b)
	if d < 0 {
		return 0
	}
	return uint16(d)
}
