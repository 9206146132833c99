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
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/maruel/interrupt"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/player"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/sequence"
)

func play(w io.Writer, cmd *PlayCmd) error {
	p, err := player.Open(cmd.File)
	if err != nil {
		return err
	}
	defer p.Close()

	if cmd.Rate != 0 {
		if err := p.SetPlaybackRate(cmd.Rate); err != nil {
			return err
		}
	}
	if cmd.From > 0 {
		if _, err := p.Select(cmd.From); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-interrupt.Channel:
			cancel()
		case <-ctx.Done():
		}
	}()

	err = p.Play(ctx, func(i int, f *sequence.Frame) bool {
		fmt.Fprintln(w, describeFrame(i, f))
		return true
	})
	if err == context.Canceled {
		return nil
	}
	return err
}

func describeFrame(i int, f *sequence.Frame) string {
	desc := fmt.Sprintf("%5d %s", i, f.Timestamp.Format("15:04:05.000"))
	if f.Thermal != nil {
		lo, hi := thermalRange(f.Thermal.Pix)
		desc += fmt.Sprintf(" thermal %d-%d", lo, hi)
		if on := f.Thermal.Status.TimeOn; on > 0 {
			desc += fmt.Sprintf(" on %s", on.Round(time.Second))
		}
	} else {
		desc += fmt.Sprintf(" raw %d bytes", len(f.Raw))
	}
	if f.Visual != nil {
		b := f.Visual.Bounds()
		desc += fmt.Sprintf(" visual %dx%d", b.Dx(), b.Dy())
	}
	return desc
}

func thermalRange(pix [][]uint16) (lo, hi uint16) {
	lo = math.MaxUint16
	for _, row := range pix {
		for _, v := range row {
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	return lo, hi
}
