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

package motion

import (
	"fmt"
	"math"
	"strings"
)

// pixelStats accumulates per-frame detector counts so verbose mode can log
// a summary instead of a line per frame.
type pixelStats struct {
	values map[string]*stat
}

func newPixelStats() *pixelStats {
	return &pixelStats{
		values: make(map[string]*stat),
	}
}

func (p *pixelStats) update(name string, x int) {
	if p == nil {
		return
	}
	s := p.values[name]
	if s == nil {
		s = newStat()
		p.values[name] = s
	}
	s.update(x)
}

func (p *pixelStats) reset() {
	if p == nil {
		return
	}
	for _, s := range p.values {
		s.reset()
	}
}

// summary renders the named values, e.g. "deltas:max nonzero:all".
// Styles are "n", "min", "max", "avg" and "all".
func (p *pixelStats) summary(format string) string {
	if p == nil {
		return ""
	}
	var out []string
	for _, field := range strings.Fields(format) {
		parts := strings.Split(field, ":")
		if len(parts) != 2 {
			continue
		}
		if s := p.values[parts[0]]; s != nil {
			out = append(out, fmt.Sprintf("%s: %s", parts[0], s.format(parts[1])))
		}
	}
	return strings.Join(out, "; ")
}

func newStat() *stat {
	s := new(stat)
	s.reset()
	return s
}

type stat struct {
	n   int
	min int
	max int
	avg float64
}

func (s *stat) reset() {
	s.n = 0
	s.max = math.MinInt32
	s.min = math.MaxInt32
	s.avg = 0
}

func (s *stat) update(x int) {
	s.n++
	if x > s.max {
		s.max = x
	}
	if x < s.min {
		s.min = x
	}
	s.avg += (float64(x) - s.avg) / float64(s.n)
}

func (s *stat) format(style string) string {
	switch style {
	case "n":
		return fmt.Sprint(s.n)
	case "min":
		return fmt.Sprint(s.min) + "(min)"
	case "max":
		return fmt.Sprint(s.max) + "(max)"
	case "avg":
		return fmt.Sprintf("%.2f(avg)", s.avg)
	case "all":
		return fmt.Sprintf("%d -> %d (avg: %.2f)", s.min, s.max, s.avg)
	}
	return "???"
}
