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

package recorder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "thermal_sequence",
		Subsystem: "recorder",
		Name:      "frames_written_total",
		Help:      "Frames appended to sequence files",
	})

	framesLost = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "thermal_sequence",
		Subsystem: "recorder",
		Name:      "frames_lost_total",
		Help:      "Frames dropped because the recording buffer was full",
	})

	framesFiltered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "thermal_sequence",
		Subsystem: "recorder",
		Name:      "frames_filtered_total",
		Help:      "Frames discarded by the frame interval throttle",
	})

	recordingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thermal_sequence",
		Subsystem: "recorder",
		Name:      "recordings_total",
		Help:      "Recordings ended, by outcome",
	}, []string{"outcome"})

	writeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "thermal_sequence",
		Subsystem: "recorder",
		Name:      "write_errors_total",
		Help:      "Recordings aborted by a write failure",
	})

	bufferDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "thermal_sequence",
		Subsystem: "recorder",
		Name:      "buffer_depth",
		Help:      "Frames waiting to be written",
	})

	recorderState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "thermal_sequence",
		Subsystem: "recorder",
		Name:      "state",
		Help:      "Recorder state: 0 stopped, 1 recording, 2 paused",
	})
)
