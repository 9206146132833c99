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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.False(t, s.EnableCompression)
	assert.Equal(t, 30, s.SizeCircularBuffer)
	assert.False(t, s.FrameIntervalTimeEnabled)
	assert.Equal(t, 1000, s.FrameIntervalTimeMs)
	assert.False(t, s.PrerecordingEnabled)
	assert.Equal(t, 10, s.PrerecordingMaxFrames)
	assert.NoError(t, s.Validate())
}

func TestSettingsValidate(t *testing.T) {
	s := DefaultSettings()
	s.SizeCircularBuffer = 0
	assert.Equal(t, ErrInvalidCapacity, s.Validate())

	s = DefaultSettings()
	s.PrerecordingMaxFrames = -1
	assert.Equal(t, ErrInvalidCapacity, s.Validate())

	s = DefaultSettings()
	s.FrameIntervalTimeMs = -5
	assert.Equal(t, ErrInvalidInterval, s.Validate())
}

func TestSettersRejectInvalidValues(t *testing.T) {
	r := New()
	assert.Equal(t, ErrInvalidCapacity, r.SetSizeCircularBuffer(0))
	assert.Equal(t, ErrInvalidCapacity, r.SetPrerecordingMaxFrames(-3))
	assert.Equal(t, ErrInvalidInterval, r.SetFrameIntervalTimeMs(-1))
	assert.Equal(t, DefaultSettings(), r.Settings())
}

func TestSettersUpdateSettings(t *testing.T) {
	r := New()
	r.SetEnableCompression(true)
	require.NoError(t, r.SetSizeCircularBuffer(50))
	r.SetFrameIntervalTimeEnabled(true)
	require.NoError(t, r.SetFrameIntervalTimeMs(250))
	r.SetPrerecordingEnabled(true)
	require.NoError(t, r.SetPrerecordingMaxFrames(20))

	assert.True(t, r.EnableCompression())
	assert.Equal(t, 50, r.SizeCircularBuffer())
	assert.True(t, r.FrameIntervalTimeEnabled())
	assert.Equal(t, 250, r.FrameIntervalTimeMs())
	assert.True(t, r.PrerecordingEnabled())
	assert.Equal(t, 20, r.PrerecordingMaxFrames())
	assert.Equal(t, 20, r.prerecord.Cap())
}

func TestApplySettings(t *testing.T) {
	r := New()
	s := Settings{
		EnableCompression:        true,
		SizeCircularBuffer:       5,
		FrameIntervalTimeEnabled: true,
		FrameIntervalTimeMs:      40,
		PrerecordingEnabled:      true,
		PrerecordingMaxFrames:    3,
	}
	require.NoError(t, r.ApplySettings(s))
	assert.Equal(t, s, r.Settings())
	assert.Equal(t, 3, r.prerecord.Cap())

	bad := s
	bad.SizeCircularBuffer = 0
	assert.Equal(t, ErrInvalidCapacity, r.ApplySettings(bad))
	assert.Equal(t, s, r.Settings())
}
