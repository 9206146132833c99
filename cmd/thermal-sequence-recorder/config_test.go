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
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/motion"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/recorder"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/throttle"
)

func TestAllDefaults(t *testing.T) {
	conf, err := ParseConfig([]byte(""))
	require.NoError(t, err)

	assert.Equal(t, Config{
		OutputDir:    "/var/spool/thermal-sequences",
		MinDiskSpace: 200,
		PauseFFC:     true,
		Recorder: recorder.Settings{
			SizeCircularBuffer:    30,
			FrameIntervalTimeMs:   1000,
			PrerecordingMaxFrames: 10,
		},
		Motion: motion.Config{
			TempThresh:        2900,
			DeltaThresh:       50,
			CountThresh:       3,
			NonzeroMaxPercent: 50,
			FrameCompareGap:   45,
			UseOneDiffOnly:    true,
			TriggerFrames:     2,
			WarmerOnly:        true,
		},
		Throttler: throttle.Config{
			ApplyThrottling: true,
			BucketSize:      10 * time.Minute,
			MinRefill:       10 * time.Minute,
		},
		Trigger: motion.TriggerConfig{
			MinSecs:     10,
			MaxSecs:     600,
			PreviewSecs: 3,
		},
	}, *conf)
}

func TestAllSet(t *testing.T) {
	config := []byte(`
frame-input: "/some/sock"
output-dir: "/some/where"
min-disk-space: 321
metrics-addr: ":2112"
pause-ffc-while-recording: false
recorder:
    enable-compression: true
    size-circular-buffer: 90
    frame-interval-time-enabled: true
    frame-interval-time-ms: 250
    prerecording-enabled: true
    prerecording-max-frames: 40
motion:
    temp-thresh: 2000
    delta-thresh: 20
    count-thresh: 1
    nonzero-max-percent: 20
    frame-compare-gap: 90
    one-diff-only: false
    trigger-frames: 1
    verbose: true
    warmer-only: false
throttler:
    apply-throttling: false
    bucket-size: 20m
    min-refill: 1h
`)

	conf, err := ParseConfig(config)
	require.NoError(t, err)

	assert.Equal(t, Config{
		FrameInput:   "/some/sock",
		OutputDir:    "/some/where",
		MinDiskSpace: 321,
		MetricsAddr:  ":2112",
		Recorder: recorder.Settings{
			EnableCompression:        true,
			SizeCircularBuffer:       90,
			FrameIntervalTimeEnabled: true,
			FrameIntervalTimeMs:      250,
			PrerecordingEnabled:      true,
			PrerecordingMaxFrames:    40,
		},
		Motion: motion.Config{
			TempThresh:        2000,
			DeltaThresh:       20,
			CountThresh:       1,
			NonzeroMaxPercent: 20,
			FrameCompareGap:   90,
			UseOneDiffOnly:    false,
			Verbose:           true,
			TriggerFrames:     1,
			WarmerOnly:        false,
		},
		Throttler: throttle.Config{
			ApplyThrottling: false,
			BucketSize:      20 * time.Minute,
			MinRefill:       time.Hour,
		},
		Trigger: motion.TriggerConfig{
			MinSecs:     10,
			MaxSecs:     600,
			PreviewSecs: 3,
		},
	}, *conf)
}

func TestInvalidConfig(t *testing.T) {
	_, err := ParseConfig([]byte("recorder:\n    size-circular-buffer: 0\n"))
	assert.Equal(t, recorder.ErrInvalidCapacity, err)

	_, err = ParseConfig([]byte("motion:\n    nonzero-max-percent: 101\n"))
	assert.Error(t, err)

	_, err = ParseConfig([]byte("unknown-key: 1\n"))
	assert.Error(t, err)
}

func TestLoadSettings(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, ioutil.WriteFile(filename, []byte("enable-compression: true\nprerecording-max-frames: 5\n"), 0644))

	settings, err := loadSettings(filename)
	require.NoError(t, err)
	expected := recorder.DefaultSettings()
	expected.EnableCompression = true
	expected.PrerecordingMaxFrames = 5
	assert.Equal(t, expected, settings)

	require.NoError(t, ioutil.WriteFile(filename, []byte("frame-interval-time-ms: -1\n"), 0644))
	_, err = loadSettings(filename)
	assert.Equal(t, recorder.ErrInvalidInterval, err)
}

func TestApplySetting(t *testing.T) {
	base := recorder.DefaultSettings()

	settings, err := applySetting(base, "size-circular-buffer", "64")
	require.NoError(t, err)
	assert.Equal(t, 64, settings.SizeCircularBuffer)

	settings, err = applySetting(settings, "frame-interval-time-enabled", "true")
	require.NoError(t, err)
	assert.True(t, settings.FrameIntervalTimeEnabled)
	assert.Equal(t, 64, settings.SizeCircularBuffer)

	_, err = applySetting(base, "no-such-setting", "1")
	assert.Error(t, err)
	_, err = applySetting(base, "prerecording-max-frames", "0")
	assert.Equal(t, recorder.ErrInvalidCapacity, err)
	_, err = applySetting(base, "enable-compression", "maybe")
	assert.Error(t, err)
}
