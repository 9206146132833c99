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
	"errors"

	config "github.com/TheCacophonyProject/go-config"
	"github.com/TheCacophonyProject/window"
)

// Config tunes the motion detector.
type Config struct {
	TempThresh        uint16 `yaml:"temp-thresh"`
	DeltaThresh       uint16 `yaml:"delta-thresh"`
	CountThresh       int    `yaml:"count-thresh"`
	NonzeroMaxPercent int    `yaml:"nonzero-max-percent"`
	FrameCompareGap   int    `yaml:"frame-compare-gap"`
	UseOneDiffOnly    bool   `yaml:"one-diff-only"`
	TriggerFrames     int    `yaml:"trigger-frames"`
	WarmerOnly        bool   `yaml:"warmer-only"`
	Verbose           bool   `yaml:"verbose"`
}

func DefaultConfig() Config {
	return Config{
		TempThresh:        2900,
		DeltaThresh:       50,
		CountThresh:       3,
		NonzeroMaxPercent: 50,
		FrameCompareGap:   45,
		UseOneDiffOnly:    true,
		TriggerFrames:     2,
		WarmerOnly:        true,
	}
}

func (conf *Config) Validate() error {
	if conf.FrameCompareGap < 1 {
		return errors.New("frame-compare-gap must be at least 1")
	}
	if conf.NonzeroMaxPercent < 1 || conf.NonzeroMaxPercent > 100 {
		return errors.New("nonzero-max-percent must be between 1 and 100")
	}
	if conf.CountThresh < 1 {
		return errors.New("count-thresh must be at least 1")
	}
	if conf.TriggerFrames < 1 {
		return errors.New("trigger-frames must be at least 1")
	}
	return nil
}

// TriggerConfig controls when motion starts and stops a recording.
type TriggerConfig struct {
	MinSecs          int
	MaxSecs          int
	PreviewSecs      int
	Window           window.Window
	ConstantRecorder bool
}

// NewTriggerConfig reads recording lengths, the recording window and its
// location from the device configuration.
func NewTriggerConfig(conf *config.Config) (*TriggerConfig, error) {
	thermalRecorderConfig := config.DefaultThermalRecorder()
	if err := conf.Unmarshal(config.ThermalRecorderKey, &thermalRecorderConfig); err != nil {
		return nil, err
	}
	windowLocationConfig := config.DefaultWindowLocation()
	if err := conf.Unmarshal(config.LocationKey, &windowLocationConfig); err != nil {
		return nil, err
	}
	windowsConfig := config.DefaultWindows()
	if err := conf.Unmarshal(config.WindowsKey, &windowsConfig); err != nil {
		return nil, err
	}

	w, err := window.New(
		windowsConfig.StartRecording,
		windowsConfig.StopRecording,
		float64(windowLocationConfig.Latitude),
		float64(windowLocationConfig.Longitude))
	if err != nil {
		return nil, err
	}

	triggerConfig := TriggerConfig{
		MinSecs:          thermalRecorderConfig.MinSecs,
		MaxSecs:          thermalRecorderConfig.MaxSecs,
		PreviewSecs:      thermalRecorderConfig.PreviewSecs,
		Window:           *w,
		ConstantRecorder: thermalRecorderConfig.ConstantRecorder,
	}
	if err := triggerConfig.Validate(); err != nil {
		return nil, err
	}
	return &triggerConfig, nil
}

func (conf *TriggerConfig) Validate() error {
	if conf.MaxSecs < conf.MinSecs {
		return errors.New("max-secs should be larger than min-secs")
	}
	if conf.PreviewSecs < 0 {
		return errors.New("preview-secs must not be negative")
	}
	return nil
}
