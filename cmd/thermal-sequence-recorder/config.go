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
	"io/ioutil"
	"log"
	"os"

	goconfig "github.com/TheCacophonyProject/go-config"
	yaml "gopkg.in/yaml.v2"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/motion"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/recorder"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/throttle"
)

type Config struct {
	DeviceID     int                  `yaml:"-"`
	DeviceName   string               `yaml:"-"`
	FrameInput   string               `yaml:"frame-input"`
	OutputDir    string               `yaml:"output-dir"`
	MinDiskSpace uint64               `yaml:"min-disk-space"`
	MetricsAddr  string               `yaml:"metrics-addr"`
	PauseFFC     bool                 `yaml:"pause-ffc-while-recording"`
	Recorder     recorder.Settings    `yaml:"recorder"`
	Motion       motion.Config        `yaml:"motion"`
	Throttler    throttle.Config      `yaml:"throttler"`
	Trigger      motion.TriggerConfig `yaml:"-"`
}

func defaultConfig() Config {
	return Config{
		OutputDir:    "/var/spool/thermal-sequences",
		MinDiskSpace: 200,
		PauseFFC:     true,
		Recorder:     recorder.DefaultSettings(),
		Motion:       motion.DefaultConfig(),
		Throttler:    throttle.DefaultConfig(),
		Trigger: motion.TriggerConfig{
			MinSecs:     10,
			MaxSecs:     600,
			PreviewSecs: 3,
		},
	}
}

func (conf *Config) Validate() error {
	if conf.OutputDir == "" {
		return errors.New("output-dir must be set")
	}
	if err := conf.Recorder.Validate(); err != nil {
		return err
	}
	if err := conf.Motion.Validate(); err != nil {
		return err
	}
	if err := conf.Throttler.Validate(); err != nil {
		return err
	}
	return conf.Trigger.Validate()
}

// ParseConfigFiles reads the recorder's own configuration file, which may
// be missing, and then the device configuration directory.
func ParseConfigFiles(filename, configDir string) (*Config, error) {
	buf, err := ioutil.ReadFile(filename)
	if os.IsNotExist(err) {
		log.Printf("%s not found, using defaults", filename)
	} else if err != nil {
		return nil, err
	}

	conf, err := ParseConfig(buf)
	if err != nil {
		return nil, err
	}
	if err := loadDeviceConfig(conf, configDir); err != nil {
		return nil, err
	}
	return conf, conf.Validate()
}

func ParseConfig(buf []byte) (*Config, error) {
	conf := defaultConfig()
	if err := yaml.UnmarshalStrict(buf, &conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func loadDeviceConfig(conf *Config, configDir string) error {
	configRW, err := goconfig.New(configDir)
	if err != nil {
		return err
	}

	leptonConfig := goconfig.DefaultLepton()
	if err := configRW.Unmarshal(goconfig.LeptonKey, &leptonConfig); err != nil {
		return err
	}
	if conf.FrameInput == "" {
		conf.FrameInput = leptonConfig.FrameOutput
	}

	var deviceConfig goconfig.Device
	if err := configRW.Unmarshal(goconfig.DeviceKey, &deviceConfig); err != nil {
		return err
	}
	conf.DeviceID = deviceConfig.ID
	conf.DeviceName = deviceConfig.Name

	trigger, err := motion.NewTriggerConfig(configRW)
	if err != nil {
		return err
	}
	conf.Trigger = *trigger
	return nil
}

// loadSettings reads a recorder settings file. Settings it leaves out keep
// their defaults.
func loadSettings(filename string) (recorder.Settings, error) {
	settings := recorder.DefaultSettings()
	buf, err := ioutil.ReadFile(filename)
	if err != nil {
		return settings, err
	}
	if err := yaml.UnmarshalStrict(buf, &settings); err != nil {
		return settings, err
	}
	return settings, settings.Validate()
}

// applySetting changes one named setting, using the same names and value
// syntax as the settings file.
func applySetting(settings recorder.Settings, name, value string) (recorder.Settings, error) {
	if err := yaml.UnmarshalStrict([]byte(name+": "+value), &settings); err != nil {
		return settings, err
	}
	return settings, settings.Validate()
}

func logConfig(conf *Config) {
	log.Printf("device name: %s", conf.DeviceName)
	log.Printf("frame input: %s", conf.FrameInput)
	log.Printf("output dir: %s", conf.OutputDir)
	log.Printf("minimum disk space: %d", conf.MinDiskSpace)
	log.Printf("recorder: %+v", conf.Recorder)
	log.Printf("recording limits: %ds to %ds", conf.Trigger.MinSecs, conf.Trigger.MaxSecs)
	log.Printf("preview seconds: %d", conf.Trigger.PreviewSecs)
	log.Printf("motion: %+v", conf.Motion)
	log.Printf("throttler: %+v", conf.Throttler)
	if conf.Trigger.ConstantRecorder {
		log.Print("constant recorder")
	}
	if conf.PauseFFC {
		log.Print("automatic FFC paused while recording")
	}
	if conf.MetricsAddr != "" {
		log.Printf("metrics: %s", conf.MetricsAddr)
	}
}
