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

package throttle

import (
	"errors"
	"time"
)

type Config struct {
	ApplyThrottling bool          `yaml:"apply-throttling"`
	BucketSize      time.Duration `yaml:"bucket-size"`
	MinRefill       time.Duration `yaml:"min-refill"`
}

func DefaultConfig() Config {
	return Config{
		ApplyThrottling: true,
		BucketSize:      10 * time.Minute,
		MinRefill:       10 * time.Minute,
	}
}

func (conf *Config) Validate() error {
	if !conf.ApplyThrottling {
		return nil
	}
	if conf.BucketSize <= 0 {
		return errors.New("throttler bucket-size must be positive")
	}
	if conf.MinRefill <= 0 {
		return errors.New("throttler min-refill must be positive")
	}
	return nil
}
