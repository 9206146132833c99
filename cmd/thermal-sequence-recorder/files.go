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
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"syscall"
	"time"
)

const tempExt = "seq.temp"

func newRecordingTempName(dir string) string {
	return filepath.Join(dir, time.Now().Format("20060102.150405.000."+tempExt))
}

func renameTempRecording(tempName string) (string, error) {
	finalName := recordingFinalName(tempName)
	if finalName == tempName {
		return tempName, nil
	}
	if err := os.Rename(tempName, finalName); err != nil {
		return "", err
	}
	return finalName, nil
}

var reTempName = regexp.MustCompile(`(.+)\.temp$`)

func recordingFinalName(filename string) string {
	return reTempName.ReplaceAllString(filename, `$1`)
}

// deleteTempFiles removes recordings left unfinished by a previous run.
func deleteTempFiles(directory string) error {
	matches, _ := filepath.Glob(filepath.Join(directory, "*."+tempExt))
	for _, filename := range matches {
		if err := os.Remove(filename); err != nil {
			return err
		}
	}
	return nil
}

// checkDiskSpace fails when dir has less than minMB megabytes free.
func checkDiskSpace(dir string, minMB uint64) error {
	var fs syscall.Statfs_t
	if err := syscall.Statfs(dir, &fs); err != nil {
		return err
	}
	free := fs.Bavail * uint64(fs.Bsize) / (1024 * 1024)
	if free < minMB {
		return fmt.Errorf("not enough disk space: %dMB free, %dMB required", free, minMB)
	}
	return nil
}
