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
	"log"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/recorder"
)

const settingsDebounce = 1500 * time.Millisecond

// settingsWatcher reloads a recorder settings file whenever it changes and
// passes the new settings to apply. Bursts of changes, as editors make when
// saving, are collapsed into one reload.
type settingsWatcher struct {
	path     string
	debounce time.Duration
	apply    func(recorder.Settings) error
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

func newSettingsWatcher(path string, apply func(recorder.Settings) error) *settingsWatcher {
	return &settingsWatcher{
		path:     path,
		debounce: settingsDebounce,
		apply:    apply,
		done:     make(chan struct{}),
	}
}

func (w *settingsWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.path); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher
	go w.watch()
	return nil
}

func (w *settingsWatcher) Stop() error {
	close(w.done)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *settingsWatcher) watch() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			}

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("settings watcher: %v", err)
		}
	}
}

func (w *settingsWatcher) reload() {
	settings, err := loadSettings(w.path)
	if err != nil {
		log.Printf("ignoring %s: %v", w.path, err)
		return
	}
	if err := w.apply(settings); err != nil {
		log.Printf("failed to apply %s: %v", w.path, err)
		return
	}
	log.Printf("settings reloaded: %+v", settings)
}
