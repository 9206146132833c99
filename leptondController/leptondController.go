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

// Package leptondController talks to leptond, the camera daemon, over
// D-Bus.
package leptondController

import (
	"log"

	"github.com/godbus/dbus"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/events"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/recorder"
)

const (
	dbusPath   = "/org/cacophony/leptond"
	dbusDest   = "org.cacophony.leptond"
	methodBase = "org.cacophony.leptond"
)

func getDbusObj() (dbus.BusObject, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	obj := conn.Object(dbusDest, dbusPath)
	return obj, nil
}

func SetAutoFFC(automatic bool) error {
	obj, err := getDbusObj()
	if err != nil {
		return err
	}
	return obj.Call(methodBase+".SetAutoFFC", 0, automatic).Store()
}

func RunFFC() error {
	obj, err := getDbusObj()
	if err != nil {
		return err
	}
	return obj.Call(methodBase+".RunFFC", 0).Store()
}

// PauseFFCWhileRecording turns the camera's automatic flat field correction
// off whenever the recorder starts recording and back on when it pauses or
// stops, so the shutter never freezes the picture mid recording. It
// returns a function that stops following the recorder.
func PauseFFCWhileRecording(bus *events.Bus, setAutoFFC func(bool) error) func() {
	return bus.Subscribe(func(e events.StateChanged) {
		automatic := e.To != recorder.Recording.String()
		if err := setAutoFFC(automatic); err != nil {
			log.Printf("failed to set automatic FFC to %v: %v", automatic, err)
		}
	})
}
