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

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"
)

const (
	dbusName = "org.cacophony.thermalsequencerecorder"
	dbusPath = "/org/cacophony/thermalsequencerecorder"
)

type service struct {
	app *app
}

func startService(a *app) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already taken")
	}

	s := &service{app: a}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")
	return nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

func dbusErr(method string, err error) *dbus.Error {
	if err == nil {
		return nil
	}
	return &dbus.Error{
		Name: dbusName + "." + method,
		Body: []interface{}{err.Error()},
	}
}

// Start begins a manual recording and returns the file it is written to.
func (s *service) Start() (string, *dbus.Error) {
	filename := newRecordingTempName(s.app.conf.OutputDir)
	if err := s.app.rec.Start(filename); err != nil {
		return "", dbusErr("Start", err)
	}
	return filename, nil
}

func (s *service) Stop() *dbus.Error {
	return dbusErr("Stop", s.app.rec.Stop())
}

func (s *service) Pause() *dbus.Error {
	return dbusErr("Pause", s.app.rec.Pause())
}

func (s *service) Resume() *dbus.Error {
	return dbusErr("Resume", s.app.rec.Resume())
}

// Status returns the recorder state, frames written, frames lost, elapsed
// milliseconds and the current or last recording's file.
func (s *service) Status() (string, uint64, uint64, int64, string, *dbus.Error) {
	rec := s.app.rec
	return rec.State().String(),
		rec.FrameCounter(),
		rec.LostFramesCounter(),
		rec.ElapsedMilliseconds(),
		rec.Path(),
		nil
}

// SetSetting changes one recorder setting by its settings file name, for
// example SetSetting("enable-compression", "true").
func (s *service) SetSetting(name, value string) *dbus.Error {
	return dbusErr("SetSetting", s.app.setSetting(name, value))
}

func (s *service) TakeSnapshot() *dbus.Error {
	return dbusErr("TakeSnapshot", s.app.snapshot.take(s.app.recentFrame(), false))
}

func (s *service) TakeRawSnapshot() *dbus.Error {
	return dbusErr("TakeRawSnapshot", s.app.snapshot.take(s.app.recentFrame(), true))
}
