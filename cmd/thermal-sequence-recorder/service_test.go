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
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/headers"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/recorder"
)

func TestServiceRecordingControl(t *testing.T) {
	a := testApp(t)
	s := &service{app: a}

	path, derr := s.Start()
	require.Nil(t, derr)
	assert.Equal(t, a.conf.OutputDir, filepath.Dir(path))

	_, derr = s.Start()
	require.NotNil(t, derr)
	assert.Equal(t, dbusName+".Start", derr.Name)
	assert.Equal(t, []interface{}{recorder.ErrAlreadyRecording.Error()}, derr.Body)

	require.Nil(t, s.Pause())
	state, _, _, _, statusPath, derr := s.Status()
	require.Nil(t, derr)
	assert.Equal(t, "Paused", state)
	assert.Equal(t, path, statusPath)

	require.Nil(t, s.Resume())
	require.NoError(t, a.rec.AddImage(rampFrame(1), nil))
	require.Nil(t, s.Stop())
	require.NoError(t, a.rec.Wait(context.Background()))

	state, frames, lost, _, _, _ := s.Status()
	assert.Equal(t, "Stopped", state)
	assert.EqualValues(t, 1, frames)
	assert.Zero(t, lost)
}

func TestServiceSetSetting(t *testing.T) {
	a := testApp(t)
	s := &service{app: a}

	require.Nil(t, s.SetSetting("enable-compression", "true"))
	assert.True(t, a.rec.EnableCompression())

	derr := s.SetSetting("size-circular-buffer", "0")
	require.NotNil(t, derr)
	assert.Equal(t, dbusName+".SetSetting", derr.Name)
}

func TestServiceSnapshot(t *testing.T) {
	a := testApp(t)
	s := &service{app: a}

	derr := s.TakeSnapshot()
	require.NotNil(t, derr)
	assert.Equal(t, []interface{}{errNoFrames.Error()}, derr.Body)

	session := newCameraSession(a, func() *headers.HeaderInfo {
		return headers.New(4, 3, 9, 24, "acme", "cam1")
	})
	session.ProcessFrame(rampFrame(100))
	require.Nil(t, s.TakeSnapshot())
	assert.FileExists(t, filepath.Join(a.conf.OutputDir, snapshotName))
}
