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
	"log"
	"net"
	"os"

	"github.com/TheCacophonyProject/lepton3"
	"github.com/maruel/interrupt"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/recorder"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/stream"
)

// record waits for a camera to connect to cmd.Socket and records every
// frame it sends until interrupted or the camera disconnects.
func record(cmd *RecordCmd) error {
	settings := recorder.DefaultSettings()
	settings.EnableCompression = cmd.Compress
	if cmd.IntervalMs > 0 {
		settings.FrameIntervalTimeEnabled = true
		settings.FrameIntervalTimeMs = cmd.IntervalMs
	}
	if cmd.Buffer > 0 {
		settings.SizeCircularBuffer = cmd.Buffer
	}
	rec := recorder.New()
	if err := rec.ApplySettings(settings); err != nil {
		return err
	}

	os.Remove(cmd.Socket)
	listener, err := net.Listen("unix", cmd.Socket)
	if err != nil {
		return err
	}
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-interrupt.Channel:
			cancel()
			listener.Close()
		case <-ctx.Done():
		}
	}()

	log.Print("waiting for camera connection")
	conn, err := listener.Accept()
	if interrupt.IsSet() {
		return nil
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	s := stream.New(conn, lepton3.ParseRawFrame)
	if err := s.AttachRecorder(rec); err != nil {
		return err
	}
	if err := rec.Start(cmd.File); err != nil {
		return err
	}
	log.Printf("recording to %s, interrupt to stop", cmd.File)

	err = s.Run(ctx)
	s.DetachRecorder()
	log.Printf("camera connection ended with: %v", err)

	if err := rec.StopAndWait(context.Background()); err != nil {
		return err
	}
	log.Printf("recorded %d frames, lost %d, in %s",
		rec.FrameCounter(), rec.LostFramesCounter(), rec.Elapsed())
	return nil
}
