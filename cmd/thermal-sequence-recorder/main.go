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
	"net/http"
	"os"
	"time"

	config "github.com/TheCacophonyProject/go-config"
	"github.com/TheCacophonyProject/lepton3"
	arg "github.com/alexflint/go-arg"
	"github.com/coreos/go-systemd/daemon"
	"github.com/maruel/interrupt"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TheCacophonyProject/thermal-sequence-recorder/events"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/leptondController"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/recorder"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/sequence"
	"github.com/TheCacophonyProject/thermal-sequence-recorder/stream"
)

var version = "<not set>"

const finishTimeout = 10 * time.Second

type Args struct {
	ConfigFile  string `arg:"-c,--config" help:"path to configuration file"`
	ConfigDir   string `arg:"--config-dir" help:"path to device configuration directory"`
	Settings    string `arg:"-s,--settings" help:"recorder settings file, reloaded when it changes"`
	MetricsAddr string `arg:"--metrics-addr" help:"serve prometheus metrics on this address"`
	Timestamps  bool   `arg:"-t,--timestamps" help:"include timestamps in log output"`
	Verbose     bool   `arg:"-v,--verbose" help:"make motion detection logging more verbose"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.ConfigFile = "/etc/thermal-sequence-recorder.yaml"
	args.ConfigDir = config.DefaultConfigDir
	arg.MustParse(&args)
	return args
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()

	if !args.Timestamps {
		log.SetFlags(0) // Removes default timestamp flag
	}

	log.Printf("running version: %s", version)
	conf, err := ParseConfigFiles(args.ConfigFile, args.ConfigDir)
	if err != nil {
		return err
	}
	if args.MetricsAddr != "" {
		conf.MetricsAddr = args.MetricsAddr
	}
	conf.Motion.Verbose = conf.Motion.Verbose || args.Verbose
	logConfig(conf)

	log.Println("deleting temp files")
	if err := deleteTempFiles(conf.OutputDir); err != nil {
		return err
	}

	bus := events.New()
	recordings := handleRecordingEvents(bus, logQueueEvent)
	defer recordings.Close()
	if conf.PauseFFC {
		defer leptondController.PauseFFCWhileRecording(bus, leptondController.SetAutoFFC)()
	}
	rec := recorder.New(
		recorder.WithEventBus(bus),
		recorder.WithHeader(sequence.Header{
			DeviceName: conf.DeviceName,
			DeviceID:   conf.DeviceID,
		}),
	)
	a := newApp(conf, rec, newSnapshotter(conf.OutputDir, realClock{}))
	if err := a.applySettings(conf.Recorder); err != nil {
		return err
	}

	if args.Settings != "" {
		settings, err := loadSettings(args.Settings)
		if err != nil {
			return err
		}
		if err := a.applySettings(settings); err != nil {
			return err
		}
		w := newSettingsWatcher(args.Settings, a.applySettings)
		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()
	}

	log.Println("starting d-bus service")
	if err := startService(a); err != nil {
		return err
	}

	if conf.MetricsAddr != "" {
		go serveMetrics(conf.MetricsAddr)
	}

	interrupt.HandleCtrlC()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-interrupt.Channel
		cancel()
	}()

	daemon.SdNotify(false, "READY=1")
	err = acceptConnections(ctx, a)

	log.Print("shutting down")
	a.snapshot.delete()
	if err := rec.Close(); err != nil {
		log.Printf("last recording failed: %v", err)
	}
	if path := rec.Path(); path != "" && !recordings.wait(path, finishTimeout) {
		log.Printf("%s was not finished before shutdown", path)
	}
	return err
}

// acceptConnections serves one camera connection at a time until ctx is
// cancelled.
func acceptConnections(ctx context.Context, a *app) error {
	for {
		// Set up listener for frames sent by leptond.
		os.Remove(a.conf.FrameInput)
		listener, err := net.Listen("unix", a.conf.FrameInput)
		if err != nil {
			return err
		}
		log.Print("waiting for camera connection")

		accepted := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				listener.Close()
			case <-accepted:
			}
		}()
		conn, err := listener.Accept()
		close(accepted)

		// Prevent concurrent connections.
		listener.Close()

		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Printf("socket accept failed: %v", err)
			continue
		}

		err = handleConn(ctx, conn, a)
		log.Printf("camera connection ended with: %v", err)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func handleConn(ctx context.Context, conn net.Conn, a *app) error {
	defer conn.Close()
	s := stream.New(conn, lepton3.ParseRawFrame)
	session := newCameraSession(a, s.Header)
	s.AddListener(session)
	if err := s.AttachRecorder(a.rec); err != nil {
		return err
	}
	defer s.DetachRecorder()
	defer session.end()

	log.Print("new camera connection, reading frames")
	return s.Run(ctx)
}

func serveMetrics(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	log.Printf("serving metrics on %s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Printf("metrics server stopped: %v", err)
	}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
