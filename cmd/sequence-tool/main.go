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
	"os"

	arg "github.com/alexflint/go-arg"
	"github.com/maruel/interrupt"
)

var version = "<not set>"

type InfoCmd struct {
	File string `arg:"positional,required" help:"sequence file"`
}

type PlayCmd struct {
	File string  `arg:"positional,required" help:"sequence file"`
	Rate float64 `arg:"-r,--rate" help:"playback rate, 2 plays twice as fast (default 1)"`
	From int     `arg:"--from" help:"index of the first frame to play"`
}

type ExportCmd struct {
	File string `arg:"positional,required" help:"sequence file"`
	Out  string `arg:"positional,required" help:"CPTV file to write"`
}

type RecordCmd struct {
	Socket     string `arg:"positional,required" help:"unix socket the camera connects to"`
	File       string `arg:"positional,required" help:"sequence file to write"`
	Compress   bool   `arg:"--compress" help:"compress frames"`
	IntervalMs int    `arg:"--interval-ms" help:"record at most one frame per interval"`
	Buffer     int    `arg:"--buffer" help:"recording buffer size in frames"`
}

type Args struct {
	Info       *InfoCmd   `arg:"subcommand:info" help:"print a sequence's header and frame counts"`
	Play       *PlayCmd   `arg:"subcommand:play" help:"replay a sequence at its recorded pace"`
	Export     *ExportCmd `arg:"subcommand:export" help:"convert a thermal sequence to CPTV"`
	Record     *RecordCmd `arg:"subcommand:record" help:"record a camera connection until interrupted"`
	Timestamps bool       `arg:"-t,--timestamps" help:"include timestamps in log output"`
}

func (Args) Version() string {
	return version
}

func main() {
	var args Args
	p := arg.MustParse(&args)

	if !args.Timestamps {
		log.SetFlags(0)
	}
	interrupt.HandleCtrlC()

	var err error
	switch {
	case args.Info != nil:
		err = printInfo(os.Stdout, args.Info.File)
	case args.Play != nil:
		err = play(os.Stdout, args.Play)
	case args.Export != nil:
		var frames int
		frames, err = exportCPTV(args.Export.File, args.Export.Out)
		if err == nil {
			log.Printf("exported %d frames to %s", frames, args.Export.Out)
		}
	case args.Record != nil:
		err = record(args.Record)
	default:
		p.Fail("a command is required")
	}
	if err != nil {
		log.Fatal(err)
	}
}
