package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagAddr     string
	flagInput    string
	flagFPS      uint
	flagLoop     bool
	flagUsername string
	flagPassword string
	flagRealm    string
	flagHelp     bool
	flagVersion  bool
)

func init() {
	flag.StringVarP(&flagAddr, "addr", "a", ":5544", "Listen address")
	flag.StringVarP(&flagInput, "input", "i", "", "Path to an H.264/H.265 Annex-B elementary stream (required)")
	flag.UintVarP(&flagFPS, "fps", "f", 25, "Pacing frame rate")
	flag.BoolVarP(&flagLoop, "loop", "l", true, "Loop the input file at EOF")
	flag.StringVarP(&flagUsername, "username", "u", "admin", "Basic/Digest username")
	flag.StringVarP(&flagPassword, "password", "p", "123456", "Basic/Digest password")
	flag.StringVarP(&flagRealm, "realm", "", "rust rtsp-server", "Digest realm")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Stream a pre-recorded H.264/H.265 file as RTSP/RTP

Usage: rtspd [OPTION]...

Server:
  -a, --addr=HOST:PORT   Listen address (default ":5544")

Video source:
  -i, --input=FILE       Path to an Annex-B elementary stream (required)
  -f, --fps=NUM          Pacing frame rate (default 25)
  -l, --loop             Loop the input file at EOF (default true)

Authentication:
  -u, --username=NAME    Basic/Digest username (default "admin")
  -p, --password=PASS    Basic/Digest password (default "123456")
      --realm=NAME       Digest realm (default "rust rtsp-server")

Miscellaneous:
  -h, --help             Prints this help message and exits
  -v, --version          Prints version information and exits

Please report bugs to: aloha@lanikailabs.com`

func help() {
	r := color.New(color.FgRed, color.Bold)
	y := color.New(color.FgYellow, color.Bold)
	b := color.New(color.FgCyan, color.Bold)

	r.Print("rt")
	y.Print("sp")
	b.Println("d")

	fmt.Println(helpString)
}
