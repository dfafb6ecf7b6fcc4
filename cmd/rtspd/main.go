package main

import (
	"fmt"
	"net"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/lanikai/rtspd/internal/logging"
	"github.com/lanikai/rtspd/internal/rtsp"
)

var log = logging.DefaultLogger.WithTag("main")

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}

	if flagVersion {
		fmt.Println("rtspd (development build)")
		os.Exit(0)
	}

	if flagInput == "" {
		fmt.Fprintln(os.Stderr, "rtspd: --input is required")
		help()
		os.Exit(1)
	}

	cfg := rtsp.Config{
		Addr:     flagAddr,
		Input:    flagInput,
		FPS:      uint32(flagFPS),
		Loop:     flagLoop,
		Username: flagUsername,
		Password: flagPassword,
		Realm:    flagRealm,
	}

	server, err := rtsp.NewServer(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if ip, err := localIP(); err == nil {
		log.Info("rtspd: local address %s%s", ip, cfg.Addr)
	}

	if err := server.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

// localIP discovers the outbound interface address by dialing a UDP socket,
// without sending any packets. Used only to print a friendlier listening
// address; the actual bind uses cfg.Addr verbatim.
func localIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
