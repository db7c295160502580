// Command bslprog is a minimal command-line front-end for package
// session: parse flags into a Config, run one program/verify/read-out
// session, print progress through the structured logger.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/tocurd/go-bsl/internal/logging"
	"github.com/tocurd/go-bsl/session"
)

func main() {
	var (
		port       = flag.String("port", "", "UART device path (e.g. /dev/ttyUSB0)")
		baud       = flag.Int("baud", 115200, "UART baud rate")
		spiDevice  = flag.String("spi", "", "SPI device path (e.g. /dev/spidev0.0)")
		inputPath  = flag.String("write", "", "file to program")
		inputFmt   = flag.String("format", "ihex", "input format: srec, ihex, ascii, bin")
		massErase  = flag.Bool("mass-erase", false, "erase the whole flash before programming")
		verify     = flag.Bool("verify", true, "verify by read-back after programming")
		jumpAfter  = flag.Uint64("go", 0, "address to jump to after programming (0 disables)")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		logging.Log().SetLevel(logrus.DebugLevel)
	} else {
		logging.Log().SetLevel(logrus.InfoLevel)
	}

	opts := []session.Option{
		session.WithVerify(*verify),
		session.WithProgressCallback(func(p session.Progress) {
			logging.Log().Infof("%s: %d/%d bytes (%s)", p.Phase, p.BytesDone, p.BytesTotal, p.ElapsedTime)
		}),
	}

	switch {
	case *spiDevice != "":
		opts = append(opts, session.WithSPI(*spiDevice, 1_000_000))
	case *port != "":
		opts = append(opts, session.WithUART(*port, *baud))
	default:
		fmt.Fprintln(os.Stderr, "bslprog: one of -port or -spi is required")
		os.Exit(2)
	}

	if *inputPath != "" {
		format, err := parseFormat(*inputFmt)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bslprog:", err)
			os.Exit(2)
		}
		opts = append(opts, session.WithInputFile(*inputPath, format))
	}

	if *massErase {
		opts = append(opts, session.WithMassErase())
	}
	if *jumpAfter != 0 {
		opts = append(opts, session.WithJumpAfter(uint32(*jumpAfter)))
	}

	s := session.New(opts...)
	if err := s.Run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "bslprog:", err)
		os.Exit(1)
	}
}

func parseFormat(name string) (session.FileFormat, error) {
	switch name {
	case "srec":
		return session.FormatSRecord, nil
	case "ihex":
		return session.FormatIntelHex, nil
	case "ascii":
		return session.FormatASCIITable, nil
	case "bin":
		return session.FormatRawBinary, nil
	default:
		return 0, fmt.Errorf("unknown format %q", name)
	}
}
