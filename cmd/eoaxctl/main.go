package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/veesix-networks/eoax/pkg/config/system"
)

var (
	serverAddr   = flag.String("server", system.DefaultListenAddress, "eoaxd monitor address")
	outputFormat = flag.String("format", string(FormatCLI), "Output format: cli, json or yaml")
)

func main() {
	flag.Parse()

	format, err := ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cli := NewCLI(NewClient(*serverAddr), os.Stdout, format)

	// One-shot mode: eoaxctl show pairs
	if flag.NArg() > 0 {
		if err := cli.processCommand(strings.Join(flag.Args(), " ")); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cli.Stop()
		os.Exit(0)
	}()

	if err := cli.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
