// Command lwm2m-log views protocol capture files written by lwm2m-bridge
// with -protocol-log.
//
// Usage:
//
//	lwm2m-log <command> [flags] <file.cbor>
//
// Commands:
//
//	view     View events in human-readable form
//	stats    Show per-endpoint statistics
//
// Examples:
//
//	# View only failed requests of one device
//	lwm2m-log view -endpoint urn:dev:sim-1 -category error bridge.cbor
//
//	# View everything addressed under the device object
//	lwm2m-log view -path /3/0 bridge.cbor
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lwm2m-bridge/lwm2m-go/cmd/lwm2m-log/commands"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/log"
)

const usage = `lwm2m-log - LwM2M bridge protocol capture viewer

Usage:
  lwm2m-log <command> [flags] <file.cbor>

Commands:
  view     View events in human-readable form
  stats    Show per-endpoint statistics
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "view":
		runView(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	endpoint := fs.String("endpoint", "", "Filter by device endpoint")
	session := fs.String("session", "", "Filter by registration ID")
	path := fs.String("path", "", "Filter by path prefix, e.g. /3/0")
	layer := fs.String("layer", "", "Filter by layer (engine, dispatch, routing)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, state, error)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		os.Exit(1)
	}

	filter := log.Filter{Endpoint: *endpoint, SessionID: *session, PathPrefix: *path}
	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		exitOn(err)
		filter.Layer = &l
	}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		exitOn(err)
		filter.Direction = &d
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		exitOn(err)
		filter.Category = &c
	}

	exitOn(commands.RunView(fs.Arg(0), filter, os.Stdout))
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		os.Exit(1)
	}
	exitOn(commands.RunStats(fs.Arg(0), os.Stdout))
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
