// ideserver runs the Marker control-plane server for one workspace, standing
// in for the desktop host: it opens the session, optionally follows a file
// as the active editor, and tears everything down on SIGINT/SIGTERM.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

type options struct {
	workspace  string
	configPath string
	follow     string
	logLevel   string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	app := newApp(opts)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

func parseFlags(args []string) (options, error) {
	var opts options

	flagSet := pflag.NewFlagSet("ideserver", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.workspace, "workspace", "w", ".", "workspace folder advertised to the assistant")
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	flagSet.StringVar(&opts.follow, "follow", "", "file to report as the active editor, reloaded on change")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if flagSet.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}
	return opts, nil
}
