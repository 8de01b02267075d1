package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/term"

	"github.com/icefetch/icefetch/internal/cloud"
	"github.com/icefetch/icefetch/internal/errors"
)

// TimeFormat is the format used for all timestamps printed by icefetch.
const TimeFormat = "2006-01-02 15:04:05"

// GlobalOptions hold all global options for icefetch.
type GlobalOptions struct {
	URL   string
	Quiet bool

	stdout io.Writer
	stderr io.Writer
}

var globalOptions = GlobalOptions{
	stdout: os.Stdout,
	stderr: os.Stderr,
}

func init() {
	f := cmdRoot.PersistentFlags()
	f.StringVarP(&globalOptions.URL, "url", "u", "", "backup service URL (default: $ICEFETCH_URL)")
	f.BoolVarP(&globalOptions.Quiet, "quiet", "q", false, "do not output comprehensive progress report")
}

func parseEnvironment() {
	if globalOptions.URL == "" {
		globalOptions.URL = os.Getenv("ICEFETCH_URL")
	}
}

func newClient(gopts GlobalOptions) (*cloud.Client, error) {
	if gopts.URL == "" {
		return nil, errors.Fatal("Please specify the backup service URL (-u or $ICEFETCH_URL)")
	}
	return cloud.NewClient(gopts.URL)
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// clearLine creates a platform dependent string to clear the current line, so
// it can be overwritten. ANSI sequences are not supported on the current
// windows cmd shell.
func clearLine() string {
	if runtime.GOOS == "windows" || !stdoutIsTerminal() {
		return "\n"
	}
	return "\x1b[2K\r"
}

// Printf writes the message to the configured stdout stream.
func Printf(format string, args ...interface{}) {
	_, err := fmt.Fprintf(globalOptions.stdout, format, args...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to write to stdout: %v\n", err)
	}
}

// Verbosef calls Printf if verbose output was requested.
func Verbosef(format string, args ...interface{}) {
	if globalOptions.Quiet {
		return
	}

	Printf(format, args...)
}

// Warnf writes the message to the configured stderr stream.
func Warnf(format string, args ...interface{}) {
	_, err := fmt.Fprintf(globalOptions.stderr, format, args...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to write to stderr: %v\n", err)
	}
}
