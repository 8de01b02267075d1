package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/icefetch/icefetch/internal/debug"
	"github.com/icefetch/icefetch/internal/errors"
)

func init() {
	// don't import `go.uber.org/automaxprocs` directly to disable its log output
	_, _ = maxprocs.Set()
}

var version = "0.1.0-dev (compiled manually)"

var cmdRoot = &cobra.Command{
	Use:   "icefetch",
	Short: "Download cloud backup snapshots",
	Long: `
icefetch enumerates the devices and snapshots of a cloud backup account and
downloads snapshot contents into a checksum-addressed local store.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		parseEnvironment()
	},
}

func main() {
	debug.Log("main %#v", os.Args)
	debug.Log("icefetch %s compiled with %v on %v/%v",
		version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	ctx := createGlobalContext()
	err := cmdRoot.ExecuteContext(ctx)
	if err == nil {
		err = ctx.Err()
	}

	switch {
	case err == nil:
		Exit(0)
	case errors.Is(err, context.Canceled):
		Exit(130)
	case errors.IsFatal(err):
		fmt.Fprintf(os.Stderr, "%v\n", err)
		Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		Exit(1)
	}
}
