package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time via -ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ecode-agent %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  Commit:  %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  Built:   %s\n", buildDate)
			fmt.Fprintf(cmd.OutOrStdout(), "  Go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
