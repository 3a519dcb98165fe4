package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/poachedegg12/SplitProject/internal/version"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the split version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			v := version.Current()
			fmt.Fprintf(a.out, "split %s", v)
			if v.Date != "" {
				fmt.Fprintf(a.out, " (%s)", v.Date)
			}
			fmt.Fprintf(a.out, " %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
