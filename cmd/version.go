/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/libregraph/dsconf/version"
)

var DefaultVersionShort = false

// CommandVersion provides the commandline implementation for version.
func CommandVersion() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the dsconf version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if DefaultVersionShort {
				fmt.Fprintln(cmd.OutOrStdout(), version.Version)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), `dsconf     : %s
Build date : %s
Built with : %s %s/%s
`,
				version.Version, version.BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
	versionCmd.Flags().BoolVar(&DefaultVersionShort, "short", DefaultVersionShort, "Print only the version number")

	return versionCmd
}

func init() {
	RootCmd.AddCommand(CommandVersion())
}
