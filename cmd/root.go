/*
 * SPDX-License-Identifier: AGPL-3.0-or-later
 * Copyright 2021 The LibreGraph Authors.
 */

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// RootCmd provides the commandline parser root.
var RootCmd = &cobra.Command{
	Use:   "dsconf",
	Short: "Manage the cn=config tree of a directory server",
	Long: `dsconf reads and changes the cn=config tree of a running directory
server. Connection settings are taken from flags, DSCONF_* environment
variables and the instance file, in this order.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(2)
	},
}
