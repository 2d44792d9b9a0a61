/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package main

import (
	"fmt"
	"os"

	"github.com/libregraph/dsconf/cmd"
	"github.com/libregraph/dsconf/cmd/dsconf/config"
	"github.com/libregraph/dsconf/cmd/dsconf/ldif"
	"github.com/libregraph/dsconf/cmd/dsconf/logging"
	"github.com/libregraph/dsconf/cmd/dsconf/rootpw"
	"github.com/libregraph/dsconf/cmd/dsconf/snapshot"
	"github.com/libregraph/dsconf/cmd/dsconf/ssl"
	"github.com/libregraph/dsconf/internal/cli"
)

func main() {
	cli.RegisterFlags(cmd.RootCmd)

	cmd.RootCmd.AddCommand(config.CommandGet())
	cmd.RootCmd.AddCommand(config.CommandSet())
	cmd.RootCmd.AddCommand(logging.CommandLog())
	cmd.RootCmd.AddCommand(ssl.CommandSSL())
	cmd.RootCmd.AddCommand(rootpw.CommandRootPW())
	cmd.RootCmd.AddCommand(ldif.CommandLDIF())
	cmd.RootCmd.AddCommand(snapshot.CommandSnapshot())

	if err := cmd.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
