/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/libregraph/dsconf/internal/cli"
)

func CommandGet() *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get <attribute>...",
		Short: "Print cn=config attributes",
		Args:  cobra.MinimumNArgs(1),
		Run:   cli.WithSession(get),
	}

	return getCmd
}

func CommandSet() *cobra.Command {
	setCmd := &cobra.Command{
		Use:   "set <attribute> <value>...",
		Short: "Replace the values of a cn=config attribute",
		Long: `The set command replaces all values of a cn=config attribute, for example

  dsconf set passwordExp on`,
		Args: cobra.MinimumNArgs(2),
		Run:  cli.WithSession(set),
	}

	return setCmd
}

func get(s *cli.Session, cmd *cobra.Command, args []string) error {
	for _, key := range args {
		values, err := s.Config.GetValues(key)
		if err != nil {
			return err
		}
		for _, v := range values {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", key, v)
		}
	}
	return nil
}

func set(s *cli.Session, cmd *cobra.Command, args []string) error {
	return s.Config.SetValues(args[0], args[1:]...)
}
