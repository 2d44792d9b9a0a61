/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package logging

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/libregraph/dsconf/internal/cli"
	"github.com/libregraph/dsconf/pkg/dsconfig"
)

var (
	DefaultLogService = "error"
	DefaultUpdate     = false
)

func CommandLog() *cobra.Command {
	logCmd := &cobra.Command{
		Use:   "log [...args]",
		Short: "Manage the access, error and audit logs",
	}

	enableCmd := &cobra.Command{
		Use:       "enable <access|error|audit>",
		Short:     "Enable a log",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"access", "error", "audit"},
		Run: cli.WithSession(func(s *cli.Session, cmd *cobra.Command, args []string) error {
			return s.Config.EnableLog(args[0])
		}),
	}

	disableCmd := &cobra.Command{
		Use:       "disable <access|error|audit>",
		Short:     "Disable a log",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"access", "error", "audit"},
		Run: cli.WithSession(func(s *cli.Session, cmd *cobra.Command, args []string) error {
			return s.Config.DisableLog(args[0])
		}),
	}

	levelCmd := &cobra.Command{
		Use:   "level [<level>...]",
		Short: "Set the access or error log level",
		Long: `The level command sets the log level to the bitwise OR of all given levels.
Levels are decimal numbers or one of these names:

  ` + strings.Join(dsconfig.LogLevelNames(), ", ") + `

Without levels "default" is used. With --update the given levels are added to
the current level instead of replacing it.`,
		Args: func(cmd *cobra.Command, args []string) error {
			_, err := parseLevels(args)
			return err
		},
		Run: cli.WithSession(level),
	}
	levelCmd.Flags().StringVar(&DefaultLogService, "service", DefaultLogService, "Log to set the level of (access or error)")
	levelCmd.Flags().BoolVar(&DefaultUpdate, "update", DefaultUpdate, "Add to the current level instead of replacing it")

	bufferingCmd := &cobra.Command{
		Use:       "buffering <on|off>",
		Short:     "Switch access log buffering",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		Run:       cli.WithSession(buffering),
	}

	logCmd.AddCommand(enableCmd, disableCmd, levelCmd, bufferingCmd)

	return logCmd
}

func parseLevels(args []string) ([]dsconfig.LogLevel, error) {
	if len(args) == 0 {
		return dsconfig.DefaultLogLevels(), nil
	}
	values := make([]dsconfig.LogLevel, 0, len(args))
	for _, arg := range args {
		v, err := dsconfig.ParseLogLevel(arg)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func level(s *cli.Session, cmd *cobra.Command, args []string) error {
	values, err := parseLevels(args)
	if err != nil {
		return err
	}

	total, err := s.Config.SetLogLevel(values, DefaultLogService, DefaultUpdate)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "nsslapd-%slog-level: %s\n", DefaultLogService, total)
	return nil
}

func buffering(s *cli.Session, cmd *cobra.Command, args []string) error {
	return s.Config.SetLogBuffering(args[0] == "on")
}
