/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package ldif

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-ldap/ldap/v3"
	"github.com/spf13/cobra"

	"github.com/libregraph/dsconf/internal/cli"
	"github.com/libregraph/dsconf/pkg/dsconfig"
	"github.com/libregraph/dsconf/pkg/ldifconfig"
)

var (
	DefaultBase  = dsconfig.DNConfig
	DefaultScope = "sub"
)

var scopes = map[string]int{
	"base": ldap.ScopeBaseObject,
	"one":  ldap.ScopeSingleLevel,
	"sub":  ldap.ScopeWholeSubtree,
}

func CommandLDIF() *cobra.Command {
	ldifCmd := &cobra.Command{
		Use:   "ldif",
		Short: "Export or apply cn=config entries as LDIF",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write entries below --base to stdout",
		Args:  cobra.NoArgs,
		Run:   cli.WithSession(export),
	}
	exportCmd.Flags().StringVar(&DefaultBase, "base", DefaultBase, "Search base")
	exportCmd.Flags().StringVar(&DefaultScope, "scope", DefaultScope, "Search scope (base, one or sub)")

	applyCmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Send the records of an LDIF file (use - for stdin)",
		Long: `Apply sends each record of the LDIF file in order. Plain entries and
changetype add records are added, modify and delete records are sent as
they are. Processing stops at the first failing record.`,
		Args: cobra.ExactArgs(1),
		Run:  cli.WithSession(apply),
	}

	ldifCmd.AddCommand(exportCmd)
	ldifCmd.AddCommand(applyCmd)

	return ldifCmd
}

func export(s *cli.Session, cmd *cobra.Command, args []string) error {
	scope, ok := scopes[DefaultScope]
	if !ok {
		return cli.StartupError(fmt.Errorf("invalid scope '%s'", DefaultScope))
	}
	count, err := ldifconfig.Export(s.Directory, cmd.OutOrStdout(), DefaultBase, scope)
	if err != nil {
		return err
	}
	s.Logger.Debugf("exported %d entries", count)
	return nil
}

func apply(s *cli.Session, cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(filepath.Clean(args[0]))
		if err != nil {
			return cli.StartupError(fmt.Errorf("failed to open LDIF file: %w", err))
		}
		defer f.Close()
		in = f
	}

	count, err := ldifconfig.Apply(s.Logger, s.Directory, in)
	s.Logger.Infof("applied %d records", count)
	return err
}
