/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package snapshot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	bolt "go.etcd.io/bbolt"

	"github.com/libregraph/dsconf"
	"github.com/libregraph/dsconf/internal/cli"
	"github.com/libregraph/dsconf/pkg/dsconfig"
	"github.com/libregraph/dsconf/pkg/ldifconfig"
	"github.com/libregraph/dsconf/pkg/snapshot"
)

var (
	DefaultSnapshotFile = ""
	DefaultBase         = dsconfig.DNConfig
	DefaultScope        = "one"
	DefaultAttributes   = []string{}
)

var scopes = map[string]int{
	"base": ldap.ScopeBaseObject,
	"one":  ldap.ScopeSingleLevel,
	"sub":  ldap.ScopeWholeSubtree,
}

func CommandSnapshot() *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save, compare and restore local copies of cn=config",
	}
	snapshotCmd.PersistentFlags().StringVar(&DefaultSnapshotFile, "snapshot-file", DefaultSnapshotFile, "Snapshot database (default ~/"+dsconf.DefaultSnapshotFile+")")

	saveCmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Store the current entries below --base",
		Args:  cobra.ExactArgs(1),
		Run:   cli.WithSession(save),
	}
	saveCmd.Flags().StringVar(&DefaultBase, "base", DefaultBase, "Search base")
	saveCmd.Flags().StringVar(&DefaultScope, "scope", DefaultScope, "Search scope (base, one or sub), the base entry is always included")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		Run:   cli.Run(list),
	}

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a snapshot as LDIF",
		Args:  cobra.ExactArgs(1),
		Run:   cli.Run(show),
	}

	diffCmd := &cobra.Command{
		Use:   "diff <name>",
		Short: "Compare a snapshot with the server",
		Args:  cobra.ExactArgs(1),
		Run:   cli.WithSession(diff),
	}

	restoreCmd := &cobra.Command{
		Use:   "restore <name>",
		Short: "Change the server back to a snapshot",
		Long: `Restore replaces every attribute which differs from the snapshot and
deletes attributes added since. Entries removed since are added again.
Entries created after the snapshot are left alone.`,
		Args: cobra.ExactArgs(1),
		Run:  cli.WithSession(restore),
	}
	restoreCmd.Flags().StringSliceVar(&DefaultAttributes, "attr", DefaultAttributes, "Only restore these attributes")

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a stored snapshot",
		Args:  cobra.ExactArgs(1),
		Run:   cli.Run(remove),
	}

	snapshotCmd.AddCommand(saveCmd)
	snapshotCmd.AddCommand(listCmd)
	snapshotCmd.AddCommand(showCmd)
	snapshotCmd.AddCommand(diffCmd)
	snapshotCmd.AddCommand(restoreCmd)
	snapshotCmd.AddCommand(deleteCmd)

	return snapshotCmd
}

func openStore(logger logrus.FieldLogger, readOnly bool) (*snapshot.Store, error) {
	fn := DefaultSnapshotFile
	if fn == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, cli.StartupError(fmt.Errorf("no snapshot file given: %w", err))
		}
		fn = filepath.Join(home, dsconf.DefaultSnapshotFile)
	}
	if readOnly {
		if _, err := os.Stat(fn); err != nil {
			return nil, cli.StartupError(fmt.Errorf("no snapshot database: %w", err))
		}
	}

	store, err := snapshot.Open(logger, filepath.Clean(fn), &bolt.Options{
		Timeout:  time.Second,
		ReadOnly: readOnly,
	})
	if err != nil {
		return nil, cli.StartupError(err)
	}
	if err := store.Initialize(); err != nil {
		store.Close()
		return nil, cli.StartupError(err)
	}
	return store, nil
}

func save(s *cli.Session, cmd *cobra.Command, args []string) error {
	scope, ok := scopes[DefaultScope]
	if !ok {
		return cli.StartupError(fmt.Errorf("invalid scope '%s'", DefaultScope))
	}
	entries, err := s.Directory.Search(DefaultBase, scope, "(objectClass=*)")
	if err != nil {
		return err
	}
	if scope == ldap.ScopeSingleLevel {
		base, err := s.Directory.GetEntry(DefaultBase)
		if err != nil {
			return err
		}
		entries = append([]*ldap.Entry{base}, entries...)
	}

	store, err := openStore(s.Logger, false)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(args[0], entries); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %d entries as %s\n", len(entries), args[0])
	return nil
}

func list(cmd *cobra.Command, args []string) error {
	logger, err := cli.NewCommandLogger()
	if err != nil {
		return err
	}
	store, err := openStore(logger, true)
	if err != nil {
		return err
	}
	defer store.Close()

	infos, err := store.List()
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d entries\n", info.Name, info.Created.Local().Format(time.RFC3339), info.Entries)
	}
	return nil
}

func show(cmd *cobra.Command, args []string) error {
	logger, err := cli.NewCommandLogger()
	if err != nil {
		return err
	}
	store, err := openStore(logger, true)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Load(args[0])
	if err != nil {
		return err
	}
	return ldifconfig.Write(cmd.OutOrStdout(), entries)
}

func diff(s *cli.Session, cmd *cobra.Command, args []string) error {
	saved, err := loadSnapshot(s.Logger, args[0])
	if err != nil {
		return err
	}
	diffs, err := snapshot.Compare(s.Directory, saved)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, d := range diffs {
		printDiff(out, d)
	}
	return nil
}

func restore(s *cli.Session, cmd *cobra.Command, args []string) error {
	saved, err := loadSnapshot(s.Logger, args[0])
	if err != nil {
		return err
	}

	changed, err := snapshot.Restore(s.Logger, s.Directory, saved, DefaultAttributes...)
	s.Logger.Infof("restored %d entries from %s", changed, args[0])
	return err
}

func remove(cmd *cobra.Command, args []string) error {
	logger, err := cli.NewCommandLogger()
	if err != nil {
		return err
	}
	store, err := openStore(logger, false)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Delete(args[0])
}

func loadSnapshot(logger logrus.FieldLogger, name string) ([]*ldap.Entry, error) {
	store, err := openStore(logger, true)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.Load(name)
}

func printDiff(w io.Writer, d snapshot.EntryDiff) {
	fmt.Fprintf(w, "dn: %s\n", d.DN)
	if d.Removed {
		fmt.Fprintln(w, "- entry")
	}
	for _, a := range d.Attributes {
		for _, v := range a.Saved {
			fmt.Fprintf(w, "- %s: %s\n", a.Name, v)
		}
		for _, v := range a.Live {
			fmt.Fprintf(w, "+ %s: %s\n", a.Name, v)
		}
	}
	fmt.Fprintln(w)
}
