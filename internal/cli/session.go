/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/libregraph/dsconf/pkg/dirsrv"
	"github.com/libregraph/dsconf/pkg/dryrun"
	"github.com/libregraph/dsconf/pkg/dsconfig"
	"github.com/libregraph/dsconf/pkg/ldifconfig"
)

// Directory is what commands use to talk to the server, either the real
// connection or its dry run stand-in.
type Directory interface {
	dsconfig.Directory
	ldifconfig.Applier
	ldifconfig.Searcher
}

// Session bundles everything a command needs for one run.
type Session struct {
	Logger    logrus.FieldLogger
	Directory Directory
	Config    *dsconfig.Config

	conn *dirsrv.DirSrv
}

// NewCommandLogger creates the logger for commands which do not connect.
func NewCommandLogger() (logrus.FieldLogger, error) {
	logger, err := newLogger(!DefaultLogTimestamp, DefaultLogLevel)
	if err != nil {
		return nil, StartupError(fmt.Errorf("failed to create logger: %w", err))
	}
	return logger, nil
}

// Open connects to the directory server selected by flags, environment and
// instance file.
func Open(cmd *cobra.Command) (*Session, error) {
	logger, err := NewCommandLogger()
	if err != nil {
		return nil, err
	}

	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, StartupError(err)
	}
	opts, err := settings.dirsrvOptions()
	if err != nil {
		return nil, StartupError(err)
	}
	if opts.BindDN != "" {
		opts.BindPassword, err = bindPassword(settings)
		if err != nil {
			return nil, StartupError(err)
		}
	}

	conn, err := dirsrv.Connect(logger, opts)
	if err != nil {
		return nil, StartupError(err)
	}

	return newSession(logger, conn, cmd.OutOrStdout()), nil
}

// newSession wraps conn. With --dry-run change requests are written to out
// as LDIF instead of being sent.
func newSession(logger logrus.FieldLogger, conn *dirsrv.DirSrv, out io.Writer) *Session {
	s := &Session{
		Logger: logger,
		conn:   conn,
	}
	s.Directory = conn
	if DefaultDryRun {
		logger.Infoln("dry run, changes are printed and not sent")
		s.Directory = dryrun.New(logger, conn, out)
	}
	s.Config = dsconfig.New(logger, s.Directory, &dsconfig.Options{
		Strict: DefaultStrict,
	})

	return s
}

// Close closes the connection and writes the metrics textfile if requested.
func (s *Session) Close() {
	s.conn.Close()

	if DefaultMetricsTextfile != "" {
		if err := writeMetrics(DefaultMetricsTextfile, s.conn); err != nil {
			s.Logger.WithError(err).Errorln("failed to write metrics")
		}
	}
}

func writeMetrics(filename string, conn *dirsrv.DirSrv) error {
	metricsRegistry := prometheus.NewPedanticRegistry()
	dirsrv.MustRegister(prometheus.WrapRegistererWithPrefix("dsconf_", metricsRegistry), dirsrv.NewCollector(conn))
	return prometheus.WriteToTextfile(filepath.Clean(filename), metricsRegistry)
}

func bindPassword(s *settings) (string, error) {
	if v, ok := s.lookup("bind-password", "bindpw"); ok {
		return v, nil
	}
	if fn, ok := s.lookup("bind-password-file", "bindpw_file"); ok && fn != "" {
		b, err := os.ReadFile(filepath.Clean(fn))
		if err != nil {
			return "", fmt.Errorf("failed to read bind password file: %w", err)
		}
		return strings.TrimRight(string(b), "\r\n"), nil
	}
	if DefaultNoPasswordPrompt {
		return "", nil
	}
	return promptForBindPassword(s.string("bind-dn", "binddn"))
}
