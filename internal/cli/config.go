/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/libregraph/dsconf"
	"github.com/libregraph/dsconf/pkg/dirsrv"
)

var (
	DefaultLogTimestamp = false
	DefaultLogLevel     = "warn"

	DefaultConfigFile = ""
	DefaultInstance   = ""

	DefaultLDAPURI          = dsconf.DefaultLDAPURI
	DefaultBindDN           = dsconf.DefaultBindDN
	DefaultBindPassword     = ""
	DefaultBindPasswordFile = ""
	DefaultNoPasswordPrompt = false

	DefaultStartTLS      = false
	DefaultTLSCACertFile = ""
	DefaultTLSInsecure   = false
	DefaultTimeout       = 30 * time.Second

	DefaultStrict          = false
	DefaultDryRun          = false
	DefaultMetricsTextfile = ""

	DefaultEnvPrefix = "DSCONF"
)

// RegisterFlags adds the connection and logging flags shared by all commands
// which talk to a directory server.
func RegisterFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.BoolVar(&DefaultLogTimestamp, "log-timestamp", DefaultLogTimestamp, "Prefix each log line with timestamp")
	flags.StringVar(&DefaultLogLevel, "log-level", DefaultLogLevel, "Log level (one of panic, fatal, error, warn, info or debug)")

	flags.StringVar(&DefaultConfigFile, "config", DefaultConfigFile, "Path to the instance file (default ~/"+dsconf.DefaultConfigFile+")")
	flags.StringVarP(&DefaultInstance, "instance", "i", DefaultInstance, "Name of the instance section in the instance file")

	flags.StringVarP(&DefaultLDAPURI, "uri", "H", DefaultLDAPURI, "LDAP URI of the directory server")
	flags.StringVarP(&DefaultBindDN, "bind-dn", "D", DefaultBindDN, "DN to bind as")
	flags.StringVarP(&DefaultBindPassword, "bind-password", "w", DefaultBindPassword, "Password for the bind DN")
	flags.StringVarP(&DefaultBindPasswordFile, "bind-password-file", "y", DefaultBindPasswordFile, "File containing the password for the bind DN")
	flags.BoolVar(&DefaultNoPasswordPrompt, "no-password-prompt", DefaultNoPasswordPrompt, "Never prompt for the bind password")
	flags.BoolVarP(&DefaultStartTLS, "starttls", "Z", DefaultStartTLS, "Use StartTLS on ldap:// connections")
	flags.StringVar(&DefaultTLSCACertFile, "tls-cacert-file", DefaultTLSCACertFile, "CA certificate used to verify the server certificate")
	flags.BoolVar(&DefaultTLSInsecure, "tls-insecure", DefaultTLSInsecure, "Do not verify the server certificate")
	flags.DurationVar(&DefaultTimeout, "timeout", DefaultTimeout, "Timeout for connecting and for each request")

	flags.BoolVar(&DefaultStrict, "strict", DefaultStrict, "Reject unknown log service names")
	flags.BoolVarP(&DefaultDryRun, "dry-run", "n", DefaultDryRun, "Print changes as LDIF instead of sending them")
	flags.StringVar(&DefaultMetricsTextfile, "metrics-textfile", DefaultMetricsTextfile, "Write request metrics to this file in Prometheus text format")
}

// settings merges flags, environment and the instance file. Flags which are
// set explicitly win, then DSCONF_* environment variables, then the selected
// instance section, then the flag defaults.
type settings struct {
	cmd      *cobra.Command
	env      *viper.Viper
	instance *viper.Viper
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	s := &settings{
		cmd: cmd,
		env: viper.New(),
	}
	s.env.SetEnvPrefix(DefaultEnvPrefix)
	s.env.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	s.env.AutomaticEnv()

	instanceName := s.string("instance", "instance")
	configFile := s.string("config", "config")
	explicit := configFile != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return s, nil
		}
		configFile = filepath.Join(home, dsconf.DefaultConfigFile)
	}

	file := viper.New()
	file.SetConfigFile(configFile)
	file.SetConfigType("toml")
	if err := file.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !explicit && (errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)) {
			if instanceName != "" {
				return nil, fmt.Errorf("instance %q requested but no instance file found", instanceName)
			}
			return s, nil
		}
		return nil, fmt.Errorf("failed to read instance file '%s': %w", configFile, err)
	}

	if instanceName == "" {
		instanceName = file.GetString("default")
	}
	if instanceName != "" {
		s.instance = file.Sub(instanceName)
		if s.instance == nil {
			return nil, fmt.Errorf("instance %q not found in '%s'", instanceName, configFile)
		}
	}
	return s, nil
}

func (s *settings) lookup(flag, key string) (string, bool) {
	if f := s.cmd.Flags().Lookup(flag); f != nil && f.Changed {
		return f.Value.String(), true
	}
	if s.env.IsSet(key) {
		return s.env.GetString(key), true
	}
	if s.instance != nil && s.instance.IsSet(key) {
		return s.instance.GetString(key), true
	}
	return "", false
}

func (s *settings) string(flag, key string) string {
	if v, ok := s.lookup(flag, key); ok {
		return v
	}
	if f := s.cmd.Flags().Lookup(flag); f != nil {
		return f.Value.String()
	}
	return ""
}

func (s *settings) bool(flag, key string) bool {
	v := s.string(flag, key)
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

// dirsrvOptions builds the connection options without the bind password.
func (s *settings) dirsrvOptions() (*dirsrv.Options, error) {
	timeout, err := time.ParseDuration(s.string("timeout", "timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	opts := &dirsrv.Options{
		URI:                s.string("uri", "uri"),
		BindDN:             s.string("bind-dn", "binddn"),
		StartTLS:           s.bool("starttls", "starttls"),
		CACertFile:         s.string("tls-cacert-file", "tls_cacert"),
		InsecureSkipVerify: s.bool("tls-insecure", "tls_insecure"),
		Timeout:            timeout,
	}
	if opts.URI == "" {
		return nil, errors.New("no LDAP URI given")
	}
	return opts, nil
}
