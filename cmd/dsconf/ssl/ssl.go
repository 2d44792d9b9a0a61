/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package ssl

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/libregraph/dsconf/internal/cli"
	"github.com/libregraph/dsconf/pkg/dsconfig"
)

var (
	DefaultSecurePort = dsconfig.DefaultSecurePort
	DefaultArgs       = map[string]string{}
	DefaultCertName   = ""
	DefaultClientAuth = ""
)

func CommandSSL() *cobra.Command {
	sslCmd := &cobra.Command{
		Use:   "ssl [...args]",
		Short: "Manage SSL settings in cn=encryption,cn=config",
	}

	enableCmd := &cobra.Command{
		Use:   "enable",
		Short: "Configure and enable SSL",
		Long: `The enable command sets the SSL attributes of cn=encryption,cn=config,
creates the cn=RSA,cn=encryption,cn=config module entry when missing and
turns on nsslapd-security with the given secure port.

Attribute values can be overridden with --arg, for example

  dsconf ssl enable --arg nsSSLClientAuth=required --arg nsSSL3=off`,
		Args: cobra.NoArgs,
		Run:  cli.WithSession(enable),
	}
	enableCmd.Flags().IntVar(&DefaultSecurePort, "secure-port", DefaultSecurePort, "LDAPS port (nsslapd-secureport)")
	enableCmd.Flags().StringToStringVar(&DefaultArgs, "arg", DefaultArgs, "Override an attribute value written by enable (attribute=value)")
	enableCmd.Flags().StringVar(&DefaultCertName, "cert-name", DefaultCertName, "Name of the server certificate (nsSSLPersonalitySSL)")
	enableCmd.Flags().StringVar(&DefaultClientAuth, "client-auth", DefaultClientAuth, "Client authentication: off, allowed or required (nsSSLClientAuth)")

	defaultsCmd := &cobra.Command{
		Use:   "defaults",
		Short: "Print the attribute values used by enable",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			defaults := dsconfig.DefaultSSLArgs()
			keys := make([]string, 0, len(defaults))
			for key := range defaults {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", key, defaults[key])
			}
		},
	}

	sslCmd.AddCommand(enableCmd, defaultsCmd)

	return sslCmd
}

func enable(s *cli.Session, cmd *cobra.Command, args []string) error {
	sslArgs := dsconfig.SSLArgs{}
	for k, v := range DefaultArgs {
		sslArgs[k] = v
	}
	if DefaultCertName != "" {
		sslArgs["nsSSLPersonalitySSL"] = DefaultCertName
	}
	if DefaultClientAuth != "" {
		sslArgs["nsSSLClientAuth"] = DefaultClientAuth
	}

	entry, err := s.Config.EnableSSL(DefaultSecurePort, sslArgs)
	if err != nil {
		return err
	}
	for _, attr := range entry.Attributes {
		for _, v := range attr.Values {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", attr.Name, v)
		}
	}
	return nil
}
