/*
 * SPDX-License-Identifier: AGPL-3.0-or-later
 * Copyright 2021 Kopano and its licensors
 */

package rootpw

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sethvargo/go-password/password"
	"github.com/spf13/cobra"

	"github.com/libregraph/dsconf/internal/cli"
	"github.com/libregraph/dsconf/pkg/ldappassword"
)

var (
	DefaultPasswordScheme = "{SSHA}"

	DefaultArgon2Memory     = ldappassword.Argon2DefaultParams.Memory
	DefaultArgon2Iterations = ldappassword.Argon2DefaultParams.Iterations
	DefaultArgon2Lanes      = ldappassword.Argon2DefaultParams.Parallelism

	DefaultMinPasswordStrength = 3

	PrintOnly = false
)

func CommandRootPW() *cobra.Command {
	rootpwCmd := &cobra.Command{
		Use:   "rootpw",
		Short: "Set the directory manager password",
		Long: `Hash a new directory manager password and store it in nsslapd-rootpw.
With --print-only the hash is printed and nothing is sent to the server.`,
		Args: cobra.NoArgs,
		Run:  cli.Run(rootpw),
	}

	rootpwCmd.Flags().StringVar(&DefaultPasswordScheme, "password-scheme", DefaultPasswordScheme, "Password hash algorithm, supports: "+strings.Join(ldappassword.Schemes, ", "))
	rootpwCmd.Flags().Uint32Var(&DefaultArgon2Memory, "argon2-memory", DefaultArgon2Memory, "Amount of memory used for ARGON2 password hashing in Kibibytes")
	rootpwCmd.Flags().Uint32Var(&DefaultArgon2Iterations, "argon2-iterations", DefaultArgon2Iterations, "Number of iterations over memory used for ARGON2 password hashing")
	rootpwCmd.Flags().Uint8Var(&DefaultArgon2Lanes, "argon2-lanes", DefaultArgon2Lanes, "Number of lanes used for ARGON2 password hashing")

	rootpwCmd.Flags().StringP("secret", "s", "", "The new password")
	rootpwCmd.Flags().BoolP("generate", "g", false, "Generate a random password and print it")
	rootpwCmd.Flags().StringP("secret-file", "T", "", "File containing the new password")

	rootpwCmd.Flags().BoolVar(&PrintOnly, "print-only", PrintOnly, "Only print the hashed password")
	rootpwCmd.Flags().IntVar(&DefaultMinPasswordStrength, "min-password-strength", DefaultMinPasswordStrength, "Mimimal required password strength (0=too guessable, 1=very guessable, 2=somewhat guessable, 3=safely unguessable, 4=very unguessable)")

	return rootpwCmd
}

func rootpw(cmd *cobra.Command, args []string) error {
	ldappassword.Argon2DefaultParams.Memory = DefaultArgon2Memory
	ldappassword.Argon2DefaultParams.Iterations = DefaultArgon2Iterations
	ldappassword.Argon2DefaultParams.Parallelism = DefaultArgon2Lanes

	secret, generated, err := readSecret(cmd)
	if err != nil {
		return cli.StartupError(err)
	}

	if !generated {
		score := ldappassword.EstimatePasswordStrength(secret, nil)
		if score < DefaultMinPasswordStrength {
			return cli.StartupError(fmt.Errorf("secret not secure, %s (score %d)", strengthName(score), score))
		}
	}

	hash, err := hashSecret(secret, DefaultPasswordScheme)
	if err != nil {
		return cli.StartupError(err)
	}

	if generated {
		fmt.Fprintln(cmd.OutOrStdout(), secret)
	}
	if PrintOnly {
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	}

	s, err := cli.Open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.Config.SetRootPassword(hash)
}

// hashSecret hashes secret and fails unless the result verifies against it.
func hashSecret(secret, scheme string) (string, error) {
	hash, err := ldappassword.Hash(secret, scheme)
	if err != nil {
		return "", err
	}
	if ok, err := ldappassword.Validate(secret, hash); !ok {
		return "", fmt.Errorf("%s hash does not verify: %w", scheme, err)
	}
	return hash, nil
}

func readSecret(cmd *cobra.Command) (string, bool, error) {
	var secret string
	var generated bool
	var exclusive = 0

	if cmd.Flags().Changed("secret") {
		secret, _ = cmd.Flags().GetString("secret")
		exclusive++
	}
	if cmd.Flags().Changed("secret-file") {
		fn, _ := cmd.Flags().GetString("secret-file")
		secretBytes, readErr := os.ReadFile(filepath.Clean(fn))
		if readErr != nil {
			return "", false, fmt.Errorf("failed to read secret file: %w", readErr)
		}
		secret = strings.TrimRight(string(secretBytes), "\r\n")
		exclusive++
	}
	if cmd.Flags().Changed("generate") {
		var genError error
		secret, genError = password.Generate(20, 4, 4, false, false)
		if genError != nil {
			return "", false, fmt.Errorf("password generator error: %w", genError)
		}
		generated = true
		exclusive++
	}

	if exclusive > 1 {
		return "", false, fmt.Errorf("-s -g and -T are mutually exclusive")
	} else if exclusive == 0 {
		var err error
		secret, err = cli.PromptForNewPassword()
		if err != nil {
			return "", false, err
		}
	}
	if strings.TrimSpace(secret) == "" {
		return "", false, fmt.Errorf("secret is empty")
	}
	return secret, generated, nil
}

func strengthName(score int) string {
	switch score {
	case 0:
		return "too guessable"
	case 1:
		return "very guessable"
	case 2:
		return "somewhat guessable"
	case 3:
		return "safely unguessable"
	case 4:
		return "very unguessable"
	default:
		return "unknown score level"
	}
}
