/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package cli

import (
	"errors"

	"github.com/Songmu/prompter"
)

func promptForBindPassword(bindDN string) (string, error) {
	password := (&prompter.Prompter{
		Message:    "Password for " + bindDN,
		UseDefault: false,
		NoEcho:     true,
	}).Prompt()
	if password == "" {
		return "", errors.New("no bind password given")
	}
	return password, nil
}

// PromptForNewPassword asks twice for a new password.
func PromptForNewPassword() (string, error) {
	password := (&prompter.Prompter{
		Message:    "New password",
		UseDefault: false,
		NoEcho:     true,
	}).Prompt()

	confirm := (&prompter.Prompter{
		Message:    "Re-enter new password",
		UseDefault: false,
		NoEcho:     true,
	}).Prompt()

	if password != confirm || password == "" {
		return "", errors.New("password verification failed")
	}

	return password, nil
}
