/*
 * SPDX-License-Identifier: AGPL-3.0-or-later
 * Copyright 2021 Kopano and its licensors
 */

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	ExitCodeStartupError = 64
)

type ErrorWithExitCode struct {
	Code int
	Err  error
}

func (e *ErrorWithExitCode) Error() string {
	return e.Err.Error()
}

func (e *ErrorWithExitCode) Unwrap() error {
	return e.Err
}

func WrapErrorWithExitCode(err error, code int) error {
	return &ErrorWithExitCode{
		Err:  err,
		Code: code,
	}
}

// StartupError marks errors which happen before any request was sent, like
// invalid flags or a failed connection.
func StartupError(err error) error {
	return WrapErrorWithExitCode(err, ExitCodeStartupError)
}

// Exit prints err and exits with the code carried by err, 1 otherwise.
func Exit(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var exitCodeErr *ErrorWithExitCode
	if errors.As(err, &exitCodeErr) {
		os.Exit(exitCodeErr.Code)
	}
	os.Exit(1)
}

// Run adapts fn for cobra.Command.Run, exiting on error.
func Run(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		if err := fn(cmd, args); err != nil {
			Exit(err)
		}
	}
}

// WithSession opens a Session for fn and closes it afterwards.
func WithSession(fn func(s *Session, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) {
	return Run(func(cmd *cobra.Command, args []string) error {
		s, err := Open(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(s, cmd, args)
	})
}
