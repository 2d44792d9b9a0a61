/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

// Package dsconfig manages the "cn=config" tree of a directory server. It
// gets and sets cn=config attributes, switches the access, error and audit
// logs, sets log levels and configures SSL in "cn=encryption,cn=config".
//
// Every method maps to one or more LDAP requests sent through a Directory.
package dsconfig

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-ldap/ldap/v3"
	"github.com/sirupsen/logrus"
)

const (
	DNConfig        = "cn=config"
	DNEncryption    = "cn=encryption,cn=config"
	DNEncryptionRSA = "cn=RSA,cn=encryption,cn=config"
)

var (
	ErrNoSuchAttribute   = errors.New("no such attribute")
	ErrInvalidLogService = errors.New("invalid log service")
	ErrNoLogLevel        = errors.New("set at least one log level")
)

// Directory is the connection to the directory server used by Config. In
// tests it can be swapped for a double.
type Directory interface {
	Modify(req *ldap.ModifyRequest) error
	Add(req *ldap.AddRequest) error
	GetEntry(dn string, attributes ...string) (*ldap.Entry, error)
}

// Options tune a Config.
type Options struct {
	// Strict rejects unknown log service names instead of only logging them.
	Strict bool
}

// Config manages the cn=config tree through a Directory.
type Config struct {
	logger logrus.FieldLogger
	conn   Directory

	strict bool
}

// New returns a Config which sends its requests through conn.
func New(logger logrus.FieldLogger, conn Directory, options *Options) *Config {
	c := &Config{
		logger: logger,
		conn:   conn,
	}
	if options != nil {
		c.strict = options.Strict
	}
	return c
}

// Set replaces the value of a cn=config attribute, for example
// Set("passwordExp", "on").
func (c *Config) Set(key, value string) error {
	return c.SetValues(key, value)
}

// SetValues replaces all values of a cn=config attribute.
func (c *Config) SetValues(key string, values ...string) error {
	c.logger.Debugf("set(%q, %q)", key, values)
	mr := ldap.NewModifyRequest(DNConfig, nil)
	mr.Replace(key, values)
	if err := c.conn.Modify(mr); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Get returns the first value of a cn=config attribute.
func (c *Config) Get(key string) (string, error) {
	values, err := c.GetValues(key)
	if err != nil {
		return "", err
	}
	return values[0], nil
}

// GetValues returns all values of a cn=config attribute.
func (c *Config) GetValues(key string) ([]string, error) {
	entry, err := c.conn.GetEntry(DNConfig, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", DNConfig, err)
	}
	values := entry.GetEqualFoldAttributeValues(key)
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchAttribute, key)
	}
	return values, nil
}

// EnableLog enables the access, error or audit log.
func (c *Config) EnableLog(service string) error {
	return c.alterLogEnabled(service, "on")
}

// DisableLog disables the access, error or audit log.
func (c *Config) DisableLog(service string) error {
	return c.alterLogEnabled(service, "off")
}

func (c *Config) alterLogEnabled(service, state string) error {
	if err := c.checkLogService(service, "access", "error", "audit"); err != nil {
		return err
	}
	attr := fmt.Sprintf("nsslapd-%slog-logging-enabled", service)
	c.logger.Debugf("setting log %s to %s", attr, state)
	return c.Set(attr, state)
}

// SetLogLevel sets the access or error log level to the OR of values. With
// update the current level is kept and values are added to it. The audit log
// has no level, use EnableLog or DisableLog. Returns the level written.
func (c *Config) SetLogLevel(values []LogLevel, service string, update bool) (LogLevel, error) {
	if err := c.checkLogService(service, "access", "error"); err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, ErrNoLogLevel
	}
	attr := fmt.Sprintf("nsslapd-%slog-level", service)
	total := CombineLogLevels(values...)

	if update {
		current, err := c.Get(attr)
		if err != nil {
			return 0, err
		}
		old, err := strconv.Atoi(current)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %q: %w", attr, current, err)
		}
		total |= LogLevel(old)
		c.logger.Debugf("update %s value: %d -> %d", attr, old, total)
	} else {
		c.logger.Debugf("replace %s with value: %d", attr, total)
	}

	if err := c.Set(attr, total.String()); err != nil {
		return 0, err
	}
	return total, nil
}

// SetLogBuffering switches access log buffering.
func (c *Config) SetLogBuffering(enabled bool) error {
	return c.Set("nsslapd-accesslog-logbuffering", onOff(enabled))
}

// SetRootPassword replaces the directory manager password. The value should
// already be hashed, see package ldappassword.
func (c *Config) SetRootPassword(hashed string) error {
	c.logger.Debugln("set nsslapd-rootpw")
	mr := ldap.NewModifyRequest(DNConfig, nil)
	mr.Replace("nsslapd-rootpw", []string{hashed})
	if err := c.conn.Modify(mr); err != nil {
		return fmt.Errorf("failed to set nsslapd-rootpw: %w", err)
	}
	return nil
}

func (c *Config) checkLogService(service string, valid ...string) error {
	for _, v := range valid {
		if service == v {
			return nil
		}
	}
	c.logger.WithField("service", service).Errorln("invalid log service")
	if c.strict {
		return fmt.Errorf("%w: %q", ErrInvalidLogService, service)
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
