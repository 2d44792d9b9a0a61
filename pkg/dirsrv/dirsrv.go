/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

// Package dirsrv provides the connection to a running directory server used
// by the cn=config tooling.
package dirsrv

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/sirupsen/logrus"
)

var ErrNoSuchEntry = errors.New("no such entry")

// Options contains everything needed to connect and bind.
type Options struct {
	URI          string
	BindDN       string
	BindPassword string

	StartTLS           bool
	InsecureSkipVerify bool
	CACertFile         string

	Timeout time.Duration
}

// Client is the subset of the ldap client used by DirSrv, *ldap.Conn
// implements it.
type Client interface {
	Add(*ldap.AddRequest) error
	Del(*ldap.DelRequest) error
	Modify(*ldap.ModifyRequest) error
	Search(*ldap.SearchRequest) (*ldap.SearchResult, error)
	Unbind() error
	Close() error
}

// DirSrv is an authenticated connection to a directory server.
type DirSrv struct {
	logger logrus.FieldLogger
	conn   Client

	loggerWriter io.Closer

	Stats *Stats
}

// Connect dials the server named by opts.URI, upgrades the connection with
// StartTLS when requested and binds. An empty BindDN binds anonymously.
func Connect(logger logrus.FieldLogger, opts *Options) (*DirSrv, error) {
	u, err := url.Parse(opts.URI)
	if err != nil {
		return nil, fmt.Errorf("invalid LDAP URI '%s': %w", opts.URI, err)
	}

	var tlsConfig *tls.Config
	if u.Scheme == "ldaps" || opts.StartTLS {
		tlsConfig, err = newTLSConfig(u, opts)
		if err != nil {
			return nil, err
		}
	}

	dialOpts := []ldap.DialOpt{}
	if tlsConfig != nil {
		dialOpts = append(dialOpts, ldap.DialWithTLSConfig(tlsConfig))
	}
	if opts.Timeout > 0 {
		dialOpts = append(dialOpts, ldap.DialWithDialer(&net.Dialer{Timeout: opts.Timeout}))
	}

	logger.WithField("uri", opts.URI).Debugln("connecting to directory server")
	conn, err := ldap.DialURL(opts.URI, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to '%s': %w", opts.URI, err)
	}
	if opts.Timeout > 0 {
		conn.SetTimeout(opts.Timeout)
	}

	if opts.StartTLS && u.Scheme != "ldaps" {
		if err = conn.StartTLS(tlsConfig); err != nil {
			conn.Close()
			return nil, fmt.Errorf("StartTLS failed: %w", err)
		}
	}

	ds := New(logger, conn)

	if opts.BindDN == "" {
		err = conn.UnauthenticatedBind("")
	} else {
		err = conn.Bind(opts.BindDN, opts.BindPassword)
	}
	ds.Stats.countBinds(1)
	if err != nil {
		ds.Stats.countErrors(1)
		ds.Close()
		return nil, fmt.Errorf("bind as '%s' failed: %w", opts.BindDN, err)
	}
	logger.WithField("bind_dn", opts.BindDN).Debugln("bound to directory server")

	return ds, nil
}

// New wraps an existing client connection.
func New(logger logrus.FieldLogger, conn Client) *DirSrv {
	ds := &DirSrv{
		logger: logger,
		conn:   conn,

		Stats: &Stats{},
	}

	// NOTE: the ldap package uses the standard logger for debug output. Route
	// it into our logger.
	writer := logger.WithField("scope", "ldap").WriterLevel(logrus.DebugLevel)
	ds.loggerWriter = writer
	log.SetFlags(0)
	log.SetOutput(writer)

	return ds
}

// Modify sends a modify request.
func (ds *DirSrv) Modify(req *ldap.ModifyRequest) error {
	ds.logger.WithField("dn", req.DN).Debugf("modify %d changes", len(req.Changes))
	ds.Stats.countModifies(1)
	if err := ds.conn.Modify(req); err != nil {
		ds.Stats.countErrors(1)
		return fmt.Errorf("modify '%s': %w", req.DN, err)
	}
	return nil
}

// Add sends an add request.
func (ds *DirSrv) Add(req *ldap.AddRequest) error {
	ds.logger.WithField("dn", req.DN).Debugln("add")
	ds.Stats.countAdds(1)
	if err := ds.conn.Add(req); err != nil {
		ds.Stats.countErrors(1)
		return fmt.Errorf("add '%s': %w", req.DN, err)
	}
	return nil
}

// Del sends a delete request.
func (ds *DirSrv) Del(req *ldap.DelRequest) error {
	ds.logger.WithField("dn", req.DN).Debugln("delete")
	ds.Stats.countDeletes(1)
	if err := ds.conn.Del(req); err != nil {
		ds.Stats.countErrors(1)
		return fmt.Errorf("delete '%s': %w", req.DN, err)
	}
	return nil
}

// Search runs a search and returns the entries found.
func (ds *DirSrv) Search(base string, scope int, filter string, attributes ...string) ([]*ldap.Entry, error) {
	ds.logger.WithFields(logrus.Fields{
		"base":   base,
		"scope":  ldap.ScopeMap[scope],
		"filter": filter,
	}).Debugln("search")
	ds.Stats.countSearches(1)

	req := ldap.NewSearchRequest(base, scope, ldap.NeverDerefAliases, 0, 0, false, filter, attributes, nil)
	res, err := ds.conn.Search(req)
	if err != nil {
		ds.Stats.countErrors(1)
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, noSuchEntry(base, err)
		}
		return nil, fmt.Errorf("search '%s': %w", base, err)
	}
	return res.Entries, nil
}

// GetEntry reads a single entry. Without attributes all user attributes are
// returned.
func (ds *DirSrv) GetEntry(dn string, attributes ...string) (*ldap.Entry, error) {
	entries, err := ds.Search(dn, ldap.ScopeBaseObject, "(objectClass=*)", attributes...)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, noSuchEntry(dn, ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("search returned no entries")))
	}
	return entries[0], nil
}

// noSuchEntry wraps both ErrNoSuchEntry and the LDAP error, so callers can
// test with errors.Is or ldap.IsErrorWithCode.
func noSuchEntry(dn string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrNoSuchEntry, dn, err)
}

// Close unbinds and closes the connection.
func (ds *DirSrv) Close() {
	if ds.conn != nil {
		ds.Stats.countUnbinds(1)
		if err := ds.conn.Unbind(); err != nil {
			ds.logger.WithError(err).Debugln("unbind failed")
		}
		ds.conn.Close()
		ds.conn = nil
	}
	if ds.loggerWriter != nil {
		log.SetOutput(os.Stderr)
		ds.loggerWriter.Close()
		ds.loggerWriter = nil
	}
}

func newTLSConfig(u *url.URL, opts *Options) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		ServerName:         u.Hostname(),
		InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec
		MinVersion:         tls.VersionTLS12,
	}
	if opts.CACertFile != "" {
		pem, err := os.ReadFile(opts.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in '%s'", opts.CACertFile)
		}
		tlsConfig.RootCAs = pool
	}
	return tlsConfig, nil
}
