/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

// Package dryrun provides a directory which reads from a live server but
// only prints the change requests it receives as LDIF.
package dryrun

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldif"
	"github.com/sirupsen/logrus"

	"github.com/libregraph/dsconf/pkg/ldapdn"
	"github.com/libregraph/dsconf/pkg/ldapentry"
)

// Reader reads entries from the live server.
type Reader interface {
	GetEntry(dn string, attributes ...string) (*ldap.Entry, error)
	Search(base string, scope int, filter string, attributes ...string) ([]*ldap.Entry, error)
}

// Directory writes every add, modify and delete request to out as an LDIF
// change record. Changes are kept in an overlay so that later reads of the
// same entry see them. Search is not affected by the overlay.
type Directory struct {
	logger logrus.FieldLogger
	reader Reader
	out    io.Writer

	overlay map[string]*ldap.Entry
	deleted map[string]bool
}

func New(logger logrus.FieldLogger, reader Reader, out io.Writer) *Directory {
	return &Directory{
		logger: logger,
		reader: reader,
		out:    out,

		overlay: map[string]*ldap.Entry{},
		deleted: map[string]bool{},
	}
}

func (d *Directory) Modify(req *ldap.ModifyRequest) error {
	nDN, err := ldapdn.ParseNormalize(req.DN)
	if err != nil {
		return ldap.NewError(ldap.LDAPResultInvalidDNSyntax, err)
	}
	current, err := d.current(nDN, req.DN)
	if err != nil {
		return err
	}
	modified, err := ldapentry.ApplyModify(current, req)
	if err != nil {
		return err
	}
	if err := d.write(req); err != nil {
		return err
	}
	d.overlay[nDN] = modified
	return nil
}

func (d *Directory) Add(req *ldap.AddRequest) error {
	nDN, err := ldapdn.ParseNormalize(req.DN)
	if err != nil {
		return ldap.NewError(ldap.LDAPResultInvalidDNSyntax, err)
	}
	if _, err := d.current(nDN, req.DN); err == nil {
		return ldap.NewError(ldap.LDAPResultEntryAlreadyExists,
			fmt.Errorf("entry '%s' already exists", req.DN))
	} else if !ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
		return err
	}
	if err := d.write(req); err != nil {
		return err
	}
	d.overlay[nDN] = ldapentry.EntryFromAddRequest(req)
	delete(d.deleted, nDN)
	return nil
}

func (d *Directory) Del(req *ldap.DelRequest) error {
	nDN, err := ldapdn.ParseNormalize(req.DN)
	if err != nil {
		return ldap.NewError(ldap.LDAPResultInvalidDNSyntax, err)
	}
	if _, err := d.current(nDN, req.DN); err != nil {
		return err
	}
	if err := d.write(req); err != nil {
		return err
	}
	delete(d.overlay, nDN)
	d.deleted[nDN] = true
	return nil
}

func (d *Directory) GetEntry(dn string, attributes ...string) (*ldap.Entry, error) {
	nDN, err := ldapdn.ParseNormalize(dn)
	if err != nil {
		return nil, ldap.NewError(ldap.LDAPResultInvalidDNSyntax, err)
	}
	if _, ok := d.overlay[nDN]; !ok {
		if d.deleted[nDN] {
			return nil, noSuchObject(dn)
		}
		return d.reader.GetEntry(dn, attributes...)
	}
	return filterAttributes(d.overlay[nDN], attributes), nil
}

func (d *Directory) Search(base string, scope int, filter string, attributes ...string) ([]*ldap.Entry, error) {
	return d.reader.Search(base, scope, filter, attributes...)
}

// current returns the entry as it would be on the server after all changes
// so far.
func (d *Directory) current(nDN, dn string) (*ldap.Entry, error) {
	if e, ok := d.overlay[nDN]; ok {
		return e, nil
	}
	if d.deleted[nDN] {
		return nil, noSuchObject(dn)
	}
	return d.reader.GetEntry(dn)
}

func (d *Directory) write(req interface{}) error {
	ld, err := ldif.ToLDIF(req)
	if err != nil {
		return fmt.Errorf("failed to convert request: %w", err)
	}
	output, err := ldif.Marshal(ld)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	d.logger.Debugf("dry run, not sending:\n%s", output)
	if !strings.HasSuffix(output, "\n\n") {
		output += "\n"
	}
	_, err = io.WriteString(d.out, output)
	return err
}

func filterAttributes(e *ldap.Entry, attributes []string) *ldap.Entry {
	if len(attributes) == 0 {
		return e
	}
	res := &ldap.Entry{DN: e.DN}
	for _, a := range e.Attributes {
		for _, wanted := range attributes {
			if strings.EqualFold(a.Name, wanted) {
				res.Attributes = append(res.Attributes, a)
				break
			}
		}
	}
	return res
}

func noSuchObject(dn string) error {
	return ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("entry '%s' does not exist", dn))
}
