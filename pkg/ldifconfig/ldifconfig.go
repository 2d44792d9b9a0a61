/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

// Package ldifconfig exports configuration entries as LDIF and applies LDIF
// change records to a directory server.
package ldifconfig

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldif"
	"github.com/sirupsen/logrus"

	"github.com/libregraph/dsconf/pkg/ldapentry"
)

// Searcher reads entries.
type Searcher interface {
	Search(base string, scope int, filter string, attributes ...string) ([]*ldap.Entry, error)
}

// Applier sends change requests.
type Applier interface {
	Add(req *ldap.AddRequest) error
	Modify(req *ldap.ModifyRequest) error
	Del(req *ldap.DelRequest) error
}

// Export writes all entries found below base with the given scope as LDIF
// to w and returns the number of entries written.
func Export(dir Searcher, w io.Writer, base string, scope int) (int, error) {
	entries, err := dir.Search(base, scope, "(objectClass=*)")
	if err != nil {
		return 0, err
	}
	if err := Write(w, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Write writes entries as LDIF content records.
func Write(w io.Writer, entries []*ldap.Entry) error {
	records := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		records = append(records, e)
	}
	ld, err := ldif.ToLDIF(records...)
	if err != nil {
		return fmt.Errorf("failed to convert entries: %w", err)
	}
	output, err := ldif.Marshal(ld)
	if err != nil {
		return fmt.Errorf("failed to marshal LDIF: %w", err)
	}
	_, err = io.WriteString(w, output)
	return err
}

// Apply reads LDIF records from r and sends them in order. Content records
// and "changetype: add" become add requests, "changetype: modify" modify
// requests and "changetype: delete" delete requests. Apply stops at the first
// failing record and returns the number of records applied before it.
func Apply(logger logrus.FieldLogger, dir Applier, r io.Reader) (int, error) {
	lf := &ldif.LDIF{}
	if err := ldif.Unmarshal(r, lf); err != nil {
		return 0, fmt.Errorf("failed to parse LDIF: %w", err)
	}

	applied := 0
	for _, record := range lf.Entries {
		var err error
		switch {
		case record.Entry != nil:
			logger.Debugf("adding '%s'", record.Entry.DN)
			err = dir.Add(ldapentry.AddRequestFromEntry(record.Entry))
		case record.Add != nil:
			logger.Debugf("adding '%s'", record.Add.DN)
			err = dir.Add(record.Add)
		case record.Modify != nil:
			logger.Debugf("modifying '%s'", record.Modify.DN)
			err = dir.Modify(record.Modify)
		case record.Del != nil:
			logger.Debugf("deleting '%s'", record.Del.DN)
			err = dir.Del(record.Del)
		default:
			err = errors.New("empty LDIF record")
		}
		if err != nil {
			return applied, fmt.Errorf("record %d: %w", applied+1, err)
		}
		applied++
	}
	return applied, nil
}
