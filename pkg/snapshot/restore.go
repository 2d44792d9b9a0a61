/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package snapshot

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/sirupsen/logrus"

	"github.com/libregraph/dsconf/pkg/ldapentry"
)

// Directory is the live server a snapshot is compared with or restored to.
type Directory interface {
	GetEntry(dn string, attributes ...string) (*ldap.Entry, error)
	Add(req *ldap.AddRequest) error
	Modify(req *ldap.ModifyRequest) error
}

// EntryDiff describes how a live entry differs from its saved version.
// Removed is set when the entry no longer exists.
type EntryDiff struct {
	DN         string
	Removed    bool
	Attributes []AttributeDiff
}

// Compare reads every saved entry from dir and returns the entries which
// differ, parents first. Entries created after the snapshot are not looked
// at.
func Compare(dir Directory, saved []*ldap.Entry) ([]EntryDiff, error) {
	ordered := append([]*ldap.Entry{}, saved...)
	SortByDepth(ordered)

	diffs := []EntryDiff{}
	for _, entry := range ordered {
		live, err := dir.GetEntry(entry.DN)
		if err != nil {
			if !isNoSuchObject(err) {
				return nil, err
			}
			diffs = append(diffs, EntryDiff{DN: entry.DN, Removed: true})
			continue
		}
		if attrs := Diff(entry, live); len(attrs) > 0 {
			diffs = append(diffs, EntryDiff{DN: entry.DN, Attributes: attrs})
		}
	}
	return diffs, nil
}

// Restore changes dir back to the saved entries and returns the number of
// entries changed. Differing attributes are replaced, attributes added
// since are deleted and removed entries are added again, parents first.
// With only the restore is limited to the named attributes and removed
// entries are skipped. Entries created after the snapshot are left alone.
func Restore(logger logrus.FieldLogger, dir Directory, saved []*ldap.Entry, only ...string) (int, error) {
	ordered := append([]*ldap.Entry{}, saved...)
	SortByDepth(ordered)

	changed := 0
	for _, entry := range ordered {
		live, err := dir.GetEntry(entry.DN)
		if err != nil {
			if !isNoSuchObject(err) {
				return changed, err
			}
			if len(only) > 0 {
				logger.WithField("dn", entry.DN).Warnln("entry no longer exists, skipped")
				continue
			}
			logger.WithField("dn", entry.DN).Debugln("adding removed entry")
			if err := dir.Add(ldapentry.AddRequestFromEntry(entry)); err != nil {
				return changed, fmt.Errorf("failed to add '%s': %w", entry.DN, err)
			}
			changed++
			continue
		}

		req := RestoreRequest(entry, live, only...)
		if req == nil {
			continue
		}
		logger.WithField("dn", entry.DN).Debugf("restoring %d attributes", len(req.Changes))
		if err := dir.Modify(req); err != nil {
			return changed, fmt.Errorf("failed to restore '%s': %w", entry.DN, err)
		}
		changed++
	}
	return changed, nil
}

func isNoSuchObject(err error) bool {
	return ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject)
}
