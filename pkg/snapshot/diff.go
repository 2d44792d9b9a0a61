/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package snapshot

import (
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"golang.org/x/text/cases"
)

// AttributeDiff is an attribute whose values differ between a saved and a
// live entry. Saved is empty when the attribute was added since the
// snapshot, Live is empty when it was removed.
type AttributeDiff struct {
	Name  string
	Saved []string
	Live  []string
}

// Diff compares two versions of the same entry. Attribute names are compared
// case-insensitively, values as sets. The result is sorted by name.
func Diff(saved, live *ldap.Entry) []AttributeDiff {
	caseFold := cases.Fold()
	type pair struct {
		name        string
		saved, live []string
	}
	attrs := map[string]*pair{}
	for _, a := range saved.Attributes {
		key := caseFold.String(a.Name)
		attrs[key] = &pair{name: a.Name, saved: a.Values}
	}
	for _, a := range live.Attributes {
		key := caseFold.String(a.Name)
		if p, ok := attrs[key]; ok {
			p.live = a.Values
		} else {
			attrs[key] = &pair{name: a.Name, live: a.Values}
		}
	}

	diffs := []AttributeDiff{}
	for _, p := range attrs {
		if !sameValues(p.saved, p.live) {
			diffs = append(diffs, AttributeDiff{Name: p.name, Saved: p.saved, Live: p.live})
		}
	}
	sort.Slice(diffs, func(i, j int) bool {
		return caseFold.String(diffs[i].Name) < caseFold.String(diffs[j].Name)
	})
	return diffs
}

// RestoreRequest builds the modify request which turns live back into saved.
// Attributes which differ are replaced with their saved values, attributes
// which did not exist when the snapshot was taken are deleted. When only is
// not empty the request is limited to the named attributes. RestoreRequest
// returns nil when there is nothing to change.
func RestoreRequest(saved, live *ldap.Entry, only ...string) *ldap.ModifyRequest {
	var req *ldap.ModifyRequest
	for _, d := range Diff(saved, live) {
		if !selected(d.Name, only) {
			continue
		}
		if req == nil {
			req = ldap.NewModifyRequest(live.DN, nil)
		}
		if len(d.Saved) == 0 {
			req.Delete(d.Name, nil)
		} else {
			req.Replace(d.Name, d.Saved)
		}
	}
	return req
}

func selected(name string, only []string) bool {
	if len(only) == 0 {
		return true
	}
	for _, o := range only {
		if strings.EqualFold(o, name) {
			return true
		}
	}
	return false
}

func sameValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		if seen[v] == 0 {
			return false
		}
		seen[v]--
	}
	return true
}
