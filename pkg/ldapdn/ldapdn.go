/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package ldapdn

import (
	"strings"

	"github.com/go-ldap/ldap/v3"
	"golang.org/x/text/cases"
)

// ParseNormalize parses dn and returns its case-folded string form with
// special characters escaped as per RFC 4514.
func ParseNormalize(dn string) (string, error) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return "", err
	}
	return Normalize(parsed), nil
}

// While formally some RDN attributes could be casesensitive we casefold
// everything.
func Normalize(dn *ldap.DN) string {
	var nDN strings.Builder
	caseFold := cases.Fold()
	for r, rdn := range dn.RDNs {
		// FIXME to really normalize multivalued RDNs we'd need
		// to normalize the order of Attributes here as well
		for a, ava := range rdn.Attributes {
			if a > 0 {
				// This is a multivalued RDN.
				nDN.WriteString("+")
			} else if r > 0 {
				nDN.WriteString(",")
			}
			nDN.WriteString(caseFold.String(ava.Type))
			nDN.WriteString("=")
			nDN.WriteString(escapeValue(caseFold.String(ava.Value)))
		}
	}
	return nDN.String()
}

// Equal reports whether both DNs name the same entry.
func Equal(a, b string) (bool, error) {
	na, err := ParseNormalize(a)
	if err != nil {
		return false, err
	}
	nb, err := ParseNormalize(b)
	if err != nil {
		return false, err
	}
	return na == nb, nil
}

func escapeValue(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == 0:
			b.WriteString("\\00")
			continue
		case strings.ContainsRune("\"+,;<>\\", r),
			i == 0 && (r == ' ' || r == '#'),
			i == len(s)-1 && r == ' ':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
