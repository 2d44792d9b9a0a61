package ldapentry

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/libregraph/dsconf/pkg/ldapdn"
)

func EntryFromAddRequest(add *ldap.AddRequest) *ldap.Entry {
	attrs := map[string][]string{}

	for _, a := range add.Attributes {
		attrs[a.Type] = a.Vals
	}
	return ldap.NewEntry(add.DN, attrs)
}

func AddRequestFromEntry(e *ldap.Entry) *ldap.AddRequest {
	ar := ldap.NewAddRequest(e.DN, nil)
	for _, a := range e.Attributes {
		ar.Attribute(a.Name, append([]string(nil), a.Values...))
	}
	return ar
}

// ApplyModify returns a copy of e with the changes of mr applied. e itself is
// left untouched.
func ApplyModify(e *ldap.Entry, mr *ldap.ModifyRequest) (*ldap.Entry, error) {
	same, err := ldapdn.Equal(e.DN, mr.DN)
	if err != nil {
		return nil, ldap.NewError(ldap.LDAPResultInvalidDNSyntax, err)
	}
	if !same {
		return nil, ldap.NewError(ldap.LDAPResultUnwillingToPerform,
			fmt.Errorf("modify of '%s' applied to '%s'", mr.DN, e.DN))
	}
	dn, err := ldap.ParseDN(e.DN)
	if err != nil {
		return nil, ldap.NewError(ldap.LDAPResultInvalidDNSyntax, err)
	}
	var rdn []*ldap.AttributeTypeAndValue
	if len(dn.RDNs) > 0 {
		rdn = dn.RDNs[0].Attributes
	}

	res := &ldap.Entry{DN: e.DN}
	for _, a := range e.Attributes {
		res.Attributes = append(res.Attributes, ldap.NewEntryAttribute(a.Name, append([]string(nil), a.Values...)))
	}

	for _, change := range mr.Changes {
		mod := change.Modification
		switch change.Operation {
		case ldap.AddAttribute:
			if attr := findAttribute(res, mod.Type); attr != nil {
				attr.Values = append(attr.Values, mod.Vals...)
			} else {
				res.Attributes = append(res.Attributes, ldap.NewEntryAttribute(mod.Type, mod.Vals))
			}

		case ldap.DeleteAttribute:
			if len(mod.Vals) == 0 {
				if rdnValue(rdn, mod.Type) != "" {
					return nil, ldap.NewError(ldap.LDAPResultNotAllowedOnRDN,
						fmt.Errorf("cannot remove RDN attribute '%s'", mod.Type))
				}
				removeAttribute(res, mod.Type)
				continue
			}
			attr := findAttribute(res, mod.Type)
			if attr == nil {
				return nil, ldap.NewError(ldap.LDAPResultNoSuchAttribute,
					fmt.Errorf("attribute '%s' not present", mod.Type))
			}
			if v := rdnValue(rdn, mod.Type); v != "" && containsFold(mod.Vals, v) {
				return nil, ldap.NewError(ldap.LDAPResultNotAllowedOnRDN,
					fmt.Errorf("cannot remove RDN value of '%s'", mod.Type))
			}
			var kept []string
			for _, v := range attr.Values {
				if !containsFold(mod.Vals, v) {
					kept = append(kept, v)
				}
			}
			if len(kept) == 0 {
				removeAttribute(res, mod.Type)
			} else {
				attr.Values = kept
			}

		case ldap.ReplaceAttribute:
			if v := rdnValue(rdn, mod.Type); v != "" && !containsFold(mod.Vals, v) {
				return nil, ldap.NewError(ldap.LDAPResultNotAllowedOnRDN,
					fmt.Errorf("cannot replace RDN value of '%s'", mod.Type))
			}
			removeAttribute(res, mod.Type)
			if len(mod.Vals) > 0 {
				res.Attributes = append(res.Attributes, ldap.NewEntryAttribute(mod.Type, mod.Vals))
			}

		default:
			return nil, ldap.NewError(ldap.LDAPResultProtocolError,
				fmt.Errorf("unknown modify operation %d", change.Operation))
		}
	}
	return res, nil
}

func findAttribute(e *ldap.Entry, name string) *ldap.EntryAttribute {
	for _, a := range e.Attributes {
		if strings.EqualFold(a.Name, name) {
			return a
		}
	}
	return nil
}

func removeAttribute(e *ldap.Entry, name string) {
	attrs := e.Attributes[:0]
	for _, a := range e.Attributes {
		if !strings.EqualFold(a.Name, name) {
			attrs = append(attrs, a)
		}
	}
	e.Attributes = attrs
}

func rdnValue(rdn []*ldap.AttributeTypeAndValue, name string) string {
	for _, ava := range rdn {
		if strings.EqualFold(ava.Type, name) {
			return ava.Value
		}
	}
	return ""
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}
