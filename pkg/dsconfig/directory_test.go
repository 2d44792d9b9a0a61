package dsconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/sirupsen/logrus"

	"github.com/libregraph/dsconf/pkg/ldapentry"
)

var logger = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: &logrus.TextFormatter{},
	Level:     logrus.InfoLevel,
}

// memDirectory records all requests and applies them to in-memory entries.
type memDirectory struct {
	entries  map[string]*ldap.Entry
	requests []interface{}
	failAdd  error
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		entries: map[string]*ldap.Entry{
			"cn=config": ldap.NewEntry("cn=config", map[string][]string{
				"cn":                             {"config"},
				"nsslapd-errorlog-level":         {"16384"},
				"nsslapd-accesslog-level":        {"256"},
				"nsslapd-accesslog-logbuffering": {"on"},
				"nsslapd-security":               {"off"},
			}),
			"cn=encryption,cn=config": ldap.NewEntry("cn=encryption,cn=config", map[string][]string{
				"cn": {"encryption"},
			}),
		},
	}
}

func (m *memDirectory) Modify(req *ldap.ModifyRequest) error {
	m.requests = append(m.requests, req)
	e, ok := m.entries[strings.ToLower(req.DN)]
	if !ok {
		return ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("no such entry %s", req.DN))
	}
	modified, err := ldapentry.ApplyModify(e, req)
	if err != nil {
		return err
	}
	m.entries[strings.ToLower(req.DN)] = modified
	return nil
}

func (m *memDirectory) Add(req *ldap.AddRequest) error {
	m.requests = append(m.requests, req)
	if m.failAdd != nil {
		return m.failAdd
	}
	if _, ok := m.entries[strings.ToLower(req.DN)]; ok {
		return ldap.NewError(ldap.LDAPResultEntryAlreadyExists, fmt.Errorf("entry %s exists", req.DN))
	}
	m.entries[strings.ToLower(req.DN)] = ldapentry.EntryFromAddRequest(req)
	return nil
}

func (m *memDirectory) GetEntry(dn string, attributes ...string) (*ldap.Entry, error) {
	e, ok := m.entries[strings.ToLower(dn)]
	if !ok {
		return nil, ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("no such entry %s", dn))
	}
	if len(attributes) == 0 {
		return e, nil
	}
	res := &ldap.Entry{DN: e.DN}
	for _, a := range e.Attributes {
		for _, wanted := range attributes {
			if strings.EqualFold(a.Name, wanted) {
				res.Attributes = append(res.Attributes, a)
			}
		}
	}
	return res, nil
}

func (m *memDirectory) value(dn, attr string) string {
	return m.entries[strings.ToLower(dn)].GetEqualFoldAttributeValue(attr)
}
