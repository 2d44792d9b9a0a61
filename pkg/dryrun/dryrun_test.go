package dryrun

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldif"
	"github.com/sirupsen/logrus"

	"github.com/libregraph/dsconf/pkg/dirsrv"
)

var logger = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: &logrus.TextFormatter{},
	Level:     logrus.InfoLevel,
}

type liveReader map[string]*ldap.Entry

func (r liveReader) GetEntry(dn string, attributes ...string) (*ldap.Entry, error) {
	if e, ok := r[strings.ToLower(dn)]; ok {
		return filterAttributes(e, attributes), nil
	}
	return nil, ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("no such entry %s", dn))
}

func (r liveReader) Search(base string, scope int, filter string, attributes ...string) ([]*ldap.Entry, error) {
	e, err := r.GetEntry(base, attributes...)
	if err != nil {
		return nil, err
	}
	return []*ldap.Entry{e}, nil
}

func newLive() liveReader {
	return liveReader{
		"cn=config": ldap.NewEntry("cn=config", map[string][]string{
			"cn":                     {"config"},
			"nsslapd-errorlog-level": {"16384"},
		}),
	}
}

func TestModifyIsPrintedNotSent(t *testing.T) {
	live := newLive()
	var out strings.Builder
	d := New(logger, live, &out)

	mr := ldap.NewModifyRequest("cn=config", nil)
	mr.Replace("nsslapd-errorlog-level", []string{"16896"})
	if err := d.Modify(mr); err != nil {
		t.Fatalf("Modify failed: %v", err)
	}

	if v := live["cn=config"].GetAttributeValue("nsslapd-errorlog-level"); v != "16384" {
		t.Errorf("Live entry must not change, got %s", v)
	}
	e, err := d.GetEntry("CN=config", "nsslapd-errorlog-level")
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if v := e.GetAttributeValue("nsslapd-errorlog-level"); v != "16896" {
		t.Errorf("Overlay not applied, got %s", v)
	}

	lf, err := ldif.Parse(out.String())
	if err != nil {
		t.Fatalf("Output is not valid LDIF: %v\n%s", err, out.String())
	}
	if len(lf.Entries) != 1 || lf.Entries[0].Modify == nil || lf.Entries[0].Modify.DN != "cn=config" {
		t.Errorf("Unexpected output:\n%s", out.String())
	}
}

func TestAddExisting(t *testing.T) {
	var out strings.Builder
	d := New(logger, newLive(), &out)

	err := d.Add(ldap.NewAddRequest("cn=config", nil))
	if !ldap.IsErrorWithCode(err, ldap.LDAPResultEntryAlreadyExists) {
		t.Errorf("Expected entry already exists, got %v", err)
	}

	ar := ldap.NewAddRequest("cn=RSA,cn=encryption,cn=config", nil)
	ar.Attribute("objectclass", []string{"top", "nsEncryptionModule"})
	if err := d.Add(ar); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	err = d.Add(ar)
	if !ldap.IsErrorWithCode(err, ldap.LDAPResultEntryAlreadyExists) {
		t.Errorf("Second add should see the overlay, got %v", err)
	}
	if out.Len() == 0 {
		t.Errorf("Add not printed")
	}
}

func TestDel(t *testing.T) {
	var out strings.Builder
	d := New(logger, newLive(), &out)

	if err := d.Del(ldap.NewDelRequest("cn=config", nil)); err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	if _, err := d.GetEntry("cn=config"); !ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
		t.Errorf("Deleted entry still visible: %v", err)
	}
	if err := d.Del(ldap.NewDelRequest("cn=config", nil)); !ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
		t.Errorf("Expected no such object, got %v", err)
	}
}

func TestModifyMissingEntry(t *testing.T) {
	var out strings.Builder
	d := New(logger, newLive(), &out)

	err := d.Modify(ldap.NewModifyRequest("cn=missing,cn=config", nil))
	if !ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
		t.Errorf("Expected no such object, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Failed modify must not be printed")
	}
}

// serverClient answers searches like a server connection: known entries
// are returned, unknown ones fail with result code 32 unless err is set.
type serverClient struct {
	entries map[string]*ldap.Entry
	err     error
}

func (c *serverClient) Add(req *ldap.AddRequest) error {
	return errors.New("dry run must not add")
}

func (c *serverClient) Del(req *ldap.DelRequest) error {
	return errors.New("dry run must not delete")
}

func (c *serverClient) Modify(req *ldap.ModifyRequest) error {
	return errors.New("dry run must not modify")
}

func (c *serverClient) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	if e, ok := c.entries[strings.ToLower(req.BaseDN)]; ok {
		return &ldap.SearchResult{Entries: []*ldap.Entry{e}}, nil
	}
	return nil, ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("no such object %s", req.BaseDN))
}

func (c *serverClient) Unbind() error {
	return nil
}

func (c *serverClient) Close() error {
	return nil
}

func TestMissingEntryOverConnection(t *testing.T) {
	conn := dirsrv.New(logger, &serverClient{entries: newLive()})
	defer conn.Close()
	var out strings.Builder
	d := New(logger, conn, &out)

	err := d.Modify(ldap.NewModifyRequest("cn=missing,cn=config", nil))
	if !ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
		t.Errorf("Modify: expected no such object, got %v", err)
	}
	err = d.Del(ldap.NewDelRequest("cn=missing,cn=config", nil))
	if !ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
		t.Errorf("Del: expected no such object, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Failed requests must not be printed:\n%s", out.String())
	}

	ar := ldap.NewAddRequest("cn=missing,cn=config", nil)
	ar.Attribute("objectclass", []string{"top", "extensibleObject"})
	if err := d.Add(ar); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !strings.Contains(out.String(), "changetype: add") {
		t.Errorf("Add not printed:\n%s", out.String())
	}
}

func TestAddReadError(t *testing.T) {
	conn := dirsrv.New(logger, &serverClient{
		err: ldap.NewError(ldap.LDAPResultInsufficientAccessRights, errors.New("access denied")),
	})
	defer conn.Close()
	var out strings.Builder
	d := New(logger, conn, &out)

	err := d.Add(ldap.NewAddRequest("cn=RSA,cn=encryption,cn=config", nil))
	if !ldap.IsErrorWithCode(err, ldap.LDAPResultInsufficientAccessRights) {
		t.Errorf("Expected the read error, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Add must not be printed after a read error:\n%s", out.String())
	}
}
