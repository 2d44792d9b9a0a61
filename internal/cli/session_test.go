package cli

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/sirupsen/logrus"

	"github.com/libregraph/dsconf/pkg/dirsrv"
)

var logger = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: &logrus.TextFormatter{},
	Level:     logrus.InfoLevel,
}

// configClient serves cn=config and records modifications.
type configClient struct {
	modifies []*ldap.ModifyRequest
}

func (c *configClient) Add(req *ldap.AddRequest) error {
	return errors.New("unexpected add")
}

func (c *configClient) Del(req *ldap.DelRequest) error {
	return errors.New("unexpected delete")
}

func (c *configClient) Modify(req *ldap.ModifyRequest) error {
	c.modifies = append(c.modifies, req)
	return nil
}

func (c *configClient) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	if !strings.EqualFold(req.BaseDN, "cn=config") {
		return nil, ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object"))
	}
	return &ldap.SearchResult{
		Entries: []*ldap.Entry{
			ldap.NewEntry("cn=config", map[string][]string{
				"cn":          {"config"},
				"passwordExp": {"off"},
			}),
		},
	}, nil
}

func (c *configClient) Unbind() error {
	return nil
}

func (c *configClient) Close() error {
	return nil
}

func TestSessionDryRunWritesToCommandOutput(t *testing.T) {
	dryRun := DefaultDryRun
	DefaultDryRun = true
	t.Cleanup(func() {
		DefaultDryRun = dryRun
	})

	client := &configClient{}
	var out strings.Builder
	s := newSession(logger, dirsrv.New(logger, client), &out)
	defer s.conn.Close()

	if err := s.Config.Set("passwordExp", "on"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if len(client.modifies) != 0 {
		t.Errorf("Dry run sent %d modify requests", len(client.modifies))
	}
	if !strings.Contains(out.String(), "changetype: modify") || !strings.Contains(out.String(), "passwordExp: on") {
		t.Errorf("Unexpected dry run output:\n%s", out.String())
	}
}

func TestSessionSendsWithoutDryRun(t *testing.T) {
	dryRun := DefaultDryRun
	DefaultDryRun = false
	t.Cleanup(func() {
		DefaultDryRun = dryRun
	})

	client := &configClient{}
	var out strings.Builder
	s := newSession(logger, dirsrv.New(logger, client), &out)
	defer s.conn.Close()

	if err := s.Config.Set("passwordExp", "on"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if len(client.modifies) != 1 {
		t.Errorf("Expected one modify request, got %d", len(client.modifies))
	}
	if out.Len() != 0 {
		t.Errorf("Unexpected output:\n%s", out.String())
	}
}
