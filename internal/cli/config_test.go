package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

var instanceFile = `default = "local"

[local]
uri = "ldaps://ds.example.com:636"
binddn = "cn=admin"
tls_insecure = true

[other]
uri = "ldap://other.example.com:389"
starttls = "on"
bindpw_file = "%s"
`

func writeInstanceFile(t *testing.T, content string) string {
	fn := filepath.Join(t.TempDir(), "dsconf.toml")
	if err := os.WriteFile(fn, []byte(content), 0o600); err != nil {
		t.Fatalf("Error writing instance file: %v", err)
	}
	return fn
}

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	uri, bindDN, instance, configFile := DefaultLDAPURI, DefaultBindDN, DefaultInstance, DefaultConfigFile
	t.Cleanup(func() {
		DefaultLDAPURI, DefaultBindDN, DefaultInstance, DefaultConfigFile = uri, bindDN, instance, configFile
	})

	cmd := &cobra.Command{Use: "test"}
	RegisterFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("Error parsing flags: %v", err)
	}
	return cmd
}

func TestSettingsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	s, err := loadSettings(newTestCommand(t))
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}
	opts, err := s.dirsrvOptions()
	if err != nil {
		t.Fatalf("dirsrvOptions failed: %v", err)
	}
	if opts.URI != "ldap://127.0.0.1:389" {
		t.Errorf("Unexpected URI %s", opts.URI)
	}
	if opts.BindDN != "cn=Directory Manager" {
		t.Errorf("Unexpected bind DN %s", opts.BindDN)
	}
	if opts.StartTLS || opts.InsecureSkipVerify {
		t.Errorf("Unexpected TLS options %+v", opts)
	}
	if opts.Timeout != DefaultTimeout {
		t.Errorf("Unexpected timeout %s", opts.Timeout)
	}
}

func TestSettingsInstanceFile(t *testing.T) {
	fn := writeInstanceFile(t, instanceFile)

	s, err := loadSettings(newTestCommand(t, "--config", fn))
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}
	opts, err := s.dirsrvOptions()
	if err != nil {
		t.Fatalf("dirsrvOptions failed: %v", err)
	}
	if opts.URI != "ldaps://ds.example.com:636" {
		t.Errorf("Unexpected URI %s", opts.URI)
	}
	if opts.BindDN != "cn=admin" {
		t.Errorf("Unexpected bind DN %s", opts.BindDN)
	}
	if !opts.InsecureSkipVerify {
		t.Errorf("Expected tls_insecure from instance file")
	}
}

func TestSettingsPrecedence(t *testing.T) {
	fn := writeInstanceFile(t, instanceFile)
	t.Setenv("DSCONF_BINDDN", "cn=from env")
	t.Setenv("DSCONF_URI", "ldap://env.example.com")

	s, err := loadSettings(newTestCommand(t, "--config", fn, "-H", "ldap://flag.example.com"))
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}
	opts, err := s.dirsrvOptions()
	if err != nil {
		t.Fatalf("dirsrvOptions failed: %v", err)
	}
	if opts.URI != "ldap://flag.example.com" {
		t.Errorf("Flag should win, got %s", opts.URI)
	}
	if opts.BindDN != "cn=from env" {
		t.Errorf("Environment should win over instance file, got %s", opts.BindDN)
	}
}

func TestSettingsSelectInstance(t *testing.T) {
	pwFile := filepath.Join(t.TempDir(), "pw")
	if err := os.WriteFile(pwFile, []byte("secret\n"), 0o600); err != nil {
		t.Fatalf("Error writing password file: %v", err)
	}
	fn := writeInstanceFile(t, fmt.Sprintf(instanceFile, pwFile))

	s, err := loadSettings(newTestCommand(t, "--config", fn, "-i", "other"))
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}
	opts, err := s.dirsrvOptions()
	if err != nil {
		t.Fatalf("dirsrvOptions failed: %v", err)
	}
	if opts.URI != "ldap://other.example.com:389" || !opts.StartTLS {
		t.Errorf("Unexpected options %+v", opts)
	}
	pw, err := bindPassword(s)
	if err != nil {
		t.Fatalf("bindPassword failed: %v", err)
	}
	if pw != "secret" {
		t.Errorf("Unexpected password %q", pw)
	}
}

func TestSettingsErrors(t *testing.T) {
	fn := writeInstanceFile(t, instanceFile)

	if _, err := loadSettings(newTestCommand(t, "--config", fn, "-i", "missing")); err == nil {
		t.Errorf("Expected error for unknown instance")
	}
	if _, err := loadSettings(newTestCommand(t, "--config", filepath.Join(t.TempDir(), "nope.toml"))); err == nil {
		t.Errorf("Expected error for missing explicit instance file")
	}

	t.Setenv("HOME", t.TempDir())
	if _, err := loadSettings(newTestCommand(t, "-i", "local")); err == nil {
		t.Errorf("Expected error for instance without instance file")
	}
}
