package rootpw

import (
	"strings"
	"testing"

	"github.com/libregraph/dsconf/pkg/ldappassword"
)

func TestHashSecret(t *testing.T) {
	for _, scheme := range []string{"{SSHA}", "{CRYPT}", "{ARGON2}", "{CLEARTEXT}"} {
		hash, err := hashSecret("N3w-Director-Secret", scheme)
		if err != nil {
			t.Fatalf("hashSecret with %s failed: %v", scheme, err)
		}
		if scheme != "{CLEARTEXT}" && !strings.HasPrefix(hash, scheme) {
			t.Errorf("Hash %q does not carry scheme %s", hash, scheme)
		}
		if ok, err := ldappassword.Validate("N3w-Director-Secret", hash); !ok {
			t.Errorf("Hash with %s does not verify: %v", scheme, err)
		}
	}
}

func TestHashSecretUnsupported(t *testing.T) {
	if _, err := hashSecret("N3w-Director-Secret", "{MD4}"); err == nil {
		t.Errorf("Expected error for unsupported scheme")
	}
}

func TestHashSecretLeadingBrace(t *testing.T) {
	// A cleartext secret which looks like a scheme prefix does not verify.
	if _, err := hashSecret("{MD4}secret", "{CLEARTEXT}"); err == nil {
		t.Errorf("Expected error for ambiguous cleartext secret")
	}
}
