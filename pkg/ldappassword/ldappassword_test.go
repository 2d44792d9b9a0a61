package ldappassword

import (
	"strings"
	"testing"
)

func TestHashValidate(t *testing.T) {
	for _, scheme := range Schemes {
		hash, err := Hash("s3cr3t-Passw0rd", scheme)
		if err != nil {
			t.Fatalf("Hash with %s failed: %v", scheme, err)
		}
		if scheme != "{CLEARTEXT}" && !strings.HasPrefix(hash, scheme) {
			t.Errorf("Hash %q does not carry scheme %s", hash, scheme)
		}

		ok, err := Validate("s3cr3t-Passw0rd", hash)
		if err != nil || !ok {
			t.Errorf("Validate with %s failed: %v", scheme, err)
		}
		ok, err = Validate("wrong", hash)
		if err == nil || ok {
			t.Errorf("Validate with %s accepted wrong password", scheme)
		}
	}
}

func TestValidateSSHA(t *testing.T) {
	// 8 byte salt 0x0102030405060708 as written by the directory server.
	ok, err := Validate("secret", "{SSHA}lHFzXul4wnzRItssVcTnvXWRjNgBAgMEBQYHCA==")
	if err != nil || !ok {
		t.Errorf("Validate failed: %v", err)
	}

	if _, err := Validate("secret", "{SSHA}AAAA"); err == nil {
		t.Errorf("Expected error for short hash")
	}
}

func TestValidateCleartext(t *testing.T) {
	ok, err := Validate("secret", "{CLEARTEXT}secret")
	if err != nil || !ok {
		t.Errorf("Validate failed: %v", err)
	}
	if ok, _ := Validate("other", "{CLEARTEXT}secret"); ok {
		t.Errorf("Validate accepted wrong password")
	}
}

func TestHashUnsupported(t *testing.T) {
	if _, err := Hash("secret", "{MD4}"); err == nil {
		t.Errorf("Expected error for unsupported scheme")
	}
	if _, err := Validate("secret", "{MD4}abc"); err == nil {
		t.Errorf("Expected error for unsupported scheme")
	}
}

func TestEstimatePasswordStrength(t *testing.T) {
	weak := EstimatePasswordStrength("password", nil)
	strong := EstimatePasswordStrength("correct-Horse-battery-staple-42!", nil)
	if weak >= strong {
		t.Errorf("Expected weak < strong, got %d >= %d", weak, strong)
	}
}
