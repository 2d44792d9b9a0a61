/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package dsconfig

import (
	"fmt"
	"strconv"

	"github.com/go-ldap/ldap/v3"
)

// DefaultSecurePort is the LDAPS port used when EnableSSL gets port 0.
const DefaultSecurePort = 636

// DefaultSSL3Ciphers is the nsSSL3Ciphers value used when none is given.
const DefaultSSL3Ciphers = "-rsa_null_md5,+rsa_rc4_128_md5,+rsa_rc4_40_md5,+rsa_rc2_40_md5,+rsa_des_sha," +
	"+rsa_fips_des_sha,+rsa_3des_sha,+rsa_fips_3des_sha," +
	"+tls_rsa_export1024_with_rc4_56_sha,+tls_rsa_export1024_with_des_cbc_sha"

// SSLArgs overrides attribute values written by EnableSSL, keyed by attribute
// name. Missing keys fall back to DefaultSSLArgs.
type SSLArgs map[string]string

// DefaultSSLArgs returns the values EnableSSL uses for every key it writes.
func DefaultSSLArgs() SSLArgs {
	return SSLArgs{
		"nsSSL3":          "on",
		"nsSSLClientAuth": "allowed",
		"nsSSL3Ciphers":   DefaultSSL3Ciphers,

		"nsSSLPersonalitySSL": "Server-Cert",
		"nsSSLToken":          "internal (software)",
		"nsSSLActivation":     "on",

		"nsslapd-security":           "on",
		"nsslapd-ssl-check-hostname": "off",
	}
}

func (a SSLArgs) get(key string) string {
	if v, ok := a[key]; ok {
		return v
	}
	return DefaultSSLArgs()[key]
}

// EnableSSL configures SSL in cn=encryption,cn=config, creates the RSA
// encryption module entry when missing and turns on security in cn=config
// with the given secure port. It returns cn=config with the
// nsslapd-security and nsslapd-ssl-check-hostname attributes.
func (c *Config) EnableSSL(port int, args SSLArgs) (*ldap.Entry, error) {
	c.logger.Debugf("configuring SSL with args: %v", args)
	if port == 0 {
		port = DefaultSecurePort
	}

	mr := ldap.NewModifyRequest(DNEncryption, nil)
	mr.Replace("nsSSL3", []string{args.get("nsSSL3")})
	mr.Replace("nsSSLClientAuth", []string{args.get("nsSSLClientAuth")})
	mr.Replace("nsSSL3Ciphers", []string{args.get("nsSSL3Ciphers")})
	if err := c.conn.Modify(mr); err != nil {
		return nil, fmt.Errorf("failed to modify %s: %w", DNEncryption, err)
	}

	ar := ldap.NewAddRequest(DNEncryptionRSA, nil)
	ar.Attribute("objectclass", []string{"top", "nsEncryptionModule"})
	ar.Attribute("nsSSLPersonalitySSL", []string{args.get("nsSSLPersonalitySSL")})
	ar.Attribute("nsSSLToken", []string{args.get("nsSSLToken")})
	ar.Attribute("nsSSLActivation", []string{args.get("nsSSLActivation")})
	if err := c.conn.Add(ar); err != nil {
		if !ldap.IsErrorWithCode(err, ldap.LDAPResultEntryAlreadyExists) {
			return nil, fmt.Errorf("failed to add %s: %w", DNEncryptionRSA, err)
		}
		c.logger.Debugf("%s exists already", DNEncryptionRSA)
	}

	mr = ldap.NewModifyRequest(DNConfig, nil)
	mr.Replace("nsslapd-security", []string{args.get("nsslapd-security")})
	mr.Replace("nsslapd-ssl-check-hostname", []string{args.get("nsslapd-ssl-check-hostname")})
	mr.Replace("nsslapd-secureport", []string{strconv.Itoa(port)})
	c.logger.Debugf("trying to modify %s with %v", DNConfig, mr.Changes)
	if err := c.conn.Modify(mr); err != nil {
		return nil, fmt.Errorf("failed to modify %s: %w", DNConfig, err)
	}

	entry, err := c.conn.GetEntry(DNConfig, "nsslapd-security", "nsslapd-ssl-check-hostname")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", DNConfig, err)
	}
	return entry, nil
}
