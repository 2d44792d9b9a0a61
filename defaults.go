/*
 * SPDX-License-Identifier: AGPL-3.0-or-later
 * Copyright 2021 Kopano and its licensors
 */

package dsconf

// Defaults as used by multiple sub packages.
var (
	DefaultLDAPURI    = "ldap://127.0.0.1:389"
	DefaultBindDN     = "cn=Directory Manager"
	DefaultConfigFile = ".dsconf.toml"

	DefaultSnapshotFile = ".dsconf-snapshots.db"
)
