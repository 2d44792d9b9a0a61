/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package version

// Version and BuildDate are set at link time with -ldflags.
var (
	Version   = "0.0.0-dev"
	BuildDate = "0"
)
