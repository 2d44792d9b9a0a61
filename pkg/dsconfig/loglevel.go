/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

package dsconfig

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LogLevel is a bit flag of the nsslapd-errorlog-level and
// nsslapd-accesslog-level attributes.
type LogLevel int

// Error log levels.
const (
	LogTrace        LogLevel = 1
	LogTracePackets LogLevel = 2
	LogTraceHeavy   LogLevel = 4
	LogConnect      LogLevel = 8
	LogPacket       LogLevel = 16
	LogSearchFilter LogLevel = 32
	LogConfigParser LogLevel = 64
	LogACL          LogLevel = 128
	LogEntryParser  LogLevel = 512
	LogHousekeeping LogLevel = 1024
	LogReplica      LogLevel = 8192
	LogDefault      LogLevel = 16384
	LogCache        LogLevel = 32768
	LogPlugin       LogLevel = 65536
	LogMicroseconds LogLevel = 131072
	LogACLSummary   LogLevel = 262144
)

// Access log levels.
const (
	AccessLogNone        LogLevel = 0
	AccessLogInternal    LogLevel = 4
	AccessLogEntryAccess LogLevel = 256
	AccessLogReferrals   LogLevel = 512
)

var logLevelNames = map[string]LogLevel{
	"trace":         LogTrace,
	"trace-packets": LogTracePackets,
	"trace-heavy":   LogTraceHeavy,
	"connect":       LogConnect,
	"packet":        LogPacket,
	"search-filter": LogSearchFilter,
	"config-parser": LogConfigParser,
	"acl":           LogACL,
	"entry-parser":  LogEntryParser,
	"housekeeping":  LogHousekeeping,
	"replica":       LogReplica,
	"default":       LogDefault,
	"cache":         LogCache,
	"plugin":        LogPlugin,
	"microseconds":  LogMicroseconds,
	"acl-summary":   LogACLSummary,

	"none":         AccessLogNone,
	"internal":     AccessLogInternal,
	"entry-access": AccessLogEntryAccess,
	"referrals":    AccessLogReferrals,
}

// DefaultLogLevels returns the level list used when none is given.
func DefaultLogLevels() []LogLevel {
	return []LogLevel{LogDefault}
}

// ParseLogLevel resolves a symbolic level name (case-insensitive) or a
// decimal literal.
func ParseLogLevel(s string) (LogLevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if level, ok := logLevelNames[name]; ok {
		return level, nil
	}
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return LogLevel(n), nil
}

// LogLevelNames returns all known symbolic level names, sorted.
func LogLevelNames() []string {
	names := make([]string, 0, len(logLevelNames))
	for name := range logLevelNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CombineLogLevels ORs all values together.
func CombineLogLevels(values ...LogLevel) LogLevel {
	var total LogLevel
	for _, v := range values {
		total |= v
	}
	return total
}

func (l LogLevel) String() string {
	return strconv.Itoa(int(l))
}
