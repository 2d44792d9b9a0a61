// Copyright 2012 The Go Authors. All rights reserved.
// Copyright 2021 The LibreGraph Authors.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dirsrv

import (
	"sync"
)

// Stats counts the requests sent over a DirSrv connection.
type Stats struct {
	Binds      uint64
	Unbinds    uint64
	Searches   uint64
	Modifies   uint64
	Adds       uint64
	Deletes    uint64
	Errors     uint64
	statsMutex sync.RWMutex
}

func (stats *Stats) count(field *uint64, delta uint64) {
	if stats != nil {
		stats.statsMutex.Lock()
		*field += delta
		stats.statsMutex.Unlock()
	}
}

func (stats *Stats) countBinds(delta uint64) {
	if stats != nil {
		stats.count(&stats.Binds, delta)
	}
}

func (stats *Stats) countUnbinds(delta uint64) {
	if stats != nil {
		stats.count(&stats.Unbinds, delta)
	}
}

func (stats *Stats) countSearches(delta uint64) {
	if stats != nil {
		stats.count(&stats.Searches, delta)
	}
}

func (stats *Stats) countModifies(delta uint64) {
	if stats != nil {
		stats.count(&stats.Modifies, delta)
	}
}

func (stats *Stats) countAdds(delta uint64) {
	if stats != nil {
		stats.count(&stats.Adds, delta)
	}
}

func (stats *Stats) countDeletes(delta uint64) {
	if stats != nil {
		stats.count(&stats.Deletes, delta)
	}
}

func (stats *Stats) countErrors(delta uint64) {
	if stats != nil {
		stats.count(&stats.Errors, delta)
	}
}

func (stats *Stats) Clone() *Stats {
	var s2 *Stats
	if stats != nil {
		s2 = &Stats{}
		stats.statsMutex.RLock()
		s2.Binds = stats.Binds
		s2.Unbinds = stats.Unbinds
		s2.Searches = stats.Searches
		s2.Modifies = stats.Modifies
		s2.Adds = stats.Adds
		s2.Deletes = stats.Deletes
		s2.Errors = stats.Errors
		stats.statsMutex.RUnlock()
	}
	return s2
}
