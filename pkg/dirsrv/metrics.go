/*
 * SPDX-License-Identifier: AGPL-3.0-or-later
 * Copyright 2021 Kopano and its licensors
 */

package dirsrv

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsSubsystemDirSrv = "dirsrv"
)

// MustRegister registers all collectors with the provided registerer and
// panics upon the first registration that causes an error.
func MustRegister(reg prometheus.Registerer, cs ...prometheus.Collector) {
	reg.MustRegister(cs...)
}

type dirSrvCollector struct {
	stats *Stats

	requestsDesc *prometheus.Desc
	errorsDesc   *prometheus.Desc
}

// NewCollector returns a collector exporting the request counters of ds.
func NewCollector(ds *DirSrv) prometheus.Collector {
	return &dirSrvCollector{
		stats: ds.Stats,

		requestsDesc: prometheus.NewDesc(
			prometheus.BuildFQName("", metricsSubsystemDirSrv, "requests_total"),
			"Total number of LDAP requests sent to the directory server",
			[]string{"operation"},
			nil,
		),
		errorsDesc: prometheus.NewDesc(
			prometheus.BuildFQName("", metricsSubsystemDirSrv, "errors_total"),
			"Total number of failed LDAP requests",
			nil,
			nil,
		),
	}
}

// Describe is implemented with DescribeByCollect. That's possible because the
// Collect method will always return the same metrics with the same
// descriptors.
func (dc *dirSrvCollector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(dc, ch)
}

// Collect creates constant metrics from a snapshot of the stats.
func (dc *dirSrvCollector) Collect(ch chan<- prometheus.Metric) {
	stats := dc.stats.Clone()
	if stats == nil {
		stats = &Stats{}
	}

	for _, c := range []struct {
		operation string
		value     uint64
	}{
		{"bind", stats.Binds},
		{"unbind", stats.Unbinds},
		{"search", stats.Searches},
		{"modify", stats.Modifies},
		{"add", stats.Adds},
		{"delete", stats.Deletes},
	} {
		ch <- prometheus.MustNewConstMetric(
			dc.requestsDesc,
			prometheus.CounterValue,
			float64(c.value),
			c.operation,
		)
	}

	ch <- prometheus.MustNewConstMetric(
		dc.errorsDesc,
		prometheus.CounterValue,
		float64(stats.Errors),
	)
}
