// Package ormmetrics exports statement counters to Prometheus.
package ormmetrics

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mickamy/eagerorm/orm"
)

// Collector counts executed statements by verb (SELECT, INSERT, UPDATE,
// DELETE, BEGIN, COMMIT, ROLLBACK). It is an orm.Logger: install it with
// orm.WithLogger or combine it with other loggers through orm.MultiLogger.
type Collector struct {
	statements *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
// A nil reg leaves the metrics unregistered.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		statements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eagerorm_statements_total",
				Help: "Total number of SQL statements executed",
			},
			[]string{"verb"},
		),
	}
	if reg != nil {
		reg.MustRegister(c.statements)
	}
	return c
}

func (c *Collector) Log(_ context.Context, query string, _ ...any) {
	c.statements.WithLabelValues(Verb(query)).Inc()
}

// Statements returns the counter of verb, for reading in tests and
// dashboards built on it.
func (c *Collector) Statements(verb string) prometheus.Counter {
	return c.statements.WithLabelValues(verb)
}

// Verb returns the upper-cased first word of query.
func Verb(query string) string {
	query = strings.TrimSpace(query)
	if i := strings.IndexAny(query, " \t\n("); i >= 0 {
		query = query[:i]
	}
	return strings.ToUpper(query)
}

var _ orm.Logger = (*Collector)(nil)
