package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestCollector() *Collector {
	return NewCollector("auditflow_test", prometheus.NewRegistry(), nil)
}

func TestCollector_GeneratorCalls(t *testing.T) {
	c := newTestCollector()

	c.RecordGeneratorCall("freeform", nil)
	c.RecordGeneratorCall("freeform", nil)
	c.RecordGeneratorCall("structured", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.generatorCallsTotal.WithLabelValues("freeform")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generatorCallsTotal.WithLabelValues("structured")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generatorCallErrors.WithLabelValues("structured")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.generatorCallErrors.WithLabelValues("freeform")))
}

func TestCollector_AuditOutcomes(t *testing.T) {
	c := newTestCollector()

	c.RecordAuditOutcome("achieved")
	c.RecordAuditOutcome("resisted")
	c.RecordAuditOutcome("resisted")
	c.RecordAuditOutcome("error")
	c.RecordAttackTurn()
	c.RecordExtractFailure()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.auditOutcomesTotal.WithLabelValues("achieved")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.auditOutcomesTotal.WithLabelValues("resisted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.auditOutcomesTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.attackTurnsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.extractFailuresTotal))
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	// None of these may panic on a nil collector.
	c.RecordGeneratorCall("freeform", nil)
	c.RecordTurn("customer", time.Second)
	c.RecordExtractFailure()
	c.RecordAuditOutcome("achieved")
	c.RecordAttackTurn()
}
