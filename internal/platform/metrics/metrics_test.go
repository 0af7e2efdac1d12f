package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Jbiscode/MSA-Order-Service/internal/platform/metrics"
)

func TestOutboxMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewOutboxMetrics("order", reg)

	m.ObservePublished("payment", metrics.OutcomeCompleted)
	m.ObservePublished("payment", metrics.OutcomeCompleted)
	m.ObservePublished("payment", metrics.OutcomeFailed)
	m.ObservePass("payment", 20*time.Millisecond)
	m.ObserveCleaned("payment", 3)
	m.ObserveCleaned("payment", 0)

	count, err := testutil.GatherAndCount(reg, "food_ordering_order_outbox_messages_published_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestOutboxMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.OutboxMetrics
	m.ObservePublished("payment", metrics.OutcomeFailed)
	m.ObservePass("payment", time.Second)
	m.ObserveCleaned("payment", 1)
}
