package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.Action("like")
	c.Action("like")
	c.Action("comment")
	c.Generation("skip")
	c.Rejection("similar")
	c.SetPending(2)
	c.SetRunning(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Actions.WithLabelValues("like")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Actions.WithLabelValues("comment")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Generations.WithLabelValues("skip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Rejections.WithLabelValues("similar")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Pending))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Running))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.Action("like")
	c.Generation("ok")
	c.Rejection("duplicate")
	c.SetPending(1)
	c.SetRunning(false)
}
