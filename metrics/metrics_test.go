package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go-followgraph"
)

func TestHook(t *testing.T) {
	c := New(prometheus.NewRegistry())
	hook := c.Hook()

	for _, ev := range []followgraph.Event{
		{Kind: followgraph.EventRunStarted},
		{Kind: followgraph.EventNodeVisiting, Depth: 0},
		{Kind: followgraph.EventNodeVisiting, Depth: 1},
		{Kind: followgraph.EventNodeVisiting, Depth: 0},
		{Kind: followgraph.EventNodeExpanded, Depth: 0},
		{Kind: followgraph.EventNodeSkipped, Reason: followgraph.ReasonCycle},
		{Kind: followgraph.EventNodeSkipped, Reason: followgraph.ReasonCycle},
		{Kind: followgraph.EventExpansionCurtailed, Reason: followgraph.ReasonRateLimited},
		{Kind: followgraph.EventCooldown, Wait: 5 * time.Second},
		{Kind: followgraph.EventRetry, Attempt: 1},
		{Kind: followgraph.EventProfileLookupFailed},
		{Kind: followgraph.EventProfileDegraded},
		{Kind: followgraph.EventRunFinished},
	} {
		hook(ev)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(c.nodesVisited))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.nodesExpanded))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.nodesSkipped.WithLabelValues("cycle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.curtailed.WithLabelValues("rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cooldowns))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.cooldownWait))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.retries))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.lookupFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.degraded))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("started")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("finished")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.maxDepth))
}

func TestAPICallHook(t *testing.T) {
	c := New(prometheus.NewRegistry())
	record := c.APICallHook()

	record("Followers", true, false)
	record("Followers", true, false)
	record("Followers", false, true)
	record("UserByScreenName", false, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.apiCalls.WithLabelValues("Followers", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.apiCalls.WithLabelValues("Followers", "rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.apiCalls.WithLabelValues("UserByScreenName", "error")))
}

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	assert.Panics(t, func() { New(reg) }, "duplicate registration must fail loudly")

	c.Hook()(followgraph.Event{Kind: followgraph.EventNodeVisiting})
	n, err := testutil.GatherAndCount(reg, "followgraph_nodes_visited_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTee(t *testing.T) {
	var got []string
	hook := Tee(
		func(followgraph.Event) { got = append(got, "a") },
		nil,
		func(followgraph.Event) { got = append(got, "b") },
	)
	hook(followgraph.Event{})
	assert.Equal(t, []string{"a", "b"}, got)
}
