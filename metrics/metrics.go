// Package metrics exports traversal and upstream API counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/anatolykoptev/go-followgraph"
)

const namespace = "followgraph"

// Collector holds the followgraph metrics registered on one registry.
type Collector struct {
	nodesVisited   prometheus.Counter
	nodesExpanded  prometheus.Counter
	nodesSkipped   *prometheus.CounterVec
	curtailed      *prometheus.CounterVec
	degraded       prometheus.Counter
	retries        prometheus.Counter
	cooldowns      prometheus.Counter
	cooldownWait   prometheus.Counter
	lookupFailures prometheus.Counter
	runs           *prometheus.CounterVec
	maxDepth       prometheus.Gauge

	apiCalls *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg means prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Collector{
		nodesVisited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_visited_total",
			Help:      "Users visited and profiled.",
		}),
		nodesExpanded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_expanded_total",
			Help:      "Users whose followers were listed and traversed.",
		}),
		nodesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_skipped_total",
			Help:      "Users skipped before profiling, by reason.",
		}, []string{"reason"}),
		curtailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expansions_curtailed_total",
			Help:      "Follower expansions that failed and left a leaf, by reason.",
		}, []string{"reason"}),
		degraded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profiles_degraded_total",
			Help:      "Profiles built from the minimal fallback record.",
		}),
		retries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "follower_fetch_retries_total",
			Help:      "Follower fetches retried after a transient failure.",
		}),
		cooldowns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cooldowns_total",
			Help:      "Rate-limit cooldowns waited.",
		}),
		cooldownWait: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cooldown_seconds_total",
			Help:      "Seconds spent in rate-limit cooldowns.",
		}),
		lookupFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_lookup_failures_total",
			Help:      "Failed profile lookup tiers.",
		}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Traversal runs by lifecycle event.",
		}, []string{"event"}),
		maxDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visit_depth_max",
			Help:      "Deepest level visited so far.",
		}),
		apiCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Upstream API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
	}
}

// Hook returns an event hook that feeds c. Chain it with other hooks via Tee.
func (c *Collector) Hook() followgraph.EventHook {
	deepest := -1
	return func(ev followgraph.Event) {
		switch ev.Kind {
		case followgraph.EventRunStarted:
			c.runs.WithLabelValues("started").Inc()
		case followgraph.EventRunFinished:
			c.runs.WithLabelValues("finished").Inc()
		case followgraph.EventNodeVisiting:
			c.nodesVisited.Inc()
			if ev.Depth > deepest {
				deepest = ev.Depth
				c.maxDepth.Set(float64(ev.Depth))
			}
		case followgraph.EventNodeExpanded:
			c.nodesExpanded.Inc()
		case followgraph.EventNodeSkipped:
			c.nodesSkipped.WithLabelValues(ev.Reason.String()).Inc()
		case followgraph.EventExpansionCurtailed:
			c.curtailed.WithLabelValues(ev.Reason.String()).Inc()
		case followgraph.EventProfileLookupFailed:
			c.lookupFailures.Inc()
		case followgraph.EventProfileDegraded:
			c.degraded.Inc()
		case followgraph.EventRetry:
			c.retries.Inc()
		case followgraph.EventCooldown:
			c.cooldowns.Inc()
			c.cooldownWait.Add(ev.Wait.Seconds())
		}
	}
}

// APICallHook matches twitter.ClientConfig.MetricsHook.
func (c *Collector) APICallHook() func(endpoint string, success, rateLimited bool) {
	return func(endpoint string, success, rateLimited bool) {
		c.apiCalls.WithLabelValues(endpoint, outcome(success, rateLimited)).Inc()
	}
}

func outcome(success, rateLimited bool) string {
	switch {
	case rateLimited:
		return "rate_limited"
	case success:
		return "ok"
	}
	return "error"
}

// Tee calls every non-nil hook in order.
func Tee(hooks ...followgraph.EventHook) followgraph.EventHook {
	return func(ev followgraph.Event) {
		for _, h := range hooks {
			if h != nil {
				h(ev)
			}
		}
	}
}
