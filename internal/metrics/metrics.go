// Package metrics holds the Prometheus collectors of the catalog service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Mutations counts product and unit writes by operation and outcome.
	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "katalog",
		Name:      "mutations_total",
		Help:      "Catalog write operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	// SlugRetries counts writes that hit the slug unique index and were retried.
	SlugRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "katalog",
		Name:      "slug_retries_total",
		Help:      "Product writes retried after a slug collision at commit.",
	})

	// Conflicts counts 409 responses by conflict code.
	Conflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "katalog",
		Name:      "conflicts_total",
		Help:      "State conflicts returned to clients by code.",
	}, []string{"code"})

	// EventPublishFailures counts catalog events that could not be published.
	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "katalog",
		Name:      "event_publish_failures_total",
		Help:      "Catalog events dropped because the broker rejected them.",
	})
)
