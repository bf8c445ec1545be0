package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	OrdersCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created",
		},
		[]string{"service", "order_type"},
	)

	OrderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Total number of order lifecycle transitions",
		},
		[]string{"service", "to_status", "result"},
	)

	ActiveOrdersGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_orders_total",
			Help: "Current number of orders not in a terminal state",
		},
		[]string{"service"},
	)

	NearbySearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nearby_search_duration_seconds",
			Help:    "Nearest-driver search duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "source"},
	)

	DirectoryOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driver_directory_ops_total",
			Help: "Total number of driver directory operations",
		},
		[]string{"service", "operation", "status"},
	)

	DatabaseQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"service", "operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	RabbitMQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_published_total",
			Help: "Total number of messages published to RabbitMQ",
		},
		[]string{"service", "queue", "status"},
	)

	RabbitMQMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_consumed_total",
			Help: "Total number of messages consumed from RabbitMQ",
		},
		[]string{"service", "queue", "status"},
	)
)

// RecordTransition records an order lifecycle transition attempt.
func RecordTransition(service, toStatus string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	OrderTransitionsTotal.WithLabelValues(service, toStatus, result).Inc()
}

// RecordNearbySearch records a nearest-driver search.
func RecordNearbySearch(service, source string, duration time.Duration) {
	NearbySearchDuration.WithLabelValues(service, source).Observe(duration.Seconds())
}

// RecordDirectoryOp records a driver directory operation.
func RecordDirectoryOp(service, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DirectoryOpsTotal.WithLabelValues(service, operation, status).Inc()
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(service, operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseQueriesTotal.WithLabelValues(service, operation, status).Inc()
	DatabaseQueryDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordRabbitMQPublish records RabbitMQ publish metrics
func RecordRabbitMQPublish(service, queue string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RabbitMQMessagesPublished.WithLabelValues(service, queue, status).Inc()
}

// RecordRabbitMQConsume records RabbitMQ consume metrics
func RecordRabbitMQConsume(service, queue string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RabbitMQMessagesConsumed.WithLabelValues(service, queue, status).Inc()
}
