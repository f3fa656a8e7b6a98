package metrics

import (
	"time"

	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	redisRepositoryRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stealthwatch",
		Subsystem: "redis_repository",
		Name:      "operations_total",
		Help:      "Count of Redis repository operations.",
	}, []string{"operation", "network", "status"})
	redisRepositoryRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stealthwatch",
		Subsystem: "redis_repository",
		Name:      "operation_duration_seconds",
		Help:      "Duration of Redis repository operations.",
		Buckets:   repositoryBuckets,
	}, []string{"operation", "network", "status"})
)

// RedisRepository tracks metrics for Redis repository operations.
type RedisRepository struct{}

func NewRedisRepository() *RedisRepository {
	return &RedisRepository{}
}

// Observe records duration and status of a repository operation.
func (m RedisRepository) Observe(operation string, network model.Network, err error, started time.Time) {
	if network == "" {
		network = "unknown"
	}
	status := statusOf(err)
	redisRepositoryRequestsTotal.WithLabelValues(operation, string(network), status).Inc()
	redisRepositoryRequestDuration.WithLabelValues(operation, string(network), status).Observe(time.Since(started).Seconds())
}
