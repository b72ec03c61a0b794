package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/query-evaluation-engine/pkg/health"
)

// HealthCheck reports Kafka as up when any configured broker answers a
// metadata request.
func HealthCheck(cfg config.KafkaConfig) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		var errs []error
		for _, broker := range cfg.Brokers {
			conn, err := kafka.DialContext(ctx, "tcp", broker)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			brokers, err := conn.Brokers()
			conn.Close()
			if err != nil {
				errs = append(errs, err)
				continue
			}
			return health.ComponentHealth{
				Status:  health.StatusUp,
				Message: fmt.Sprintf("%d brokers", len(brokers)),
			}
		}
		if len(errs) == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no brokers configured"}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: errors.Join(errs...).Error()}
	}
}
