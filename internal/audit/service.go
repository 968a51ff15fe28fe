// Package audit consumes ledger events and keeps a durable trail of sale
// creations and settlements for operators.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/elegance-atelier/sales-api/internal/redisx"
	"github.com/elegance-atelier/sales-api/internal/sales"
)

// Recorder is the persistence slice the consumer writes through.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

type Service struct {
	Repo        Recorder
	Redis       *redis.Client
	ServiceName string
	Logger      *zap.Logger
}

// HandleEvent is installed as the kafka consumer handler for the ledger
// topics. Unknown event types are committed and skipped.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var env sales.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// malformed message: log and commit, redelivery cannot fix it
		log.Warn("undecodable event, skipping", zap.Error(err))
		return nil
	}
	switch env.EventType {
	case sales.EventSaleCreated, sales.EventInstallmentSettled:
	default:
		return nil
	}

	// dedup via redis before touching storage; unique event_id in the table
	// backstops a lost redis key
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if s.Redis != nil {
		if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
			return nil
		}
	}

	if err := s.Repo.Record(ctx, Entry{
		EventID:    env.EventID,
		SaleID:     env.CorrelationID,
		EventType:  env.EventType,
		Payload:    env.Payload,
		RecordedAt: time.Now().UTC(),
	}); err != nil {
		log.Error("audit record failed",
			zap.String("event_id", env.EventID), zap.Error(err))
		return err
	}

	if s.Redis != nil {
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	log.Info("event recorded",
		zap.String("event_type", env.EventType),
		zap.String("sale_id", env.CorrelationID))
	return nil
}
