package worker

// Jobs that spend their retry budget land on a per-queue dead letter list
// (dlq:{queue}). Entries keep the original payload verbatim, so an operator
// can replay a failed invoice email by LPUSHing the payload back onto the
// source queue once the mailer or gateway is healthy again.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const deadLetterPrefix = "dlq:"

type deadLetterEntry struct {
	Queue    string          `json:"queue"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Reason   string          `json:"reason"`
	Attempts int             `json:"attempts"`
	FailedAt string          `json:"failed_at"` // RFC 3339, UTC
}

func sendToDeadLetter(ctx context.Context, rdb *redis.Client, queue string, job Job, reason string) {
	entry := deadLetterEntry{
		Queue:    queue,
		Type:     job.Type,
		Payload:  job.Payload,
		Reason:   reason,
		Attempts: job.Attempts,
		FailedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dead letter entry not serializable")
		return
	}
	if err := rdb.LPush(ctx, deadLetterPrefix+queue, data).Err(); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dead letter push failed")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("type", job.Type).
		Str("reason", reason).
		Int("attempts", job.Attempts).
		Msg("job moved to dead letter queue")
}

// DeadLetterDepth reports the backlog of a queue's dead letter list. The
// health endpoint surfaces it so stuck invoice emails are visible before a
// customer calls about a missing factura.
func DeadLetterDepth(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, deadLetterPrefix+queue).Result()
}
