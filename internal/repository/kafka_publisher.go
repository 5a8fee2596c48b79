package repository

import (
	"context"
	"time"

	"github.com/danielhafezi/BetaAnalysisTool/internal/domain/models"
	"github.com/danielhafezi/BetaAnalysisTool/pkg/kafka"
)

// KafkaPublisher forwards computed beta tables and pattern results as JSON
// envelopes on a single topic, keyed by instrument so per-instrument
// ordering is preserved with a hash balancer.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *kafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

type betaTablesEnvelope struct {
	Kind        string           `json:"kind"`
	From        time.Time        `json:"from"`
	To          time.Time        `json:"to"`
	Ref1        models.BetaTable `json:"ref1_table"`
	Ref2        models.BetaTable `json:"ref2_table"`
	PublishedAt time.Time        `json:"published_at"`
}

type patternsEnvelope struct {
	Kind        string                `json:"kind"`
	Result      *models.PatternResult `json:"result"`
	PublishedAt time.Time             `json:"published_at"`
}

func (p *KafkaPublisher) PublishBetaTables(ctx context.Context, from, to time.Time, ref1, ref2 models.BetaTable) error {
	env := betaTablesEnvelope{
		Kind:        "beta_tables",
		From:        from,
		To:          to,
		Ref1:        ref1,
		Ref2:        ref2,
		PublishedAt: time.Now().UTC(),
	}
	return p.producer.Publish(ctx, p.topic, []byte("beta_tables"), env)
}

func (p *KafkaPublisher) PublishPatterns(ctx context.Context, result *models.PatternResult) error {
	env := patternsEnvelope{
		Kind:        "patterns",
		Result:      result,
		PublishedAt: time.Now().UTC(),
	}
	return p.producer.Publish(ctx, p.topic, []byte(result.Instrument), env)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
