package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/insurance/screening-service/internal/config"
	"github.com/insurance/screening-service/internal/domain"
	"github.com/insurance/screening-service/internal/pkg/logger"
)

// ScreeningCompletedEvent is published after every successful screening run.
type ScreeningCompletedEvent struct {
	AssessmentID uuid.UUID       `json:"assessment_id"`
	TenantID     uuid.UUID       `json:"tenant_id"`
	Score        int             `json:"score"`
	Band         domain.RiskBand `json:"band"`
	Clusters     int             `json:"clusters"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// SourceReimportedEvent is published after a source replacement commits.
type SourceReimportedEvent struct {
	TenantID   uuid.UUID             `json:"tenant_id"`
	SourceRef  string                `json:"source_ref"`
	Category   domain.SourceCategory `json:"category"`
	Inserted   int                   `json:"inserted"`
	Invalid    int                   `json:"invalid"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// Publisher emits domain events to Kafka. Publishing is best effort for
// callers; a broker failure must never fail the request that produced the
// event, so callers log and move on.
type Publisher struct {
	producer       sarama.SyncProducer
	screeningTopic string
	importTopic    string
	log            *logger.Logger
}

// NewPublisher connects a synchronous producer to the configured brokers.
func NewPublisher(cfg *config.KafkaConfig, log *logger.Logger) (*Publisher, error) {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("connect kafka brokers: %w", err)
	}

	return &Publisher{
		producer:       producer,
		screeningTopic: cfg.ScreeningTopic,
		importTopic:    cfg.ImportTopic,
		log:            log.Named("events"),
	}, nil
}

// ScreeningCompleted publishes the outcome of a screening run, keyed by
// tenant so per-tenant ordering holds.
func (p *Publisher) ScreeningCompleted(a *domain.RiskAssessment) error {
	event := ScreeningCompletedEvent{
		AssessmentID: a.ID,
		TenantID:     a.TenantID,
		Score:        a.Score,
		Band:         a.Band,
		Clusters:     len(a.Clusters),
		OccurredAt:   time.Now(),
	}
	return p.publish(p.screeningTopic, a.TenantID.String(), event)
}

// SourceReimported publishes the outcome of a source replacement.
func (p *Publisher) SourceReimported(tenantID uuid.UUID, sourceRef string, cat domain.SourceCategory, inserted, invalid int) error {
	event := SourceReimportedEvent{
		TenantID:   tenantID,
		SourceRef:  sourceRef,
		Category:   cat,
		Inserted:   inserted,
		Invalid:    invalid,
		OccurredAt: time.Now(),
	}
	return p.publish(p.importTopic, tenantID.String(), event)
}

func (p *Publisher) publish(topic, key string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.log.Debug("event published",
		logger.StringField("topic", topic),
		logger.IntField("partition", int(partition)),
		logger.IntField("offset", int(offset)),
	)
	return nil
}

// Close shuts down the producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
