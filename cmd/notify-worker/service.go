package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/payboard/payboard-backend/pkg/config"
	"github.com/payboard/payboard-backend/pkg/db/models"
	"github.com/payboard/payboard-backend/pkg/discord"
	"github.com/payboard/payboard-backend/pkg/enums"
	"github.com/payboard/payboard-backend/pkg/logger"
	"github.com/payboard/payboard-backend/pkg/outbox"
	"github.com/payboard/payboard-backend/pkg/outbox/payloads"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 2000
	defaultMaxAttempts = 10

	colorCreated = 0x2ecc71
	colorUpdated = 0xf1c40f
	colorDeleted = 0xe74c3c
)

type outboxRepository interface {
	FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
}

type webhookSender interface {
	Send(ctx context.Context, msg discord.Message) error
}

type ServiceParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	Repo    outboxRepository
	Webhook webhookSender
}

// Service drains unpublished outbox rows into the Discord webhook.
type Service struct {
	logg         *logger.Logger
	repo         outboxRepository
	webhook      webhookSender
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Repo == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Webhook == nil {
		return nil, errors.New("webhook sender is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		logg:         params.Logger,
		repo:         params.Repo,
		webhook:      params.Webhook,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "notify worker context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "notify worker batch error", err)
		}
		if processed && err == nil {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

// processBatch delivers one fetch worth of events. Each event is marked
// published or failed individually; one bad event never blocks the rest.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	events, err := s.repo.FetchUnpublished(s.batchSize, s.maxAttempts)
	if err != nil {
		return false, fmt.Errorf("fetching outbox events: %w", err)
	}
	if len(events) == 0 {
		return false, nil
	}

	var errs []error
	for _, event := range events {
		fields := map[string]any{
			"event_id":   event.ID.String(),
			"event_type": string(event.EventType),
			"payment_id": event.AggregateID,
			"attempts":   event.AttemptCount,
		}

		msg, err := s.buildMessage(event)
		if err != nil {
			// Undecodable payloads never become decodable; burn the attempts.
			logCtx := s.logg.WithFields(ctx, fields)
			s.logg.Error(logCtx, "outbox payload not decodable", err)
			if markErr := s.repo.MarkFailed(event.ID, err); markErr != nil {
				errs = append(errs, fmt.Errorf("mark failed %s: %w", event.ID, markErr))
			}
			continue
		}

		if err := s.webhook.Send(ctx, *msg); err != nil {
			logCtx := s.logg.WithFields(ctx, fields)
			s.logg.Warn(logCtx, fmt.Sprintf("webhook delivery failed: %v", err))
			if markErr := s.repo.MarkFailed(event.ID, err); markErr != nil {
				errs = append(errs, fmt.Errorf("mark failed %s: %w", event.ID, markErr))
			}
			continue
		}

		if err := s.repo.MarkPublished(event.ID); err != nil {
			errs = append(errs, fmt.Errorf("mark published %s: %w", event.ID, err))
			continue
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "notification delivered")
	}
	return true, multierr.Combine(errs...)
}

func (s *Service) buildMessage(event models.OutboxEvent) (*discord.Message, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	var payment payloads.PaymentEventV1
	if err := json.Unmarshal(envelope.Data, &payment); err != nil {
		return nil, fmt.Errorf("decoding payment event: %w", err)
	}

	embed := discord.Embed{
		Title:     embedTitle(event.EventType),
		Color:     embedColor(event.EventType),
		Timestamp: envelope.OccurredAt.UTC().Format(time.RFC3339),
	}

	addField := func(name, value string, inline bool) {
		if strings.TrimSpace(value) == "" {
			return
		}
		embed.Fields = append(embed.Fields, discord.EmbedField{Name: name, Value: value, Inline: inline})
	}

	addField("Payment", payment.UniqueID, true)
	addField("Owner", payment.OwnerID, true)
	if envelope.Actor != nil {
		actor := envelope.Actor.Nickname
		if actor == "" {
			actor = envelope.Actor.DiscordID
		}
		addField("By", actor, true)
	}
	addField("Source", payment.Source, true)
	addField("Method", payment.Method, true)
	if payment.Total != "" {
		amount := payment.Total
		if payment.Currency != "" {
			amount = amount + " " + payment.Currency
		}
		addField("Total", amount, true)
	}
	addField("Payee", payment.PayeeName, true)
	addField("Note", payment.Note, false)

	if len(payment.Changes) > 0 {
		var lines []string
		for field, change := range payment.Changes {
			lines = append(lines, fmt.Sprintf("%s: %s -> %s", field, orDash(change.Old), orDash(change.New)))
		}
		addField("Changes", strings.Join(lines, "\n"), false)
	}

	return &discord.Message{Embeds: []discord.Embed{embed}}, nil
}

func embedTitle(eventType enums.OutboxEventType) string {
	switch eventType {
	case enums.OutboxEventPaymentCreated:
		return "Payment created"
	case enums.OutboxEventPaymentUpdated:
		return "Payment updated"
	case enums.OutboxEventPaymentDeleted:
		return "Payment deleted"
	}
	return string(eventType)
}

func embedColor(eventType enums.OutboxEventType) int {
	switch eventType {
	case enums.OutboxEventPaymentCreated:
		return colorCreated
	case enums.OutboxEventPaymentUpdated:
		return colorUpdated
	case enums.OutboxEventPaymentDeleted:
		return colorDeleted
	}
	return 0
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
