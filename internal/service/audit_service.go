package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/credential-service/internal/events"
	"github.com/spec-kit/credential-service/internal/observability"
)

// AuditService records authentication events in the log and in metrics.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleUserRegistered)
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLoginSucceeded)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
	a.dispatcher.Subscribe(events.EventAccountLocked, a.handleAccountLocked)
	a.dispatcher.Subscribe(events.EventLoginRejectedLocked, a.handleLoginRejectedLocked)
}

func (a *AuditService) handleUserRegistered(_ context.Context, event events.Event) error {
	a.logger.Info("UserRegistered", eventFields(event)...)
	a.metrics.RecordAuthEvent(string(event.Type))
	return nil
}

func (a *AuditService) handleLoginSucceeded(_ context.Context, event events.Event) error {
	a.logger.Info("LoginSucceeded", eventFields(event)...)
	a.metrics.RecordAuthEvent(string(event.Type))
	return nil
}

func (a *AuditService) handleLoginFailed(_ context.Context, event events.Event) error {
	a.logger.Info("LoginFailed", append(eventFields(event), zap.Int("attempts", event.Attempts))...)
	a.metrics.RecordAuthEvent(string(event.Type))
	return nil
}

func (a *AuditService) handleAccountLocked(_ context.Context, event events.Event) error {
	fields := append(eventFields(event), zap.Int("attempts", event.Attempts))
	if event.LockedUntil != nil {
		fields = append(fields, zap.Time("locked_until", *event.LockedUntil))
	}
	a.logger.Warn("AccountLocked", fields...)
	a.metrics.RecordAuthEvent(string(event.Type))
	return nil
}

func (a *AuditService) handleLoginRejectedLocked(_ context.Context, event events.Event) error {
	fields := eventFields(event)
	if event.LockedUntil != nil {
		fields = append(fields, zap.Time("locked_until", *event.LockedUntil))
	}
	a.logger.Info("LoginRejectedLocked", fields...)
	a.metrics.RecordAuthEvent(string(event.Type))
	return nil
}

func eventFields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("email", event.Email),
		zap.Time("at", event.Timestamp),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	return fields
}
