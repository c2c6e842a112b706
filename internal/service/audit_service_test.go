package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/credential-service/internal/events"
	"github.com/spec-kit/credential-service/internal/observability"
)

func TestAuditService_LogsAndCountsEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := observability.NewMetrics("audit_test")
	dispatcher := events.NewInMemoryDispatcher(nil)

	audit := NewAuditService(dispatcher, zap.New(core), metrics)
	audit.RegisterHandlers()

	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(15 * time.Minute)

	locked := events.NewEvent(events.EventAccountLocked, "a@b.com", "user-1", now)
	locked.Attempts = 5
	locked.LockedUntil = &until

	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventUserRegistered, "a@b.com", "user-1", now)))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventLoginFailed, "a@b.com", "user-1", now)))
	require.NoError(t, dispatcher.Publish(ctx, locked))

	assert.Equal(t, 1, logs.FilterMessage("UserRegistered").Len())
	assert.Equal(t, 1, logs.FilterMessage("LoginFailed").Len())
	lockedLogs := logs.FilterMessage("AccountLocked").All()
	require.Len(t, lockedLogs, 1)
	assert.Equal(t, zap.WarnLevel, lockedLogs[0].Level)
	assert.Equal(t, "a@b.com", lockedLogs[0].ContextMap()["email"])

	for _, entry := range logs.All() {
		_, hasPassword := entry.ContextMap()["password"]
		assert.False(t, hasPassword)
	}

	expected := `
# HELP audit_test_auth_events_total Authentication outcomes by event type.
# TYPE audit_test_auth_events_total counter
audit_test_auth_events_total{event="account_locked"} 1
audit_test_auth_events_total{event="login_failed"} 1
audit_test_auth_events_total{event="user_registered"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected), "audit_test_auth_events_total"))
}

func TestAuditService_NilDispatcher(t *testing.T) {
	audit := NewAuditService(nil, nil, nil)
	assert.NotPanics(t, audit.RegisterHandlers)
}
