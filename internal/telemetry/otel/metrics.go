package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics are the counters the auth engine increments on the hot path.
// A nil *AuthMetrics is valid and records nothing, so tests and tools that
// do not configure telemetry pass nil.
type AuthMetrics struct {
	logins        metric.Int64Counter
	rotations     metric.Int64Counter
	reuseDetected metric.Int64Counter
	forcedRevokes metric.Int64Counter
	loginFailures metric.Int64Counter
}

// NewAuthMetrics registers the auth counters on the given meter.
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	logins, err := meter.Int64Counter("auth.logins",
		metric.WithDescription("successful logins"))
	if err != nil {
		return nil, err
	}
	rotations, err := meter.Int64Counter("auth.rotations",
		metric.WithDescription("successful refresh-token rotations"))
	if err != nil {
		return nil, err
	}
	reuse, err := meter.Int64Counter("auth.reuse_detected",
		metric.WithDescription("refresh-token replay detections"))
	if err != nil {
		return nil, err
	}
	forced, err := meter.Int64Counter("auth.forced_revokes",
		metric.WithDescription("admin-forced session revocations"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("auth.login_failures",
		metric.WithDescription("rejected login attempts"))
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{
		logins:        logins,
		rotations:     rotations,
		reuseDetected: reuse,
		forcedRevokes: forced,
		loginFailures: failures,
	}, nil
}

// Login records one successful login for the role.
func (m *AuthMetrics) Login(ctx context.Context, role string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("role", role)))
}

// Rotation records one successful rotation.
func (m *AuthMetrics) Rotation(ctx context.Context) {
	if m == nil {
		return
	}
	m.rotations.Add(ctx, 1)
}

// ReuseDetected records one replay detection.
func (m *AuthMetrics) ReuseDetected(ctx context.Context) {
	if m == nil {
		return
	}
	m.reuseDetected.Add(ctx, 1)
}

// ForcedRevoke records one admin-forced revocation.
func (m *AuthMetrics) ForcedRevoke(ctx context.Context) {
	if m == nil {
		return
	}
	m.forcedRevokes.Add(ctx, 1)
}

// LoginFailure records one rejected login with the rejection reason.
func (m *AuthMetrics) LoginFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.loginFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
