package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-tutor/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	activeSessions, _ = meter.Int64UpDownCounter("ema_tutor.sessions.active",
		metric.WithDescription("Sessions currently registered"),
		metric.WithUnit("{session}"),
	)
	roleTransitions, _ = meter.Int64Counter("ema_tutor.role.transitions",
		metric.WithDescription("Role switches, by source and destination role"),
		metric.WithUnit("{transition}"),
	)
	voiceDegradations, _ = meter.Int64Counter("ema_tutor.voice.degraded",
		metric.WithDescription("Sessions dropped to text-only mode after a speech provider failure"),
		metric.WithUnit("{session}"),
	)
)
