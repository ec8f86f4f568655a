package ws

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-tutor/core/transport/ws"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var openConnections, _ = meter.Int64UpDownCounter("ema_tutor.ws.connections",
	metric.WithDescription("Open client websocket connections"),
	metric.WithUnit("{connection}"),
)
