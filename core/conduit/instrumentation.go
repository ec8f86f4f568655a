package conduit

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-tutor/core/conduit"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var audioChunks, _ = meter.Int64Counter("ema_tutor.audio.chunks",
	metric.WithDescription("Audio chunks pushed into a conduit, by delivery result"),
	metric.WithUnit("{chunk}"),
)

var forwardedAudio, _ = meter.Float64Counter("ema_tutor.audio.forwarded",
	metric.WithDescription("Seconds of learner audio forwarded to a speech connection"),
	metric.WithUnit("s"),
)
