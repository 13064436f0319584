package event

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	logglobal "go.opentelemetry.io/otel/log/global"
)

const otelScope = "resizewatch/event"

// emitOTelEvent records one trigger call as a log record on the global
// provider. Listener invocations are not recorded individually.
func emitOTelEvent(emitterName, eventName, mode string, listeners int) {
	logger := logglobal.GetLoggerProvider().Logger(otelScope)

	now := time.Now().UTC()
	var record otellog.Record
	record.SetTimestamp(now)
	record.SetObservedTimestamp(now)
	record.SetSeverity(otellog.SeverityDebug)
	record.SetSeverityText("debug")
	record.SetBody(otellog.StringValue(eventName))
	record.AddAttributes(
		otellog.String("event.emitter", emitterName),
		otellog.String("event.type", eventName),
		otellog.String("event.mode", mode),
		otellog.Int("event.listeners", listeners),
	)
	logger.Emit(context.Background(), record)
}
