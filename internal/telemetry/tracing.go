// Package telemetry sets up logging and tracing for the slabnest binary.
package telemetry

import (
	"context"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewLogger returns a text logger writing to out at the named level.
func NewLogger(out io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return log, nil
}

// LogExporter writes finished spans to a logrus entry at debug level.
type LogExporter struct {
	log *logrus.Entry
}

var _ sdktrace.SpanExporter = (*LogExporter)(nil)

// NewLogExporter creates an exporter logging through log.
func NewLogExporter(log *logrus.Entry) *LogExporter {
	return &LogExporter{log: log}
}

// ExportSpans logs one line per span with its attributes as fields.
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		fields := logrus.Fields{
			"span":     s.Name(),
			"trace":    s.SpanContext().TraceID().String(),
			"duration": s.EndTime().Sub(s.StartTime()).String(),
		}
		for _, kv := range s.Attributes() {
			fields[strings.TrimPrefix(string(kv.Key), "slabnest.")] = kv.Value.Emit()
		}
		entry := e.log.WithFields(fields)
		if st := s.Status(); st.Code == codes.Error {
			entry.WithField("error", st.Description).Debug("span failed")
			continue
		}
		entry.Debug("span finished")
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *LogExporter) Shutdown(ctx context.Context) error {
	return nil
}

// InitTracing installs a global tracer provider that exports every span
// synchronously to log.
func InitTracing(log *logrus.Entry) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(NewLogExporter(log)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	return tp
}

// ShutdownTracing flushes and stops the provider. A nil provider is a no-op.
func ShutdownTracing(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}
