package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"taskapp/pkg/tracing"
)

// LokiLogger is the application logger. Entries go to stdout through zap
// (with trace ids attached by otelzap) and, when a Loki URL is configured,
// are also pushed to Loki asynchronously.
type LokiLogger struct {
	Logger      *otelzap.Logger
	ServiceName string
	lokiURL     string
	httpClient  *http.Client
}

type LokiLogEntry struct {
	Streams []LokiStream `json:"streams"`
}

type LokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

func NewLokiLogger(serviceName, lokiURL string) (*LokiLogger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.TimeKey = "timestamp"

	zapLogger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create zap logger: %w", err)
	}

	logger := &LokiLogger{
		Logger:      otelzap.New(zapLogger),
		ServiceName: serviceName,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}

	if lokiURL != "" {
		logger.lokiURL = lokiURL + "/loki/api/v1/push"
	}

	return logger, nil
}

// NewNopLogger discards everything. Used in tests and CLI commands.
func NewNopLogger(serviceName string) *LokiLogger {
	return &LokiLogger{
		Logger:      otelzap.New(zap.NewNop()),
		ServiceName: serviceName,
	}
}

// Zap returns the underlying zap logger, or a no-op one for a nil receiver.
func (l *LokiLogger) Zap() *zap.Logger {
	if l == nil || l.Logger == nil {
		return zap.NewNop()
	}

	return l.Logger.Logger
}

func (l *LokiLogger) Sync() error {
	if l == nil || l.Logger == nil {
		return nil
	}

	return l.Logger.Sync()
}

func (l *LokiLogger) InfoWithTrace(ctx context.Context, msg string, fields ...zap.Field) {
	l.logWithTrace(ctx, zapcore.InfoLevel, msg, fields...)
}

func (l *LokiLogger) WarnWithTrace(ctx context.Context, msg string, fields ...zap.Field) {
	l.logWithTrace(ctx, zapcore.WarnLevel, msg, fields...)
}

func (l *LokiLogger) ErrorWithTrace(ctx context.Context, msg string, fields ...zap.Field) {
	l.logWithTrace(ctx, zapcore.ErrorLevel, msg, fields...)
}

func (l *LokiLogger) logWithTrace(ctx context.Context, level zapcore.Level, msg string, fields ...zap.Field) {
	if l == nil || l.Logger == nil {
		return
	}

	logFields := append(fields, zap.String("service", l.ServiceName))

	switch level {
	case zapcore.ErrorLevel:
		l.Logger.Ctx(ctx).Error(msg, logFields...)
	case zapcore.WarnLevel:
		l.Logger.Ctx(ctx).Warn(msg, logFields...)
	default:
		l.Logger.Ctx(ctx).Info(msg, logFields...)
	}

	if l.lokiURL != "" {
		go l.push(ctx, level, msg, logFields)
	}
}

func (l *LokiLogger) push(ctx context.Context, level zapcore.Level, msg string, fields []zap.Field) {
	line, err := l.encode(ctx, level, msg, fields)
	if err != nil {
		return
	}

	entry := LokiLogEntry{
		Streams: []LokiStream{
			{
				Stream: map[string]string{
					"service": l.ServiceName,
					"level":   level.String(),
				},
				Values: [][]string{
					{strconv.FormatInt(time.Now().UnixNano(), 10), string(line)},
				},
			},
		},
	}

	l.send(entry)
}

// encode renders the entry as one JSON line through zap's own encoder.
func (l *LokiLogger) encode(ctx context.Context, level zapcore.Level, msg string, fields []zap.Field) ([]byte, error) {
	enc := zapcore.NewMapObjectEncoder()

	for _, field := range fields {
		field.AddTo(enc)
	}

	enc.Fields["timestamp"] = time.Now().Format(time.RFC3339Nano)
	enc.Fields["level"] = level.String()
	enc.Fields["message"] = msg

	if traceID, spanID, ok := tracing.SpanIDs(ctx); ok {
		enc.Fields["trace_id"] = traceID
		enc.Fields["span_id"] = spanID
	}

	return json.Marshal(enc.Fields)
}

func (l *LokiLogger) send(entry LokiLogEntry) {
	body, err := json.Marshal(entry)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, l.lokiURL, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	io.Copy(io.Discard, resp.Body)
}

func LogError(ctx context.Context, logger *LokiLogger, err error, msg string, fields ...zap.Field) {
	logger.ErrorWithTrace(ctx, msg, append(fields, zap.Error(err))...)
}

func LogInfo(ctx context.Context, logger *LokiLogger, msg string, fields ...zap.Field) {
	logger.InfoWithTrace(ctx, msg, fields...)
}
