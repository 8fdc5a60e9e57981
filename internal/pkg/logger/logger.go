package logger

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with screening-specific functionality
type Logger struct {
	*zap.Logger
	serviceName string
}

// ContextKey for request context values
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	TenantIDKey  ContextKey = "tenant_id"
	TraceIDKey   ContextKey = "trace_id"
)

// New creates a new logger instance
func New(serviceName, environment string, debug bool) (*Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     environment,
		"pid":     os.Getpid(),
	}

	zapLogger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: serviceName,
	}, nil
}

// Named returns a named sub-logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.Named(name),
		serviceName: l.serviceName,
	}
}

// NewNop returns a no-op logger for tests
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), serviceName: "test"}
}

// WithContext returns a logger with context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := []zap.Field{}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if tenantID, ok := ctx.Value(TenantIDKey).(string); ok && tenantID != "" {
		fields = append(fields, zap.String("tenant_id", tenantID))
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}

	return &Logger{
		Logger:      l.With(fields...),
		serviceName: l.serviceName,
	}
}

// WithTenant returns a logger with tenant context
func (l *Logger) WithTenant(tenantID string) *Logger {
	return &Logger{
		Logger:      l.With(zap.String("tenant_id", tenantID)),
		serviceName: l.serviceName,
	}
}

// ScreeningStarted logs the start of a screening run
func (l *Logger) ScreeningStarted(tenantID string, hasIDKey bool) {
	l.Info("screening started",
		zap.String("tenant_id", tenantID),
		zap.Bool("has_id_key", hasIDKey),
	)
}

// ScreeningCompleted logs the completion of a screening run
func (l *Logger) ScreeningCompleted(tenantID, band string, score, clusters int, durationMs int64) {
	l.Info("screening completed",
		zap.String("tenant_id", tenantID),
		zap.String("band", band),
		zap.Int("score", score),
		zap.Int("clusters", clusters),
		zap.Int64("duration_ms", durationMs),
	)
}

// CategoryScreened logs per-category candidate results
func (l *Logger) CategoryScreened(category string, candidates, hits int) {
	l.Debug("category screened",
		zap.String("category", category),
		zap.Int("candidates", candidates),
		zap.Int("hits", hits),
	)
}

// ProfileBuilt logs insurance profile computation
func (l *Logger) ProfileBuilt(tenantID string, payerScore float64, claims36m int) {
	l.Info("insurance profile built",
		zap.String("tenant_id", tenantID),
		zap.Float64("payer_score", payerScore),
		zap.Int("claims_36m", claims36m),
	)
}

// UnderwritingDecided logs a final underwriting decision
func (l *Logger) UnderwritingDecided(tenantID string, products int, decision string) {
	l.Info("underwriting decided",
		zap.String("tenant_id", tenantID),
		zap.Int("products", products),
		zap.String("decision", decision),
	)
}

// ReimportCompleted logs a source reimport
func (l *Logger) ReimportCompleted(tenantID, sourceRef, category string, inserted, invalid int) {
	l.Info("source reimport completed",
		zap.String("tenant_id", tenantID),
		zap.String("source_ref", sourceRef),
		zap.String("category", category),
		zap.Int("inserted", inserted),
		zap.Int("invalid", invalid),
	)
}

// HardStopTriggered logs a hard-stop underwriting rule firing
func (l *Logger) HardStopTriggered(tenantID, rule string) {
	l.Warn("hard stop triggered",
		zap.String("tenant_id", tenantID),
		zap.String("rule", rule),
	)
}

// LatencyWarning logs when an operation exceeds its latency budget
func (l *Logger) LatencyWarning(operation string, durationMs, thresholdMs int64) {
	l.Warn("latency threshold exceeded",
		zap.String("operation", operation),
		zap.Int64("duration_ms", durationMs),
		zap.Int64("threshold_ms", thresholdMs),
	)
}

// Helper field functions

// ErrorField creates an error field
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// DurationField creates a duration field
func DurationField(name string, d time.Duration) zap.Field {
	return zap.Duration(name, d)
}

// StringField creates a string field
func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}

// IntField creates an int field
func IntField(key string, value int) zap.Field {
	return zap.Int(key, value)
}

// Float64Field creates a float64 field
func Float64Field(key string, value float64) zap.Field {
	return zap.Float64(key, value)
}
