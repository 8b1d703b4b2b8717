// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	RequestIDKey LogContextKey = "request_id"
	UserIDKey    LogContextKey = "user_id"
	TraceIDKey   LogContextKey = "trace_id"
	SubjectKey   LogContextKey = "auth_subject"
)

// LogConfig selects the level and sinks of the global logger.
type LogConfig struct {
	Level       string
	File        string
	Development bool
	// Rolling file limits; zero falls back to lumberjack-friendly defaults.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

func init() {
	logger, err := NewLogger(LogConfig{
		Level:       os.Getenv("LOG_LEVEL"),
		Development: os.Getenv("APP_ENV") != "production",
	})
	if err == nil {
		global = logger
	}
}

// NewLogger builds a zap logger writing JSON to stdout and, when File is set,
// to a size-rotated file.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.MillisDurationEncoder

	var stdoutEncoder zapcore.Encoder
	if cfg.Development {
		devCfg := encCfg
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		stdoutEncoder = zapcore.NewConsoleEncoder(devCfg)
	} else {
		stdoutEncoder = zapcore.NewJSONEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(stdoutEncoder, zapcore.Lock(consoleSyncer{os.Stdout}), level),
	}

	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, err
			}
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 7),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(lj), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// consoleSyncer is stdout for zap. Pipes and terminals cannot fsync, so
// EINVAL and ENOTTY from Sync are not errors.
type consoleSyncer struct {
	zapcore.WriteSyncer
}

func (c consoleSyncer) Sync() error {
	err := c.WriteSyncer.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

// InitLogger replaces the global logger.
func InitLogger(cfg LogConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	SetLogger(logger)
	return nil
}

// SetLogger swaps the global logger; tests use it with zaptest/observer cores.
func SetLogger(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = logger
}

// L returns the global logger without request fields.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Logger returns the global logger enriched with the request fields carried by ctx.
func Logger(ctx context.Context) *zap.Logger {
	logger := L()
	if ctx == nil {
		return logger
	}
	return logger.With(ContextFields(ctx)...)
}

// ContextFields extracts the request, user, trace and subject fields from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if rid, ok := ctx.Value(RequestIDKey).(string); ok && rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	if uid, ok := ctx.Value(UserIDKey).(uint); ok && uid != 0 {
		fields = append(fields, zap.Uint("user_id", uid))
	}
	if tid, ok := ctx.Value(TraceIDKey).(string); ok && tid != "" {
		fields = append(fields, zap.String("trace_id", tid))
	}
	if sub, ok := ctx.Value(SubjectKey).(string); ok && sub != "" {
		fields = append(fields, zap.String("auth_subject", sub))
	}
	return fields
}

// Sync flushes buffered log entries.
func Sync() {
	_ = L().Sync()
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// RepoLogger provides structured logging for repository operations.
type RepoLogger struct {
	tableName string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(tableName string) *RepoLogger {
	return &RepoLogger{tableName: tableName}
}

// LogCreate logs a repository create operation.
func (l *RepoLogger) LogCreate(ctx context.Context, fields ...zap.Field) {
	Logger(ctx).Debug("repository create",
		append([]zap.Field{zap.String("table", l.tableName), zap.String("operation", "create")}, fields...)...)
}

// LogDelete logs a repository delete operation.
func (l *RepoLogger) LogDelete(ctx context.Context, fields ...zap.Field) {
	Logger(ctx).Debug("repository delete",
		append([]zap.Field{zap.String("table", l.tableName), zap.String("operation", "delete")}, fields...)...)
}

// LogError logs a repository error.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	Logger(ctx).Error("repository error",
		zap.String("table", l.tableName),
		zap.String("operation", operation),
		zap.Error(err),
	)
}

// WSLogger provides structured logging for WebSocket operations.
type WSLogger struct {
	hubName string
}

// NewWSLogger creates a new WSLogger for the given hub.
func NewWSLogger(hubName string) *WSLogger {
	return &WSLogger{hubName: hubName}
}

// LogConnect logs a WebSocket connection event.
func (l *WSLogger) LogConnect(userID uint) {
	L().Info("websocket connected", zap.String("hub", l.hubName), zap.Uint("user_id", userID))
}

// LogDisconnect logs a WebSocket disconnection event.
func (l *WSLogger) LogDisconnect(userID uint, reason string) {
	L().Info("websocket disconnected",
		zap.String("hub", l.hubName),
		zap.Uint("user_id", userID),
		zap.String("reason", reason),
	)
}

// LogError logs a WebSocket error event.
func (l *WSLogger) LogError(userID uint, err error, eventType string) {
	L().Warn("websocket error",
		zap.String("hub", l.hubName),
		zap.Uint("user_id", userID),
		zap.String("event_type", eventType),
		zap.Error(err),
	)
}
