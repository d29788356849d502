package logger

import (
	"context"
	"errors"
	"regexp"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultSlowSQL      = 200 * time.Millisecond
	defaultMaxSQLLength = 2048
)

// GormLogger writes gorm statements to zap. Each entry carries the request,
// usuario and trace IDs found in the statement context plus the main table.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	maxSQLLength  int
	skipNotFound  bool
	slowQueries   *atomic.Int64
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration after which a statement is logged as
// slow. Zero disables slow statement detection.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowThreshold = threshold
	}
}

// WithIgnoreRecordNotFoundError silences gorm.ErrRecordNotFound, which every
// FindByID miss produces
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.skipNotFound = ignore
	}
}

// WithMaxSQLLength truncates logged statements; bulk cliente imports build
// INSERTs of several hundred kilobytes. Zero keeps statements whole.
func WithMaxSQLLength(n int) GormLoggerOption {
	return func(l *GormLogger) {
		l.maxSQLLength = n
	}
}

// NewGormLogger creates a gorm logger backed by zap
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		logger:        zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: defaultSlowSQL,
		maxSQLLength:  defaultMaxSQLLength,
		skipNotFound:  true,
		slowQueries:   new(atomic.Int64),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SlowQueries returns how many statements exceeded the slow threshold since
// the logger was created. Copies made by LogMode share the counter.
func (l *GormLogger) SlowQueries() int64 {
	return l.slowQueries.Load()
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Sugar().Errorf(msg, data...)
	}
}

// Trace logs a finished statement. An error takes precedence over a slow
// statement, and both over the debug line written at Info level.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	isErr := err != nil && !(l.skipNotFound && errors.Is(err, gormlogger.ErrRecordNotFound))
	isSlow := l.slowThreshold > 0 && elapsed > l.slowThreshold
	if isSlow {
		l.slowQueries.Add(1)
	}

	switch {
	case isErr && l.level >= gormlogger.Error:
		l.logger.Error("SQL error", append(l.fields(ctx, elapsed, fc), zap.Error(err))...)
	case isSlow && l.level >= gormlogger.Warn:
		l.logger.Warn("Slow SQL", append(l.fields(ctx, elapsed, fc), zap.Duration("threshold", l.slowThreshold))...)
	case !isErr && l.level >= gormlogger.Info:
		l.logger.Debug("SQL", l.fields(ctx, elapsed, fc)...)
	}
}

func (l *GormLogger) fields(ctx context.Context, elapsed time.Duration, fc func() (string, int64)) []zap.Field {
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", truncateSQL(sql, l.maxSQLLength)),
	}
	if table := mainTable(sql); table != "" {
		fields = append(fields, zap.String("table", table))
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetUserID(ctx); id != "" {
		fields = append(fields, zap.String("user_id", id))
	}
	if id := GetTraceID(ctx); id != "" {
		fields = append(fields, zap.String("trace_id", id))
	}
	return fields
}

func truncateSQL(sql string, max int) string {
	if max <= 0 || len(sql) <= max {
		return sql
	}
	return sql[:max] + "...(truncated)"
}

var tablePattern = regexp.MustCompile("(?i)\\b(?:FROM|INTO|UPDATE)\\s+`?([a-z_][a-z0-9_]*)`?")

// mainTable returns the first table named after FROM, INTO or UPDATE
func mainTable(sql string) string {
	if m := tablePattern.FindStringSubmatch(sql); m != nil {
		return m[1]
	}
	return ""
}

// MapGormLogLevel maps the application log level to a gorm log level.
// Statements are only traced at debug; info keeps gorm to warnings.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)
