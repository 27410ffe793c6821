package mysqlkit

import (
	"context"
	"log/slog"
	"os"
	"time"

	mysql "github.com/go-sql-driver/mysql"
)

var defaultLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// EnableLogging turns structured logging on or off for this pool.
func (p *Pool) EnableLogging(enabled bool) {
	if p == nil {
		return
	}
	p.loggingEnabled = enabled
	if enabled && p.logger == nil {
		p.logger = defaultLogger
	}
}

// SetLogger installs a custom logger.
func (p *Pool) SetLogger(logger *slog.Logger) {
	if p == nil {
		return
	}
	p.logger = logger
}

// SetSlowQueryThreshold marks queries slower than d for warn-level logging.
// Zero disables slow query detection.
func (p *Pool) SetSlowQueryThreshold(d time.Duration) {
	if p == nil {
		return
	}
	p.slowQueryThreshold = d
}

func (p *Pool) logQuery(ctx context.Context, operation, query string, args []any, duration time.Duration, err error) {
	if p == nil || !p.loggingEnabled || p.logger == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("query", query),
		slog.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
	}
	// Log only the arg count, not values; bind args may carry sensitive data.
	if len(args) > 0 {
		attrs = append(attrs, slog.Int("arg_count", len(args)))
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("status", "error"),
			slog.String("error", err.Error()),
		)
		if mysqlErr, ok := err.(*mysql.MySQLError); ok {
			attrs = append(attrs, slog.Int("error_code", int(mysqlErr.Number)))
		}
	} else {
		attrs = append(attrs, slog.String("status", "success"))
	}

	if p.slowQueryThreshold > 0 && duration > p.slowQueryThreshold {
		p.logger.LogAttrs(ctx, slog.LevelWarn, "slow query detected", attrs...)
		return
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	p.logger.LogAttrs(ctx, level, "query executed", attrs...)
}

func (p *Pool) logTransaction(ctx context.Context, event string, duration time.Duration, err error) {
	if p == nil || !p.loggingEnabled || p.logger == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("event", event),
		slog.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("status", "error"),
			slog.String("error", err.Error()),
		)
		p.logger.LogAttrs(ctx, slog.LevelError, "transaction event", attrs...)
		return
	}
	attrs = append(attrs, slog.String("status", "success"))
	p.logger.LogAttrs(ctx, slog.LevelInfo, "transaction event", attrs...)
}

func (p *Pool) logConnection(ctx context.Context, event string, duration time.Duration, err error) {
	if p == nil || !p.loggingEnabled || p.logger == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("event", event),
		slog.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("status", "error"),
			slog.String("error", err.Error()),
		)
		p.logger.LogAttrs(ctx, slog.LevelError, "connection event", attrs...)
		return
	}
	attrs = append(attrs, slog.String("status", "success"))
	p.logger.LogAttrs(ctx, slog.LevelDebug, "connection event", attrs...)
}

func (p *Pool) logCache(ctx context.Context, query string, hit bool) {
	if p == nil || !p.loggingEnabled || p.logger == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	p.logger.LogAttrs(ctx, slog.LevelInfo, "query cache "+outcome,
		slog.String("query", query),
	)
}
