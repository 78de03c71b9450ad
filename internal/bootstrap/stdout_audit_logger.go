package bootstrap

import (
	"context"
	"time"

	"go-incentive/internal/shared/contextutil"

	"go.uber.org/zap"
)

// StdoutAuditLogger writes audit entries as structured log lines.
type StdoutAuditLogger struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewStdoutAuditLogger(logger ...*zap.Logger) *StdoutAuditLogger {
	l := zap.L().Named("audit")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit")
	}
	return &StdoutAuditLogger{logger: l, now: time.Now}
}

func (l *StdoutAuditLogger) Log(ctx context.Context, entry AuditLog) {
	fields := make([]zap.Field, 0, len(entry.Meta)+3)
	fields = append(fields,
		zap.String("recorded_at", l.now().UTC().Format(time.RFC3339)),
		zap.String("action", entry.Action),
	)
	if rid := contextutil.GetRequestID(ctx); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	for k, v := range entry.Meta {
		if v == nil || v == "" {
			continue
		}
		fields = append(fields, zap.Any(k, v))
	}
	l.logger.Info(entry.Message, fields...)
}
