package services

import (
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
)

const (
	auditIntentRequest  = "intent_request"
	auditIntentResponse = "intent_response"
	auditIntentError    = "intent_error"
)

type auditLog struct {
	log *zap.Logger
}

// NewAuditLog appends JSON lines to path. When the file cannot be opened the audit
// trail is disabled and a warning is logged instead.
func NewAuditLog(path string, log *zap.Logger) AuditLog {
	log = logger.OrNop(log)

	fileLog, err := logger.NewFileJSON(path)
	if err != nil {
		log.Warn("audit log disabled", zap.String("path", path), zap.Error(err))
		return &auditLog{log: zap.NewNop()}
	}

	return &auditLog{log: fileLog}
}

// NewAuditLogFromLogger routes audit entries through an existing logger.
func NewAuditLogFromLogger(l *zap.Logger) AuditLog {
	return &auditLog{log: logger.OrNop(l)}
}

// Record implements AuditLog.
func (a *auditLog) Record(event, document string, payload any) {
	a.log.Info(event, zap.String("document", document), zap.Any("payload", payload))
	_ = a.log.Sync()
}
