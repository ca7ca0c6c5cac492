package export

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryAuditLog captures audit entries in memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// LogAudit writes audit entries to a zap logger.
type LogAudit struct {
	Logger *zap.Logger
}

func (l LogAudit) Record(_ context.Context, entry AuditEntry) {
	if l.Logger == nil {
		return
	}
	l.Logger.Info("audit",
		zap.String("id", entry.ID),
		zap.String("action", entry.Action),
		zap.String("actor", entry.Actor),
		zap.String("run_id", entry.RunID),
		zap.String("subject", entry.Subject),
		zap.String("status", string(entry.Status)),
		zap.Any("metadata", entry.Metadata),
		zap.Time("occurred_at", entry.OccurredAt))
}
