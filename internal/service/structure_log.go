package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const structureLogTimeFormat = "2006-01-02 15:04:05"

// StructureLog is the append-only log of structure synchronization
// runs, one line per event:
//
//	[2025-08-30 12:00:00] [INFO] message | {"sessionId":"..."}
//
// Writes go straight to the file descriptor (O_APPEND, no buffering),
// so a crash loses no completed lines. Concurrent runs interleave
// their lines and are told apart by the session id each entry carries.
// Every entry is mirrored to the service logger.
type StructureLog struct {
	mu     sync.Mutex
	file   *os.File
	logger *zap.Logger
}

// NewStructureLog opens (creating if needed) the log file at path. If
// the file cannot be opened, logging degrades to the service logger
// only.
func NewStructureLog(path string, logger *zap.Logger) *StructureLog {
	l := &StructureLog{logger: logger}
	if path == "" {
		return l
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn("structure log directory not writable, logging to service log only",
			zap.String("path", path), zap.Error(err))
		return l
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Warn("structure log file not writable, logging to service log only",
			zap.String("path", path), zap.Error(err))
		return l
	}
	l.file = f
	return l
}

func (l *StructureLog) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *StructureLog) writeLine(line string) {
	if l.file == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.WriteString(line); err != nil {
		l.logger.Error("failed to write structure log", zap.Error(err))
	}
}

func (l *StructureLog) event(level, msg string, data map[string]any) {
	line := fmt.Sprintf("[%s] [%s] %s", time.Now().Format(structureLogTimeFormat), level, msg)
	if len(data) > 0 {
		if b, err := json.Marshal(data); err == nil {
			line += " | " + string(b)
		}
	}
	l.writeLine(line + "\n")

	fields := make([]zap.Field, 0, len(data))
	for k, v := range data {
		fields = append(fields, zap.Any(k, v))
	}
	switch level {
	case "WARN":
		l.logger.Warn(msg, fields...)
	case "ERROR":
		l.logger.Error(msg, fields...)
	default:
		l.logger.Info(msg, fields...)
	}
}

// SyncSession scopes log entries to one synchronization run.
type SyncSession struct {
	ID         string
	CustomerID string
	log        *StructureLog
}

// StartSession writes the session start marker and returns the session
// handle all further entries of this run go through.
func (l *StructureLog) StartSession(customerID string) *SyncSession {
	s := &SyncSession{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		log:        l,
	}
	line := fmt.Sprintf("[%s] [START] Structure creation started | sessionId=%s | customerId=%s\n",
		time.Now().Format(structureLogTimeFormat), s.ID, customerID)
	l.writeLine(line)
	l.logger.Info("structure creation started",
		zap.String("session_id", s.ID), zap.String("customer_id", customerID))
	return s
}

func (s *SyncSession) withSession(data map[string]any) map[string]any {
	merged := map[string]any{"sessionId": s.ID}
	for k, v := range data {
		merged[k] = v
	}
	return merged
}

func (s *SyncSession) Info(msg string, data map[string]any) {
	s.log.event("INFO", msg, s.withSession(data))
}

func (s *SyncSession) Warn(msg string, data map[string]any) {
	s.log.event("WARN", msg, s.withSession(data))
}

func (s *SyncSession) Error(msg string, err error) {
	data := map[string]any{"sessionId": s.ID}
	if err != nil {
		data["error"] = err.Error()
	}
	s.log.event("ERROR", msg, data)
}

// End writes the session end marker with the run summary.
func (s *SyncSession) End(summary any) {
	b, err := json.Marshal(summary)
	if err != nil {
		b = []byte("{}")
	}
	line := fmt.Sprintf("[%s] [END] Structure creation completed | sessionId=%s | %s\n",
		time.Now().Format(structureLogTimeFormat), s.ID, b)
	s.log.writeLine(line)
	s.log.logger.Info("structure creation completed",
		zap.String("session_id", s.ID), zap.Any("summary", summary))
}
