package session

import "github.com/classpulse/backend/internal/models"

// HistoryLog is the append-only record of completed polls. It lives for the
// process lifetime only. Access is serialized by the coordinator.
type HistoryLog struct {
	records []models.HistoryRecord
}

// NewHistoryLog returns an empty log.
func NewHistoryLog() *HistoryLog {
	return &HistoryLog{}
}

// Append adds a completed-poll snapshot.
func (h *HistoryLog) Append(rec models.HistoryRecord) {
	h.records = append(h.records, rec)
}

// List returns all records in append order.
func (h *HistoryLog) List() []models.HistoryRecord {
	out := make([]models.HistoryRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Len returns the number of records.
func (h *HistoryLog) Len() int {
	return len(h.records)
}
