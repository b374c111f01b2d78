package storage

import "time"

// HistoryEntry is one question/answer exchange of a user.
type HistoryEntry struct {
	ID        int64
	UserID    int64
	Message   string
	Response  string
	Timestamp time.Time
}
