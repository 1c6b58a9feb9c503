package store

import (
	"database/sql"
	"time"
)

const timestampLayout = time.RFC3339Nano

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableTimestamp(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	return parseTimestamp(s.String)
}
