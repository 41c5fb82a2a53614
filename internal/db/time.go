package db

import (
	"context"
	"fmt"
)

func (t TimeEntry) args() []any {
	return []any{t.StartTime, t.Hour, t.Day, t.Week, t.Month, t.Year, t.Weekday}
}

// InsertTime inserts one time row.
func (q *Queries) InsertTime(ctx context.Context, entry TimeEntry) error {
	if _, err := q.q.Exec(ctx, timeTableInsert, entry.args()...); err != nil {
		return fmt.Errorf("inserting time entry: %w", err)
	}
	return nil
}
