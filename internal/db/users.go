package db

import (
	"context"
	"fmt"
)

func (u User) args() []any {
	return []any{u.ID, u.FirstName, u.LastName, u.Gender, u.Level}
}

// InsertUser inserts one users row. Each play inserts its own row, so a
// user who plays many songs appears many times.
func (q *Queries) InsertUser(ctx context.Context, user User) error {
	if _, err := q.q.Exec(ctx, userTableInsert, user.args()...); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}
