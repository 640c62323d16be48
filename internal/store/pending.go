package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// pendingRepo implements PendingRepo on the pending_completions table.
type pendingRepo struct {
	db *sql.DB
}

func (r *pendingRepo) AddPending(ctx context.Context, courseID, moduleID string) error {
	query, args := builder().Insert(tablePending).
		Columns(colCourseID, colModuleID, colCreatedAt).
		Values(courseID, moduleID, toMillis(time.Now())).
		OnConflict(
			entsql.ConflictColumns(colCourseID, colModuleID),
			entsql.DoNothing(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("add pending completion: %w", err)
	}
	return nil
}

func (r *pendingRepo) RemovePending(ctx context.Context, courseID, moduleID string) error {
	query, args := builder().Delete(tablePending).
		Where(entsql.And(
			entsql.EQ(colCourseID, courseID),
			entsql.EQ(colModuleID, moduleID),
		)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("remove pending completion: %w", err)
	}
	return nil
}

func (r *pendingRepo) Pending(ctx context.Context, courseID string) ([]string, error) {
	query, args := builder().Select(colModuleID).
		From(entsql.Table(tablePending)).
		Where(entsql.EQ(colCourseID, courseID)).
		OrderBy(entsql.Asc(colCreatedAt), entsql.Asc(colID)).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending completions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending completion: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
