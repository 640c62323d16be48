package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// syncEventRepo implements SyncEventRepo on the sync_events table.
type syncEventRepo struct {
	db      *sql.DB
	seq     *sequenceCounter
	session string
}

var syncEventSelect = []string{
	colSequence, colCreatedAt, colSessionID, "op", colCourseID, colModuleID,
	"success", "error_kind", "error_message", "status", "latency_ms",
}

func (r *syncEventRepo) AppendSyncEvent(ctx context.Context, data SyncEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := builder().Insert(tableSyncEvents).
		Columns(syncEventSelect...).
		Values(
			seqNum, toMillis(time.Now()), r.session, data.Op, data.CourseID, data.ModuleID,
			data.Success, data.ErrorKind, data.ErrorMessage, data.Status, data.LatencyMs,
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save sync event: %w", err)
	}
	return nil
}

func (r *syncEventRepo) SyncEvents(ctx context.Context, opts QueryOpts) ([]SyncEvent, error) {
	sel := builder().Select(syncEventSelect...).
		From(entsql.Table(tableSyncEvents)).
		OrderBy(entsql.Desc(colSequence))
	applyOpts(sel, opts)

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sync events: %w", err)
	}
	defer rows.Close()

	var events []SyncEvent
	for rows.Next() {
		var (
			e  SyncEvent
			ts int64
		)
		if err := rows.Scan(
			&e.Sequence, &ts, &e.SessionID, &e.Op, &e.CourseID, &e.ModuleID,
			&e.Success, &e.ErrorKind, &e.ErrorMessage, &e.Status, &e.LatencyMs,
		); err != nil {
			return nil, fmt.Errorf("scan sync event: %w", err)
		}
		e.Timestamp = fromMillis(ts)
		events = append(events, e)
	}
	return events, rows.Err()
}

// applyOpts adds the QueryOpts filters to a selector over an event table.
func applyOpts(sel *entsql.Selector, opts QueryOpts) {
	if opts.CourseID != "" {
		sel.Where(entsql.EQ(colCourseID, opts.CourseID))
	}
	if opts.After > 0 {
		sel.Where(entsql.GT(colSequence, opts.After))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE(colCreatedAt, toMillis(opts.From)))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
}
