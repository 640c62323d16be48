package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// lessonViewRepo implements LessonViewRepo on the lesson_views table.
type lessonViewRepo struct {
	db *sql.DB
}

func (r *lessonViewRepo) RecordLessonView(ctx context.Context, courseID, lessonID string) error {
	query, args := builder().Insert(tableLessonViews).
		Columns(colCourseID, "lesson_id", "first_viewed_at").
		Values(courseID, lessonID, toMillis(time.Now())).
		OnConflict(
			entsql.ConflictColumns(colCourseID, "lesson_id"),
			entsql.DoNothing(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record lesson view: %w", err)
	}
	return nil
}

func (r *lessonViewRepo) LessonViews(ctx context.Context, courseID string) ([]LessonView, error) {
	query, args := builder().Select(colCourseID, "lesson_id", "first_viewed_at").
		From(entsql.Table(tableLessonViews)).
		Where(entsql.EQ(colCourseID, courseID)).
		OrderBy(entsql.Asc("first_viewed_at"), entsql.Asc(colID)).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lesson views: %w", err)
	}
	defer rows.Close()

	var views []LessonView
	for rows.Next() {
		var (
			v  LessonView
			ts int64
		)
		if err := rows.Scan(&v.CourseID, &v.LessonID, &ts); err != nil {
			return nil, fmt.Errorf("scan lesson view: %w", err)
		}
		v.FirstViewedAt = fromMillis(ts)
		views = append(views, v)
	}
	return views, rows.Err()
}
