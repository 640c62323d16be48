package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// quizAttemptRepo implements QuizAttemptRepo on the quiz_attempts table.
type quizAttemptRepo struct {
	db      *sql.DB
	seq     *sequenceCounter
	session string
}

var quizAttemptSelect = []string{
	colSequence, colCreatedAt, colSessionID, colCourseID, colModuleID, "quiz_id",
	"correct_count", "total_questions", "score_percent", "passed", "source", "discrepancy",
}

func (r *quizAttemptRepo) AppendQuizAttempt(ctx context.Context, data QuizAttemptData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := builder().Insert(tableQuizAttempts).
		Columns(quizAttemptSelect...).
		Values(
			seqNum, toMillis(time.Now()), r.session, data.CourseID, data.ModuleID, data.QuizID,
			data.CorrectCount, data.TotalQuestions, data.ScorePercent, data.Passed, data.Source, data.Discrepancy,
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save quiz attempt: %w", err)
	}
	return nil
}

func (r *quizAttemptRepo) QuizAttempts(ctx context.Context, courseID, moduleID string) ([]QuizAttempt, error) {
	query, args := builder().Select(quizAttemptSelect...).
		From(entsql.Table(tableQuizAttempts)).
		Where(entsql.And(
			entsql.EQ(colCourseID, courseID),
			entsql.EQ(colModuleID, moduleID),
		)).
		OrderBy(entsql.Asc(colSequence)).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quiz attempts: %w", err)
	}
	defer rows.Close()

	var attempts []QuizAttempt
	for rows.Next() {
		var (
			a  QuizAttempt
			ts int64
		)
		if err := rows.Scan(
			&a.Sequence, &ts, &a.SessionID, &a.CourseID, &a.ModuleID, &a.QuizID,
			&a.CorrectCount, &a.TotalQuestions, &a.ScorePercent, &a.Passed, &a.Source, &a.Discrepancy,
		); err != nil {
			return nil, fmt.Errorf("scan quiz attempt: %w", err)
		}
		a.Timestamp = fromMillis(ts)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (r *quizAttemptRepo) QuizStats(ctx context.Context, courseID string) ([]QuizStat, error) {
	query, args := builder().Select(
		colModuleID,
		entsql.Count("*"),
		entsql.Max("score_percent"),
		entsql.Max("passed"),
		entsql.Max(colCreatedAt),
	).
		From(entsql.Table(tableQuizAttempts)).
		Where(entsql.EQ(colCourseID, courseID)).
		GroupBy(colModuleID).
		OrderBy(colModuleID).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quiz stats: %w", err)
	}
	defer rows.Close()

	var stats []QuizStat
	for rows.Next() {
		var (
			s      QuizStat
			passed int64
			last   int64
		)
		if err := rows.Scan(&s.ModuleID, &s.Attempts, &s.BestPercent, &passed, &last); err != nil {
			return nil, fmt.Errorf("scan quiz stat: %w", err)
		}
		s.Passed = passed != 0
		s.LastAttempt = fromMillis(last)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *quizAttemptRepo) PassedQuizzes(ctx context.Context, courseID string) (map[string]string, error) {
	query, args := builder().Select(colModuleID, "quiz_id").
		From(entsql.Table(tableQuizAttempts)).
		Where(entsql.And(
			entsql.EQ(colCourseID, courseID),
			entsql.EQ("passed", true),
			entsql.EQ("source", "server"),
		)).
		OrderBy(entsql.Asc(colSequence)).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query passed quizzes: %w", err)
	}
	defer rows.Close()

	passed := make(map[string]string)
	for rows.Next() {
		var moduleID, quizID string
		if err := rows.Scan(&moduleID, &quizID); err != nil {
			return nil, fmt.Errorf("scan passed quiz: %w", err)
		}
		passed[moduleID] = quizID // latest pass wins
	}
	return passed, rows.Err()
}
