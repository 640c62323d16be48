package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column names shared by the repositories.
const (
	tableSyncEvents   = "sync_events"
	tableQuizAttempts = "quiz_attempts"
	tableLessonViews  = "lesson_views"
	tablePending      = "pending_completions"

	colID        = "id"
	colSequence  = "sequence"
	colCreatedAt = "created_at"
	colSessionID = "session_id"
	colCourseID  = "course_id"
	colModuleID  = "module_id"
)

var (
	syncEventsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt, Increment: true},
		{Name: colSequence, Type: field.TypeInt64, Unique: true},
		{Name: colCreatedAt, Type: field.TypeInt64},
		{Name: colSessionID, Type: field.TypeString, Default: ""},
		{Name: "op", Type: field.TypeString},
		{Name: colCourseID, Type: field.TypeString},
		{Name: colModuleID, Type: field.TypeString, Default: ""},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_kind", Type: field.TypeString, Default: ""},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "status", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
	}
	syncEventsTable = &schema.Table{
		Name:       tableSyncEvents,
		Columns:    syncEventsColumns,
		PrimaryKey: []*schema.Column{syncEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "syncevent_course_id", Columns: []*schema.Column{syncEventsColumns[5]}},
		},
	}

	quizAttemptsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt, Increment: true},
		{Name: colSequence, Type: field.TypeInt64, Unique: true},
		{Name: colCreatedAt, Type: field.TypeInt64},
		{Name: colSessionID, Type: field.TypeString, Default: ""},
		{Name: colCourseID, Type: field.TypeString},
		{Name: colModuleID, Type: field.TypeString},
		{Name: "quiz_id", Type: field.TypeString},
		{Name: "correct_count", Type: field.TypeInt},
		{Name: "total_questions", Type: field.TypeInt},
		{Name: "score_percent", Type: field.TypeFloat64},
		{Name: "passed", Type: field.TypeBool},
		{Name: "source", Type: field.TypeString},
		{Name: "discrepancy", Type: field.TypeBool, Default: false},
	}
	quizAttemptsTable = &schema.Table{
		Name:       tableQuizAttempts,
		Columns:    quizAttemptsColumns,
		PrimaryKey: []*schema.Column{quizAttemptsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "quizattempt_course_id_module_id", Columns: []*schema.Column{quizAttemptsColumns[4], quizAttemptsColumns[5]}},
		},
	}

	lessonViewsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt, Increment: true},
		{Name: colCourseID, Type: field.TypeString},
		{Name: "lesson_id", Type: field.TypeString},
		{Name: "first_viewed_at", Type: field.TypeInt64},
	}
	lessonViewsTable = &schema.Table{
		Name:       tableLessonViews,
		Columns:    lessonViewsColumns,
		PrimaryKey: []*schema.Column{lessonViewsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "lessonview_course_id_lesson_id", Unique: true, Columns: []*schema.Column{lessonViewsColumns[1], lessonViewsColumns[2]}},
		},
	}

	pendingColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt, Increment: true},
		{Name: colCourseID, Type: field.TypeString},
		{Name: colModuleID, Type: field.TypeString},
		{Name: colCreatedAt, Type: field.TypeInt64},
	}
	pendingTable = &schema.Table{
		Name:       tablePending,
		Columns:    pendingColumns,
		PrimaryKey: []*schema.Column{pendingColumns[0]},
		Indexes: []*schema.Index{
			{Name: "pending_course_id_module_id", Unique: true, Columns: []*schema.Column{pendingColumns[1], pendingColumns[2]}},
		},
	}

	tables = []*schema.Table{
		syncEventsTable,
		quizAttemptsTable,
		lessonViewsTable,
		pendingTable,
	}
)
