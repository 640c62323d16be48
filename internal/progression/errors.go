package progression

import "errors"

// Caller errors. Sync failures are never returned as errors; they are
// reported in Outcome.SyncFailed.
var (
	ErrUnknownModule = errors.New("unknown module")
	ErrUnknownLesson = errors.New("unknown lesson")
	ErrNoQuiz        = errors.New("module has no quiz")
	ErrQuizMismatch  = errors.New("quiz does not belong to module")
	ErrUnknownEvent  = errors.New("unknown event")
	ErrClosed        = errors.New("engine closed")
)
