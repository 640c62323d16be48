package remote

import "github.com/abhisek/coursetrack/internal/store"

// New creates the production Adapter: the HTTP client, journaled when repo
// is non-nil, with retries around the journal so every attempt is recorded.
func New(cfg Config, repo store.SyncEventRepo, log Warner) Adapter {
	var a Adapter = NewClient(cfg)
	if repo != nil {
		a = WithJournal(a, repo, log)
	}
	return WithRetry(a, cfg.Retry)
}
