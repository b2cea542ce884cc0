package service

const (
	// Rolling training window
	DefaultWindowDays = 60

	// Concurrency for training and batch re-evaluation
	DefaultWorkers = 4

	// Trend comparison uses this many non-overlapping windows
	TrendWindowCount = 2

	// Batch size for split fetches, keeps a single sync inside rate limits
	SplitSyncBatchSize = 50

	// Pagination limits
	RecentEvaluationsLimit = 10
	ScoreHistoryLimit      = 30
)
