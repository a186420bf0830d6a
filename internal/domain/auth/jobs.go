package auth

import "encoding/json"

// JobKind discriminates the payload carried by a queued job.
type JobKind string

const (
	JobPopulateWatchlist JobKind = "populateImportedWatchlist"
	JobReattributeEdits  JobKind = "reattributeImportedEdits"
)

// Job is one claimed unit of background work.
type Job struct {
	ID          string
	Kind        JobKind
	Payload     json.RawMessage
	Attempts    int
	MaxAttempts int
}

// JobDescriptor is an unqueued job handed to the scheduling sink. Payload is
// one of WatchlistBatchPayload or ReattributionPayload.
type JobDescriptor struct {
	Kind    JobKind
	Payload any
}

// WatchlistBatchPayload carries one bounded batch of watchlist entries.
type WatchlistBatchPayload struct {
	Username string           `json:"username"`
	Pages    []WatchlistEntry `json:"pages"`
}

// ReattributionPayload carries one bounded batch of row ids to reassign from
// the stub actor to the imported actor. IDs are serialized as strings since
// image and oldimage are keyed by file name rather than a numeric id.
type ReattributionPayload struct {
	Username string   `json:"username"`
	Table    string   `json:"table"`
	IDs      []string `json:"ids"`
}
