package summary

const (
	// UnknownSuspect is used when a ranking entry has no name.
	UnknownSuspect = "Unknown suspect"

	// NoReason is used when a ranking entry has no reason.
	NoReason = "No reason provided."
)

// RankEntry is one suspect in the ranking.
type RankEntry struct {
	Name string `json:"name"`

	// Rank is nil when the model gave no usable rank.
	Rank *int `json:"rank"`

	Reason string `json:"reason"`
}

// Result is the canonical suspect ranking.
type Result struct {
	Ranking []RankEntry `json:"ranking"`
	Summary string      `json:"summary"`
}

// Response is what GetSummary hands back to callers.
type Response struct {
	Result      Result `json:"summary"`
	ContentHash string `json:"content_hash"`

	// Cached reports whether the result came from the stored entry
	// without calling the ranker.
	Cached bool `json:"cached"`
}

// subject is one interviewee's transcript as fed to the ranker.
type subject struct {
	name       string
	transcript string
}
