package model

// Source identifies which data sources contributed to a reconciled series.
type Source string

const (
	// SourceCSVOnly means only the bundled archive contributed.
	SourceCSVOnly Source = "CSV_ONLY"
	// SourceCSVAndCache means the archive plus previously cached live data.
	SourceCSVAndCache Source = "CSV_AND_CACHE"
	// SourceLiveAPI means a fresh fetch filled the gap during this call.
	SourceLiveAPI Source = "LIVE_API"
	// SourceFetching means a fetch was attempted but produced no new data.
	SourceFetching Source = "FETCHING"
	// SourceNoData means neither the archive nor the cache held anything.
	SourceNoData Source = "NO_DATA"
	// SourceError means no series could be assembled at all.
	SourceError Source = "ERROR"
)

// FetchStatus describes the outcome of one reconciliation. It is recomputed
// on every call and never persisted.
type FetchStatus struct {
	Source      Source `json:"source"`
	MissingDays int    `json:"missingDays"`
	Error       string `json:"error,omitempty"`
	LastUpdate  int64  `json:"lastUpdate"`
}
