package engine

import (
	"context"
	"log"
	"time"

	"github.com/peetj/btc-tracker/internal/model"
	"github.com/peetj/btc-tracker/internal/remote"
	"github.com/peetj/btc-tracker/internal/store"
)

const dayMs = int64(24 * time.Hour / time.Millisecond)

// ArchiveLoader yields the immutable daily archive series.
type ArchiveLoader interface {
	Load() (model.Series, error)
}

// Engine merges the bundled archive with the local cache, detects how stale
// the combined series is versus now, and conditionally pulls the missing
// window from the remote API. It is the single place where component errors
// are converted into a best-effort series plus a status; nothing below it
// leaks to the caller.
//
// The archive wins on timestamp collisions, unconditionally: it ships with
// the binary and is immutable for a given build, so cached rows it covers
// are simply ignored.
//
// Concurrent Reconcile calls are not serialized here; overlapping fetches
// would race on store writes. Callers must serialize (the refresher and API
// layer each do).
type Engine struct {
	loader  ArchiveLoader
	store   store.Store
	fetcher remote.Fetcher
	now     func() time.Time
}

// New creates an Engine. nowFn nil means time.Now.
func New(loader ArchiveLoader, st store.Store, fetcher remote.Fetcher, nowFn func() time.Time) *Engine {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Engine{loader: loader, store: st, fetcher: fetcher, now: nowFn}
}

// Reconcile returns the canonical merged series and a freshness status.
// forceFetch pulls from the API even when no gap is detected. Errors
// degrade: storage or fetch trouble falls back to whatever could be
// assembled, with the message attached to the status; only an unreadable
// archive with nothing else to show yields an empty ERROR result.
func (e *Engine) Reconcile(ctx context.Context, forceFetch bool) (model.Series, model.FetchStatus) {
	nowMs := e.now().UnixMilli()
	status := model.FetchStatus{LastUpdate: nowMs}

	arc, archiveErr := e.loader.Load()
	if archiveErr != nil {
		log.Printf("[ERROR] reconcile: %v", archiveErr)
		status.Source = model.SourceError
		status.Error = archiveErr.Error()
		return model.Series{}, status
	}

	cached, storeErr := e.store.GetAll()
	if storeErr != nil {
		// Degrade to archive-only; a fetch would only fail again at persist.
		log.Printf("[WARN] reconcile: %v, serving archive only", storeErr)
		if len(arc) == 0 {
			status.Source = model.SourceError
			status.Error = storeErr.Error()
			return model.Series{}, status
		}
		status.Source = model.SourceCSVOnly
		status.Error = storeErr.Error()
		status.MissingDays = gapDays(arc.Last().Timestamp, nowMs)
		return arc, status
	}

	if len(arc) == 0 && len(cached) == 0 {
		// No anchor to compute a gap against.
		status.Source = model.SourceNoData
		return model.Series{}, status
	}

	working := model.Merge(arc, model.Series(cached))
	lastKnown := working.Last().Timestamp
	status.MissingDays = gapDays(lastKnown, nowMs)

	if status.MissingDays > 0 || forceFetch {
		status.Source = model.SourceFetching
		fresh, err := e.fetcher.FetchRange(ctx, lastKnown+dayMs, nowMs)
		switch {
		case err != nil:
			log.Printf("[WARN] reconcile fetch: %v", err)
			status.Error = err.Error()
		case len(fresh) > 0:
			working = model.Merge(working, model.Series(fresh))
			status.Source = model.SourceLiveAPI
			status.MissingDays = 0
		default:
			// API had nothing for the window; the gap stands.
		}
		return working, status
	}

	if len(working) > len(arc) {
		status.Source = model.SourceCSVAndCache
	} else {
		status.Source = model.SourceCSVOnly
	}
	return working, status
}

// gapDays is the number of whole days between the last known bar and now.
func gapDays(lastMs, nowMs int64) int {
	if nowMs <= lastMs {
		return 0
	}
	return int((nowMs - lastMs) / dayMs)
}
