package archive

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/peetj/btc-tracker/internal/model"
)

// LoadError wraps any failure to retrieve or parse the bundled archive.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("archive load: %v", e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// Source yields the raw archive byte stream. Each call must return a fresh
// reader positioned at the start.
type Source func() (io.ReadCloser, error)

// FileSource returns a Source over a CSV file on disk.
func FileSource(path string) Source {
	return func() (io.ReadCloser, error) { return os.Open(path) }
}

// Loader parses the bundled historical CSV once per process lifetime and
// serves the daily roll-up from memory afterwards. Concurrent callers before
// the first result is ready share a single parse. A failed load is not
// memoized; the next caller retries.
type Loader struct {
	source Source
	loc    *time.Location

	mu     sync.Mutex
	loaded bool
	series model.Series
}

// NewLoader creates a Loader. loc determines the calendar-day boundary used
// as the merge key; nil means time.Local.
func NewLoader(source Source, loc *time.Location) *Loader {
	if loc == nil {
		loc = time.Local
	}
	return &Loader{source: source, loc: loc}
}

// Load returns the archive aggregated to one record per calendar day,
// sorted ascending.
func (l *Loader) Load() (model.Series, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return l.series, nil
	}

	rc, err := l.source()
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	defer rc.Close()

	series, err := parseDaily(rc, l.loc)
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	l.series = series
	l.loaded = true
	return l.series, nil
}

// parseDaily reads minute-or-finer CSV rows
// (timestamp,open,high,low,close,volume; timestamp in epoch seconds) and
// rolls them up per calendar day. Rows with a non-numeric timestamp are
// skipped, as are rows whose price fields fail to parse.
func parseDaily(r io.Reader, loc *time.Location) (model.Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	days := make(map[int64]*model.DailyRecord)
	first := true

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if first {
			first = false // header line
			continue
		}
		if len(row) < 6 {
			continue
		}

		sec, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			continue
		}
		o, err1 := strconv.ParseFloat(row[1], 64)
		h, err2 := strconv.ParseFloat(row[2], 64)
		lo, err3 := strconv.ParseFloat(row[3], 64)
		c, err4 := strconv.ParseFloat(row[4], 64)
		v, err5 := strconv.ParseFloat(row[5], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}

		key := DayStart(time.Unix(int64(sec), 0), loc)
		rec, ok := days[key]
		if !ok {
			days[key] = &model.DailyRecord{
				Timestamp: key,
				Open:      o,
				High:      h,
				Low:       lo,
				Close:     c,
				Volume:    v,
			}
			continue
		}
		if h > rec.High {
			rec.High = h
		}
		if lo < rec.Low {
			rec.Low = lo
		}
		rec.Close = c
		rec.Volume += v
	}

	series := make(model.Series, 0, len(days))
	for _, rec := range days {
		series = append(series, *rec)
	}
	series.Sort()
	return series, nil
}

// DayStart returns midnight of t's calendar day in loc, as epoch ms.
func DayStart(t time.Time, loc *time.Location) int64 {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).UnixMilli()
}
