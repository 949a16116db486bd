package archive

import (
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func csvSource(data string, opens *atomic.Int32) Source {
	return func() (io.ReadCloser, error) {
		if opens != nil {
			opens.Add(1)
		}
		return io.NopCloser(strings.NewReader(data)), nil
	}
}

// Two trading days in UTC; the second day has two minute rows.
const sampleCSV = `timestamp,open,high,low,close,volume
1704067200,42000,42100,41900,42050,1.5
1704153600,42050,42500,42000,42400,2.0
1704153660,42400,42600,42300,42550,1.0
`

func TestLoad_DailyRollup(t *testing.T) {
	l := NewLoader(csvSource(sampleCSV, nil), time.UTC)
	series, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 daily records, got %d", len(series))
	}

	day2 := series[1]
	if day2.Open != 42050 {
		t.Fatalf("open: want first row's open 42050, got %.0f", day2.Open)
	}
	if day2.High != 42600 {
		t.Fatalf("high: want running max 42600, got %.0f", day2.High)
	}
	if day2.Low != 42000 {
		t.Fatalf("low: want running min 42000, got %.0f", day2.Low)
	}
	if day2.Close != 42550 {
		t.Fatalf("close: want last row's close 42550, got %.0f", day2.Close)
	}
	if day2.Volume != 3.0 {
		t.Fatalf("volume: want summed 3.0, got %.1f", day2.Volume)
	}

	wantKey := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	if day2.Timestamp != wantKey {
		t.Fatalf("timestamp: want midnight %d, got %d", wantKey, day2.Timestamp)
	}
}

func TestLoad_SkipsMalformedRows(t *testing.T) {
	data := `timestamp,open,high,low,close,volume
not-a-number,1,2,0.5,1.5,1
1704067200,42000,42100,41900,42050,1.5
1704067260,bad,42100,41900,42050,1.5
`
	l := NewLoader(csvSource(data, nil), time.UTC)
	series, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("expected 1 record after skipping malformed rows, got %d", len(series))
	}
}

func TestLoad_FloatTimestamp(t *testing.T) {
	data := "timestamp,open,high,low,close,volume\n1704067200.0,42000,42100,41900,42050,1.5\n"
	l := NewLoader(csvSource(data, nil), time.UTC)
	series, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("expected 1 record, got %d", len(series))
	}
}

func TestLoad_MemoizedOnce(t *testing.T) {
	var opens atomic.Int32
	l := NewLoader(csvSource(sampleCSV, &opens), time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Load(); err != nil {
				t.Errorf("Load: %v", err)
			}
		}()
	}
	wg.Wait()

	if opens.Load() != 1 {
		t.Fatalf("expected a single parse across 8 callers, got %d", opens.Load())
	}
}

func TestLoad_FailureNotMemoized(t *testing.T) {
	boom := errors.New("stream gone")
	fail := true
	l := NewLoader(func() (io.ReadCloser, error) {
		if fail {
			return nil, boom
		}
		return io.NopCloser(strings.NewReader(sampleCSV)), nil
	}, time.UTC)

	_, err := l.Load()
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoadError, got %v", err)
	}

	fail = false
	series, err := l.Load()
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 records on retry, got %d", len(series))
	}
}
