package model

import "testing"

func TestMerge_PrecedenceAndOrder(t *testing.T) {
	base := Series{
		{Timestamp: 1000, Close: 100},
		{Timestamp: 3000, Close: 110},
	}
	extra := Series{
		{Timestamp: 3000, Close: 999}, // collision, base wins
		{Timestamp: 2000, Close: 105},
		{Timestamp: 4000, Close: 115},
	}

	out := Merge(base, extra)
	if len(out) != 4 {
		t.Fatalf("expected 4 records, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i-1].Timestamp >= out[i].Timestamp {
			t.Fatalf("not strictly increasing at %d", i)
		}
	}
	if out[2].Close != 110 {
		t.Fatalf("collision: base must win, got close %.0f", out[2].Close)
	}
}

func TestMerge_EmptyExtra(t *testing.T) {
	base := Series{{Timestamp: 1000, Close: 100}}
	out := Merge(base, nil)
	if len(out) != 1 {
		t.Fatalf("expected base unchanged, got %d records", len(out))
	}
}

func TestParseGranularity(t *testing.T) {
	for _, ok := range []string{"hour", "day", "week", "month"} {
		if _, err := ParseGranularity(ok); err != nil {
			t.Fatalf("ParseGranularity(%q): %v", ok, err)
		}
	}
	if _, err := ParseGranularity("decade"); err == nil {
		t.Fatal("expected error for unknown granularity")
	}
}
