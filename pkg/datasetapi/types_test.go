package datasetapi

import (
	"math"
	"testing"
	"time"
)

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"json", "csv", "html", "xlsx", "png", "svg"} {
		f, err := ParseFormat(name)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", name, err)
		}
		if f.Extension() != "."+name {
			t.Fatalf("extension for %s = %s", name, f.Extension())
		}
		if f.ContentType() == "application/octet-stream" {
			t.Fatalf("no content type for %s", name)
		}
	}
	if _, err := ParseFormat("parquet"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{3, "3"},
		{int64(-4), "-4"},
		{0.25, "0.25"},
		{math.NaN(), "NA"},
		{math.Inf(-1), "NA"},
		{float32(1.5), "1.5"},
		{"A", "A"},
		{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05Z"},
	}
	for _, tc := range cases {
		if got := FormatValue(tc.in); got != tc.want {
			t.Fatalf("FormatValue(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestJSONSafe(t *testing.T) {
	if JSONSafe(math.Inf(1)) != nil || JSONSafe(math.NaN()) != nil {
		t.Fatalf("non-finite values must map to nil")
	}
	if JSONSafe(2.5) != 2.5 || JSONSafe("x") != "x" {
		t.Fatalf("finite values must pass through")
	}
}

func TestTableColumns(t *testing.T) {
	tbl := Table{Schema: []Column{{Name: "id"}, {Name: "value"}}}
	if got := tbl.ColumnNames(); len(got) != 2 || got[1] != "value" {
		t.Fatalf("ColumnNames = %v", got)
	}
	if !tbl.HasColumn("id") || tbl.HasColumn("group") {
		t.Fatalf("HasColumn mismatch")
	}
}
