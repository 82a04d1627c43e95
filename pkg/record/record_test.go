package record

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestCSV_HeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	rec, err := NewCSV(path)
	if err != nil {
		t.Fatalf("NewCSV: %v", err)
	}

	samples := []Sample{
		{Time: 0.01, Desired: 0, Position: 0.001, Velocity: 0.1, Torque: 0.05, Mode: 10, Fault: 0},
		{Time: 2.02, Desired: 1.0 / 6, Position: 0.166, Velocity: 1.2, Torque: 0.4, Mode: 10, Fault: 0},
	}
	for _, s := range samples {
		if err := rec.Add(s); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	if len(rows) != len(samples)+1 {
		t.Fatalf("got %d rows, want %d", len(rows), len(samples)+1)
	}

	for i, col := range Header {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}

	for i, s := range samples {
		row := rows[i+1]
		if len(row) != len(Header) {
			t.Fatalf("row %d has %d fields, want %d", i, len(row), len(Header))
		}
		if got, _ := strconv.ParseFloat(row[0], 64); got != s.Time {
			t.Errorf("row %d time = %v, want %v", i, got, s.Time)
		}
		if got, _ := strconv.ParseFloat(row[1], 64); got != s.Desired {
			t.Errorf("row %d desired = %v, want %v", i, got, s.Desired)
		}
		if got, _ := strconv.Atoi(row[5]); got != s.Mode {
			t.Errorf("row %d mode = %v, want %v", i, got, s.Mode)
		}
	}
}

func TestMemory(t *testing.T) {
	var m Memory
	for i := 0; i < 3; i++ {
		if err := m.Add(Sample{Time: float64(i)}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if len(m.Samples) != 3 {
		t.Errorf("got %d samples, want 3", len(m.Samples))
	}
}

func TestMulti_FansOut(t *testing.T) {
	a := &Memory{}
	b := &Memory{}
	multi := Multi{a, b}

	if err := multi.Add(Sample{Time: 1.5}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := multi.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(a.Samples) != 1 || len(b.Samples) != 1 {
		t.Errorf("fan-out failed: %d/%d samples", len(a.Samples), len(b.Samples))
	}
	if a.Samples[0].Time != 1.5 {
		t.Errorf("sample time = %v, want 1.5", a.Samples[0].Time)
	}
}

func TestSQLite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.sqlite3")

	rec, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}

	for i := 0; i < 5; i++ {
		s := Sample{
			Time:     float64(i) * 0.01,
			Desired:  float64(i) / 6,
			Position: float64(i) / 6,
			Mode:     10,
		}
		if err := rec.Add(s); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	check, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer check.Close()

	var count int
	if err := check.db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Errorf("got %d rows, want 5", count)
	}
}
