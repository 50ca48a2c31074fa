package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalsfoundry/adalia-navigator/kb"
)

const catalogJSON = `[
  {"i": 1, "n": "Adalia Prime", "r": 375000, "orbital": {"a": 2.192, "e": 0.325, "i": 0.001, "o": 0, "w": 0, "m": 0}},
  {"i": 2, "r": 1800, "orbital": {"a": 2.5, "e": 0.1, "i": 0.05, "o": 1, "w": 2, "m": 0.5}},
  {"i": 3, "n": "Arkos", "r": 25000, "orbital": {"a": 3.1, "e": 0.2, "i": 0.1, "o": 4, "w": 0.3, "m": 3}}
]`

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "asteroids.json")
	if err := os.WriteFile(path, []byte(catalogJSON), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestRunPrintsRoute(t *testing.T) {
	day := 1200.0
	var out bytes.Buffer
	err := run(context.Background(), &out, options{
		catalogPath:     writeCatalog(t),
		start:           1,
		targets:         []int{2, 3},
		day:             &day,
		speed:           0.05,
		exhaustiveLimit: 8,
		track:           2,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Route from Adalia Prime", "exhaustive", "Asteroid #2", "Arkos", "Total cost", "Track:"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
	// Three bodies tracked at three instants each.
	if got := strings.Count(text, "  body "); got != 9 {
		t.Fatalf("track lines = %d, want 9", got)
	}
}

func TestRunFrozenUsesSameTargets(t *testing.T) {
	day := 0.0
	var out bytes.Buffer
	err := run(context.Background(), &out, options{
		catalogPath:     writeCatalog(t),
		start:           2,
		targets:         []int{3, 1},
		day:             &day,
		speed:           0.05,
		exhaustiveLimit: 0,
		freeze:          true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "greedy") {
		t.Fatalf("expected greedy strategy with limit 0:\n%s", out.String())
	}
}

func TestRunUnknownTarget(t *testing.T) {
	err := run(context.Background(), &bytes.Buffer{}, options{
		catalogPath: writeCatalog(t),
		start:       1,
		targets:     []int{42},
		speed:       0.05,
	})
	if !errors.Is(err, kb.ErrBodyNotFound) {
		t.Fatalf("err = %v, want ErrBodyNotFound", err)
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 3, 1 ,2")
	if err != nil {
		t.Fatalf("parseIDs: %v", err)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 1 || ids[2] != 2 {
		t.Fatalf("ids = %v", ids)
	}
	if ids, err := parseIDs(""); err != nil || len(ids) != 0 {
		t.Fatalf("empty = (%v, %v)", ids, err)
	}
	if _, err := parseIDs("1,x"); err == nil {
		t.Fatalf("expected error for non-numeric id")
	}
}
