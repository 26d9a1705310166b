package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must be non-negative")
	}
	return nil
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("LINKDEX_TEST_NAME", "from-env")
	path := filepath.Join(t.TempDir(), "c.yaml")
	writeConfig(t, path, "name: ${LINKDEX_TEST_NAME}\ncount: 2\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "from-env" || s.Count != 2 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_Validates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	writeConfig(t, path, "count: -1\n")

	var s sample
	if err := Load(path, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadWithDefaults_FallsBack(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "default.yaml")
	writeConfig(t, def, "name: default\n")

	var s sample
	if err := LoadWithDefaults(filepath.Join(dir, "missing.yaml"), def, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "default" {
		t.Errorf("name = %q", s.Name)
	}
	if err := LoadWithDefaults(filepath.Join(dir, "missing.yaml"), "", &s); err == nil {
		t.Error("expected error without default file")
	}
}

func TestWatch_ReloadsValidChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	writeConfig(t, path, "name: one\ncount: 1\n")

	var (
		mu  sync.Mutex
		got []sample
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func() *sample { return &sample{Name: "default"} }, func(s *sample) {
			mu.Lock()
			got = append(got, *s)
			mu.Unlock()
		})
	}()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("watch: %v", err)
		}
	})

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)
	writeConfig(t, path, "count: -5\n")
	time.Sleep(300 * time.Millisecond)
	writeConfig(t, path, "count: 7\n")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		var last sample
		if n > 0 {
			last = got[n-1]
		}
		for _, g := range got {
			if g.Count < 0 {
				t.Errorf("invalid config delivered: %+v", g)
			}
		}
		mu.Unlock()
		if n > 0 && last.Count == 7 {
			if last.Name != "default" {
				t.Errorf("omitted key lost its default: %+v", last)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("reload not observed, got %+v", got)
}

func TestDecode_KeepsUnsetFields(t *testing.T) {
	s := sample{Name: "kept", Count: 3}
	if err := Decode([]byte("count: 4\n"), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "kept" || s.Count != 4 {
		t.Errorf("got %+v", s)
	}
	if err := Decode([]byte("count: [\n"), &s); err == nil {
		t.Error("expected parse error")
	}
}
