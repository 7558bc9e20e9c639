package report

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/yourorg/cvat-tasks/internal/types"
)

func taskURL(id int) string {
	return "https://app.cvat.ai/tasks/" + strconv.Itoa(id)
}

func readDir(t *testing.T, dir string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]string{}
	for _, e := range entries {
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		out[e.Name()] = string(b)
	}
	return out
}

func TestWriteBothArtifacts(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, taskURL, nil)
	sum := w.Write([]types.Outcome{
		{ID: "A1", OK: true, TaskID: 101},
		{ID: "A2", Error: "validation failed: bad remote file"},
		{ID: "A3", OK: true, TaskID: 103},
	})

	if sum.Succeeded != 2 || sum.Failed != 1 {
		t.Fatalf("summary %+v; want 2/1", sum)
	}

	files := readDir(t, dir)
	if len(files) != 2 {
		t.Fatalf("wrote %d files; want 2: %v", len(files), files)
	}
	for name, content := range files {
		switch {
		case strings.HasPrefix(name, "successes_") && strings.HasSuffix(name, ".csv"):
			want := "ID,Task ID,Task URL\nA1,101,https://app.cvat.ai/tasks/101\nA3,103,https://app.cvat.ai/tasks/103\n"
			if content != want {
				t.Fatalf("success report:\n%q\nwant:\n%q", content, want)
			}
		case strings.HasPrefix(name, "failures_") && strings.HasSuffix(name, ".log"):
			want := "ID: A2, Error: validation failed: bad remote file\n"
			if content != want {
				t.Fatalf("failure report:\n%q\nwant:\n%q", content, want)
			}
		default:
			t.Fatalf("unexpected artifact %q", name)
		}
	}
}

func TestWriteSkipsEmptyPartitions(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, taskURL, nil)
	sum := w.Write([]types.Outcome{{ID: "A1", OK: true, TaskID: 7}})
	if sum.Failed != 0 {
		t.Fatalf("summary %+v", sum)
	}
	for name := range readDir(t, dir) {
		if strings.HasPrefix(name, "failures_") {
			t.Fatalf("failure artifact written for empty failure list: %q", name)
		}
	}

	dir2 := t.TempDir()
	w2 := NewWriter(dir2, taskURL, nil)
	w2.Write(nil)
	if files := readDir(t, dir2); len(files) != 0 {
		t.Fatalf("artifacts written for empty outcomes: %v", files)
	}
}

func TestWriteFailureOfOneArtifactDoesNotBlockOther(t *testing.T) {
	old := createWriter
	defer func() { createWriter = old }()
	createWriter = func(uri string) (io.Writer, io.Closer, error) {
		if strings.Contains(uri, "successes_") {
			return nil, nil, errors.New("disk full")
		}
		return old(uri)
	}

	dir := t.TempDir()
	w := NewWriter(dir, taskURL, nil)
	sum := w.Write([]types.Outcome{
		{ID: "A1", OK: true, TaskID: 101},
		{ID: "A2", Error: "boom"},
	})

	// Summary is unaffected by the lost artifact.
	if sum.Succeeded != 1 || sum.Failed != 1 {
		t.Fatalf("summary %+v", sum)
	}
	files := readDir(t, dir)
	if len(files) != 1 {
		t.Fatalf("files %v; want only the failure report", files)
	}
	for name, content := range files {
		if !strings.HasPrefix(name, "failures_") {
			t.Fatalf("unexpected artifact %q", name)
		}
		if content != "ID: A2, Error: boom\n" {
			t.Fatalf("failure report %q", content)
		}
	}
}
