// Package report writes the two run artifacts: a CSV of created tasks and a
// plain-text log of failed records. Both writes are best-effort; losing one
// artifact never costs the other, and never fails the run.
package report

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/cvat-tasks/internal/iopkg"
	"github.com/yourorg/cvat-tasks/internal/types"
)

// createWriter is swapped out in tests to simulate write failures.
var createWriter = iopkg.CreateWriter

// Writer emits run artifacts under Dir (a local directory or s3:// prefix).
type Writer struct {
	Dir string
	// TaskURL derives the service web URL for a task id.
	TaskURL func(id int) string
	Log     *zap.Logger

	now func() time.Time
}

func NewWriter(dir string, taskURL func(int) string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{Dir: dir, TaskURL: taskURL, Log: log, now: time.Now}
}

// Write partitions outcomes, writes the artifacts, and returns the summary.
// Artifacts for empty partitions are not written at all.
func (w *Writer) Write(outcomes []types.Outcome) types.Summary {
	var successes, failures []types.Outcome
	for _, o := range outcomes {
		if o.OK {
			successes = append(successes, o)
		} else {
			failures = append(failures, o)
		}
	}

	stamp := w.now().Format("20060102_150405")
	if len(successes) > 0 {
		uri := iopkg.Join(w.Dir, "successes_"+stamp+".csv")
		if err := w.writeSuccesses(uri, successes); err != nil {
			w.Log.Error("success report write failed", zap.String("uri", uri), zap.Error(err))
		} else {
			w.Log.Info("success report written", zap.String("uri", uri), zap.Int("rows", len(successes)))
		}
	}
	if len(failures) > 0 {
		uri := iopkg.Join(w.Dir, "failures_"+stamp+".log")
		if err := w.writeFailures(uri, failures); err != nil {
			w.Log.Error("failure report write failed", zap.String("uri", uri), zap.Error(err))
		} else {
			w.Log.Info("failure report written", zap.String("uri", uri), zap.Int("rows", len(failures)))
		}
	}

	sum := types.Summary{Succeeded: len(successes), Failed: len(failures)}
	w.Log.Info("task creation completed",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed))
	return sum
}

func (w *Writer) writeSuccesses(uri string, successes []types.Outcome) error {
	out, closer, err := createWriter(uri)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(out)
	// The ID column keeps every record findable in exactly one artifact.
	if err := cw.Write([]string{"ID", "Task ID", "Task URL"}); err != nil {
		_ = closer.Close()
		return err
	}
	for _, o := range successes {
		url := strconv.Itoa(o.TaskID)
		if w.TaskURL != nil {
			url = w.TaskURL(o.TaskID)
		}
		if err := cw.Write([]string{o.ID, strconv.Itoa(o.TaskID), url}); err != nil {
			_ = closer.Close()
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = closer.Close()
		return err
	}
	return closer.Close()
}

func (w *Writer) writeFailures(uri string, failures []types.Outcome) error {
	out, closer, err := createWriter(uri)
	if err != nil {
		return err
	}
	for _, o := range failures {
		if _, err := fmt.Fprintf(out, "ID: %s, Error: %s\n", o.ID, o.Error); err != nil {
			_ = closer.Close()
			return err
		}
	}
	return closer.Close()
}
