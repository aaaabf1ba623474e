package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubArchiver struct {
	cutoffs []time.Time
	n       int64
	err     error
}

func (s *stubArchiver) ArchiveAuctions(_ context.Context, before time.Time) (int64, error) {
	s.cutoffs = append(s.cutoffs, before)
	return s.n, s.err
}

func TestArchiverRunUsesRetentionCutoff(t *testing.T) {
	stub := &stubArchiver{n: 4}
	a := NewArchiver(stub, 30, discardLogger())
	a.now = func() time.Time { return time.Date(2026, 3, 31, 3, 0, 0, 0, time.UTC) }

	n, err := a.Run(context.Background())
	if err != nil || n != 4 {
		t.Fatalf("Run = %d, %v", n, err)
	}
	if want := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC); !stub.cutoffs[0].Equal(want) {
		t.Errorf("cutoff = %v, expected %v", stub.cutoffs[0], want)
	}
}

func TestArchiverRunWrapsError(t *testing.T) {
	boom := errors.New("bucket gone")
	a := NewArchiver(&stubArchiver{err: boom}, 30, discardLogger())
	if _, err := a.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Run error = %v, expected to wrap %v", err, boom)
	}
}

func TestArchiverRunCronRejectsBadExpression(t *testing.T) {
	a := NewArchiver(&stubArchiver{}, 30, discardLogger())
	if err := a.RunCron(context.Background(), "not a cron"); err == nil {
		t.Error("expected parse error")
	}
}

func TestArchiverRunCronStopsOnCancel(t *testing.T) {
	a := NewArchiver(&stubArchiver{}, 30, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.RunCron(ctx, "0 3 1 * *"); !errors.Is(err, context.Canceled) {
		t.Errorf("RunCron = %v, expected context.Canceled", err)
	}
}
