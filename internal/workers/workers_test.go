package workers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakeWorker struct {
	name     string
	startErr error
	log      *[]string
}

func (w fakeWorker) Start() error {
	if w.startErr != nil {
		return w.startErr
	}
	*w.log = append(*w.log, "start "+w.name)
	return nil
}

func (w fakeWorker) Stop() { *w.log = append(*w.log, "stop "+w.name) }

func (w fakeWorker) Name() string { return w.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManagerStopsStartedOnFailure(t *testing.T) {
	var log []string
	m := NewManager(discardLogger(),
		fakeWorker{name: "a", log: &log},
		fakeWorker{name: "b", log: &log},
		fakeWorker{name: "c", log: &log, startErr: errors.New("boom")},
	)

	if err := m.Start(); err == nil {
		t.Fatal("Start() error = nil, want error")
	}

	want := []string{"start a", "start b", "stop b", "stop a"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestJobRecoversAndSetsDeadline(t *testing.T) {
	var hadDeadline bool
	Job(discardLogger(), "deadline", time.Minute, func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	})()
	if !hadDeadline {
		t.Error("job context has no deadline")
	}

	// не должно паниковать
	Job(discardLogger(), "panics", time.Minute, func(context.Context) error {
		panic("boom")
	})()
}
