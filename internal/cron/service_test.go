package cron

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.json")
	return NewService(path), path
}

// startService starts s in the background and returns a stop func that
// waits for Start to return.
func startService(t *testing.T, s *Service) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Start(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	return func() {
		cancel()
		<-done
	}
}

func noop(context.Context) error { return nil }

// ─── ParseSchedule ─────────────────────────────────────────────────────────

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		spec    string
		tz      string
		kind    string
		wantErr bool
	}{
		{"@every 1h", "", "every", false},
		{"@every 250ms", "", "every", false},
		{"0 3 * * *", "UTC", "cron", false},
		{"@daily", "", "cron", false},
		{"@every soon", "", "", true},
		{"@every -5s", "", "", true},
		{"not a schedule", "", "", true},
		{"0 3 * * *", "Mars/Olympus", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSchedule(tt.spec, tt.tz)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSchedule(%q, %q) err = %v, wantErr %v", tt.spec, tt.tz, err, tt.wantErr)
			continue
		}
		if got.Kind != tt.kind {
			t.Errorf("ParseSchedule(%q) kind = %q, want %q", tt.spec, got.Kind, tt.kind)
		}
	}
}

// ─── AddJob / RemoveJob ────────────────────────────────────────────────────

func TestAddJob_ComputesNextRun(t *testing.T) {
	s, _ := newTestService(t)
	if _, err := s.AddJob("reindex", "0 3 * * *", "UTC", noop); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	jobs := s.ListJobs()
	if len(jobs) != 1 || jobs[0].State.NextRunAtMs == nil {
		t.Fatalf("expected one job with a next run, got %+v", jobs)
	}
	next := time.UnixMilli(*jobs[0].State.NextRunAtMs).UTC()
	if next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("next run = %v, want 03:00 UTC", next)
	}
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s, _ := newTestService(t)
	if _, err := s.AddJob("bad", "every day", "", noop); err == nil {
		t.Fatal("expected error")
	}
	if len(s.ListJobs()) != 0 {
		t.Error("invalid job must not be registered")
	}
}

func TestAddJob_SameNameReplaces(t *testing.T) {
	s, _ := newTestService(t)
	first, _ := s.AddJob("reindex", "@every 1h", "", noop)
	second, _ := s.AddJob("reindex", "@every 2h", "", noop)
	jobs := s.ListJobs()
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].ID != second || first == second {
		t.Errorf("expected replacement job %q, got %q", second, jobs[0].ID)
	}
	if jobs[0].Schedule.EveryMs != (2 * time.Hour).Milliseconds() {
		t.Errorf("everyMs = %d", jobs[0].Schedule.EveryMs)
	}
}

func TestRemoveJob(t *testing.T) {
	s, _ := newTestService(t)
	id, _ := s.AddJob("reindex", "@every 1h", "", noop)
	if !s.RemoveJob(id) {
		t.Fatal("expected RemoveJob to find the job")
	}
	if s.RemoveJob(id) {
		t.Error("second RemoveJob should report false")
	}
	if len(s.ListJobs()) != 0 {
		t.Error("job still listed")
	}
}

func TestListJobs_SortedByNextRun(t *testing.T) {
	s, _ := newTestService(t)
	_, _ = s.AddJob("slow", "@every 10h", "", noop)
	_, _ = s.AddJob("fast", "@every 1m", "", noop)
	jobs := s.ListJobs()
	if jobs[0].Name != "fast" || jobs[1].Name != "slow" {
		t.Errorf("order = %s, %s", jobs[0].Name, jobs[1].Name)
	}
}

// ─── Execution ─────────────────────────────────────────────────────────────

func TestRunJob_RecordsState(t *testing.T) {
	s, path := newTestService(t)
	var calls atomic.Int32
	okID, _ := s.AddJob("ok", "@every 1h", "", func(context.Context) error {
		calls.Add(1)
		return nil
	})
	failID, _ := s.AddJob("fail", "@every 1h", "", func(context.Context) error {
		return errors.New("vector store unreachable")
	})

	if !s.RunJob(context.Background(), okID) || !s.RunJob(context.Background(), failID) {
		t.Fatal("RunJob should find both jobs")
	}
	if s.RunJob(context.Background(), "missing") {
		t.Error("RunJob on unknown id should report false")
	}
	if calls.Load() != 1 {
		t.Errorf("job ran %d times", calls.Load())
	}

	saved, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	states := map[string]JobState{}
	for _, j := range saved {
		states[j.Name] = j.State
	}
	if st := states["ok"]; st.LastStatus != "ok" || st.Runs != 1 || st.LastRunAtMs == nil {
		t.Errorf("ok state = %+v", st)
	}
	if st := states["fail"]; st.LastStatus != "error" || st.LastError != "vector store unreachable" {
		t.Errorf("fail state = %+v", st)
	}
}

func TestEveryJob_FiresAfterInterval(t *testing.T) {
	s, _ := newTestService(t)
	var count atomic.Int32
	_, _ = s.AddJob("tick", "@every 50ms", "", func(context.Context) error {
		count.Add(1)
		return nil
	})

	stop := startService(t, s)
	time.Sleep(180 * time.Millisecond)
	stop()

	if n := count.Load(); n < 2 {
		t.Errorf("expected at least 2 runs, got %d", n)
	}
}

func TestStart_RestoresRunHistory(t *testing.T) {
	s, path := newTestService(t)
	id, _ := s.AddJob("reindex", "@every 1h", "", noop)
	s.RunJob(context.Background(), id)

	restarted := NewService(path)
	_, _ = restarted.AddJob("reindex", "@every 1h", "", noop)
	stop := startService(t, restarted)
	stop()

	jobs := restarted.ListJobs()
	if len(jobs) != 1 || jobs[0].State.Runs != 1 || jobs[0].State.LastStatus != "ok" {
		t.Errorf("history not restored: %+v", jobs)
	}
}

func TestLoadState_MissingFile(t *testing.T) {
	jobs, err := LoadState(filepath.Join(t.TempDir(), "none.json"))
	if err != nil || jobs != nil {
		t.Errorf("LoadState = %v, %v", jobs, err)
	}
}
