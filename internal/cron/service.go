// Package cron runs in-process background jobs such as the recipe reindex.
//
// Job state is persisted so `pantrychef status` can report the last run:
//
//	{ "version": 1, "jobs": [ { "id":"…", "name":"reindex",
//	    "schedule":{"kind":"cron","expr":"0 3 * * *","tz":"UTC"},
//	    "state":{"nextRunAtMs":…,"lastRunAtMs":…,"lastStatus":"ok","runs":4} } ] }
package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	robfigcron "github.com/robfig/cron/v3"
)

type Schedule struct {
	Kind    string `json:"kind"` // "every" | "cron"
	EveryMs int64  `json:"everyMs,omitempty"`
	Expr    string `json:"expr,omitempty"`
	TZ      string `json:"tz,omitempty"`
}

func (s Schedule) String() string {
	var out string
	if s.Kind == "every" {
		out = "@every " + (time.Duration(s.EveryMs) * time.Millisecond).String()
	} else {
		out = s.Expr
	}
	if s.TZ != "" {
		out += " " + s.TZ
	}
	return out
}

type JobState struct {
	NextRunAtMs *int64 `json:"nextRunAtMs,omitempty"`
	LastRunAtMs *int64 `json:"lastRunAtMs,omitempty"`
	LastStatus  string `json:"lastStatus,omitempty"`
	LastError   string `json:"lastError,omitempty"`
	Runs        int    `json:"runs"`
}

type Job struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Schedule Schedule `json:"schedule"`
	State    JobState `json:"state"`
}

type stateFile struct {
	Version int   `json:"version"`
	Jobs    []Job `json:"jobs"`
}

// JobFunc is the work a job performs when it fires.
type JobFunc func(ctx context.Context) error

var cronParser = robfigcron.NewParser(
	robfigcron.Minute | robfigcron.Hour | robfigcron.Dom | robfigcron.Month | robfigcron.Dow | robfigcron.Descriptor,
)

// ParseSchedule accepts "@every <duration>" or a five-field cron expression.
func ParseSchedule(spec, tz string) (Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Schedule{}, errors.New("empty schedule")
	}
	if rest, ok := strings.CutPrefix(spec, "@every "); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil || d <= 0 {
			return Schedule{}, fmt.Errorf("invalid interval %q", rest)
		}
		return Schedule{Kind: "every", EveryMs: d.Milliseconds()}, nil
	}
	if _, err := cronParser.Parse(spec); err != nil {
		return Schedule{}, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	if tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return Schedule{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
	}
	return Schedule{Kind: "cron", Expr: spec, TZ: tz}, nil
}

// Service schedules registered jobs on a robfig cron runner.
type Service struct {
	statePath string

	mu     sync.Mutex
	jobs   []Job
	fns    map[string]JobFunc
	timers map[string]*time.Timer
	robfig *robfigcron.Cron
	ids    map[string]robfigcron.EntryID
	ctx    context.Context // set by Start
}

// NewService creates a Service. statePath may be empty to skip persistence.
func NewService(statePath string) *Service {
	return &Service{
		statePath: statePath,
		fns:       make(map[string]JobFunc),
		timers:    make(map[string]*time.Timer),
		robfig:    robfigcron.New(),
		ids:       make(map[string]robfigcron.EntryID),
	}
}

// AddJob registers fn under name. Jobs added after Start are armed at once.
// Re-adding a name replaces the previous job but keeps its run history.
func (s *Service) AddJob(name, spec, tz string, fn JobFunc) (string, error) {
	sched, err := ParseSchedule(spec, tz)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job := Job{ID: uuid.NewString()[:8], Name: name, Schedule: sched}
	for i, j := range s.jobs {
		if j.Name == name {
			job.State = j.State
			s.cancelLocked(j.ID)
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			delete(s.fns, j.ID)
			break
		}
	}
	job.State.NextRunAtMs = nextRun(sched, time.Now())
	s.jobs = append(s.jobs, job)
	s.fns[job.ID] = fn
	if s.ctx != nil {
		s.armLocked(job)
	}

	slog.Info("cron: added job", "name", name, "id", job.ID, "kind", sched.Kind)
	return job.ID, nil
}

// RemoveJob removes a job by ID and reports whether it existed.
func (s *Service) RemoveJob(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, j := range s.jobs {
		if j.ID == id {
			s.cancelLocked(id)
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			delete(s.fns, id)
			s.saveLocked()
			return true
		}
	}
	return false
}

// ListJobs returns the registered jobs ordered by next run.
func (s *Service) ListJobs() []Job {
	s.mu.Lock()
	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	s.mu.Unlock()
	sortByNextRun(out)
	return out
}

// Start restores persisted run history, arms every job and blocks until ctx
// is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	if prev, err := LoadState(s.statePath); err != nil {
		slog.Warn("cron: load state failed", "err", err)
	} else {
		s.restoreLocked(prev)
	}
	for _, j := range s.jobs {
		s.armLocked(j)
	}
	s.saveLocked()
	s.mu.Unlock()

	s.robfig.Start()
	slog.Info("cron: started", "jobs", len(s.jobs))

	<-ctx.Done()

	<-s.robfig.Stop().Done()
	s.mu.Lock()
	for id := range s.timers {
		s.cancelLocked(id)
	}
	s.mu.Unlock()
	return ctx.Err()
}

// RunJob executes a job immediately, outside its schedule.
func (s *Service) RunJob(ctx context.Context, id string) bool {
	s.mu.Lock()
	_, ok := s.fns[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.execute(ctx, id)
	return true
}

func (s *Service) restoreLocked(prev []Job) {
	byName := make(map[string]JobState, len(prev))
	for _, j := range prev {
		byName[j.Name] = j.State
	}
	now := time.Now()
	for i := range s.jobs {
		if st, ok := byName[s.jobs[i].Name]; ok {
			s.jobs[i].State = st
		}
		s.jobs[i].State.NextRunAtMs = nextRun(s.jobs[i].Schedule, now)
	}
}

func (s *Service) armLocked(job Job) {
	s.cancelLocked(job.ID)
	ctx := s.ctx

	switch job.Schedule.Kind {
	case "every":
		d := time.Duration(job.Schedule.EveryMs) * time.Millisecond
		var tick func()
		tick = func() {
			s.execute(ctx, job.ID)
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.fns[job.ID]; ok && ctx.Err() == nil {
				s.timers[job.ID] = time.AfterFunc(d, tick)
			}
		}
		s.timers[job.ID] = time.AfterFunc(d, tick)

	case "cron":
		sched, err := cronParser.Parse(job.Schedule.Expr)
		if err != nil {
			slog.Warn("cron: invalid cron expression", "job", job.Name, "expr", job.Schedule.Expr, "err", err)
			return
		}
		id := job.ID
		s.ids[id] = s.robfig.Schedule(
			withLocation(sched, location(job.Schedule.TZ)),
			robfigcron.FuncJob(func() { s.execute(ctx, id) }),
		)
	}
}

func (s *Service) cancelLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	if eid, ok := s.ids[id]; ok {
		s.robfig.Remove(eid)
		delete(s.ids, id)
	}
}

func (s *Service) execute(ctx context.Context, id string) {
	s.mu.Lock()
	fn := s.fns[id]
	s.mu.Unlock()
	if fn == nil {
		return
	}

	start := time.Now()
	startMs := start.UnixMilli()
	err := fn(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.jobs {
		if s.jobs[i].ID != id {
			continue
		}
		st := &s.jobs[i].State
		st.LastRunAtMs = &startMs
		st.Runs++
		st.NextRunAtMs = nextRun(s.jobs[i].Schedule, time.Now())
		if err != nil {
			st.LastStatus, st.LastError = "error", err.Error()
			slog.Error("cron: job failed", "name", s.jobs[i].Name, "err", err)
		} else {
			st.LastStatus, st.LastError = "ok", ""
			slog.Info("cron: job done", "name", s.jobs[i].Name, "elapsed", time.Since(start))
		}
		break
	}
	s.saveLocked()
}

// LoadState reads the persisted job list. A missing file yields no jobs.
func LoadState(path string) ([]Job, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st stateFile
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return st.Jobs, nil
}

func (s *Service) saveLocked() {
	if s.statePath == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.statePath), 0o755); err != nil {
		slog.Warn("cron: mkdir failed", "err", err)
		return
	}
	data, err := json.MarshalIndent(stateFile{Version: 1, Jobs: s.jobs}, "", "  ")
	if err != nil {
		slog.Warn("cron: marshal failed", "err", err)
		return
	}
	if err := os.WriteFile(s.statePath, data, 0o644); err != nil {
		slog.Warn("cron: write failed", "err", err)
	}
}

func nextRun(sched Schedule, now time.Time) *int64 {
	switch sched.Kind {
	case "every":
		if sched.EveryMs > 0 {
			v := now.UnixMilli() + sched.EveryMs
			return &v
		}
	case "cron":
		parsed, err := cronParser.Parse(sched.Expr)
		if err == nil {
			v := parsed.Next(now.In(location(sched.TZ))).UnixMilli()
			return &v
		}
	}
	return nil
}

func sortByNextRun(jobs []Job) {
	const never = int64(^uint64(0) >> 1)
	at := func(j Job) int64 {
		if j.State.NextRunAtMs == nil {
			return never
		}
		return *j.State.NextRunAtMs
	}
	sort.SliceStable(jobs, func(i, k int) bool { return at(jobs[i]) < at(jobs[k]) })
}

func location(tz string) *time.Location {
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			return l
		}
	}
	return time.Local
}

// locSchedule evaluates a schedule in a fixed location.
type locSchedule struct {
	inner robfigcron.Schedule
	loc   *time.Location
}

func (l locSchedule) Next(t time.Time) time.Time {
	return l.inner.Next(t.In(l.loc))
}

func withLocation(s robfigcron.Schedule, loc *time.Location) robfigcron.Schedule {
	return locSchedule{inner: s, loc: loc}
}
