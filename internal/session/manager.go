// Package session persists CLI chat conversations as JSONL files.
//
// File format:
//
//	Line 1:  {"_type":"metadata","key":"…","model":"gpt-4o-mini",
//	           "createdAt":"…","updatedAt":"…"}
//	Line 2+: one schema.Message JSON object per line
package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// Manager loads and saves sessions under one directory.
type Manager struct {
	dir   string
	cache sync.Map // key → *Session
}

type metadata struct {
	Type      string `json:"_type"`
	Key       string `json:"key"`
	Model     string `json:"model,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Info summarises one saved session.
type Info struct {
	Key       string
	Model     string
	UpdatedAt string
	Path      string
}

// NewManager creates a Manager rooted at dir, creating it if necessary.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// GetOrCreate returns the cached session for key, loading it from disk if
// needed, or a new empty one.
func (m *Manager) GetOrCreate(key string) *Session {
	if v, ok := m.cache.Load(key); ok {
		return v.(*Session)
	}
	s := m.load(key)
	if s == nil {
		now := time.Now()
		s = &Session{Key: key, CreatedAt: now, UpdatedAt: now}
	}
	actual, _ := m.cache.LoadOrStore(key, s)
	return actual.(*Session)
}

// Save writes the session to disk.
func (m *Manager) Save(s *Session) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	s.mu.Lock()
	meta := metadata{
		Type:      "metadata",
		Key:       s.Key,
		Model:     s.Model,
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	msgs := make([]schema.Message, len(s.Messages))
	copy(msgs, s.Messages)
	s.mu.Unlock()

	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	for _, msg := range msgs {
		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
	}

	path := m.path(s.Key)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write session %s: %w", path, err)
	}
	m.cache.Store(s.Key, s)
	return nil
}

// Delete removes a session from disk and cache. A missing file is not an
// error.
func (m *Manager) Delete(key string) error {
	m.cache.Delete(key)
	if err := os.Remove(m.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	return nil
}

// List returns every saved session, newest first.
func (m *Manager) List() []Info {
	paths, _ := filepath.Glob(filepath.Join(m.dir, "*.jsonl"))
	var out []Info
	for _, path := range paths {
		meta, ok := readMetadata(path)
		if !ok {
			continue
		}
		key := meta.Key
		if key == "" {
			key = strings.TrimSuffix(filepath.Base(path), ".jsonl")
		}
		out = append(out, Info{Key: key, Model: meta.Model, UpdatedAt: meta.UpdatedAt, Path: path})
	}
	// RFC 3339 UTC timestamps sort lexicographically.
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out
}

func readMetadata(path string) (metadata, bool) {
	f, err := os.Open(path)
	if err != nil {
		return metadata{}, false
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	if !scanner.Scan() {
		return metadata{}, false
	}
	var meta metadata
	if json.Unmarshal(scanner.Bytes(), &meta) != nil || meta.Type != "metadata" {
		return metadata{}, false
	}
	return meta, true
}

func (m *Manager) path(key string) string {
	return filepath.Join(m.dir, safeFilename(key)+".jsonl")
}

// safeFilename replaces filesystem-unsafe characters with underscores.
func safeFilename(name string) string {
	const unsafe = `<>:"/\|?*`
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(unsafe, r) {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func (m *Manager) load(key string) *Session {
	f, err := os.Open(m.path(key))
	if err != nil {
		return nil
	}
	defer f.Close()

	s := &Session{Key: key}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<20) // 1 MB per line
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if bytes.Contains(line, []byte(`"_type":"metadata"`)) {
			var meta metadata
			if err := json.Unmarshal(line, &meta); err == nil {
				s.Model = meta.Model
				s.CreatedAt, _ = time.Parse(time.RFC3339, meta.CreatedAt)
			}
			continue
		}
		var msg schema.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			slog.Warn("skipping malformed session line", "key", key, "err", err)
			continue
		}
		if msg.Role != schema.RoleSystem {
			s.Messages = append(s.Messages, msg)
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("error reading session file", "key", key, "err", err)
		return nil
	}

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.UpdatedAt = time.Now()
	return s
}
