package cmd

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/crystaldolphin/pantrychef/internal/config"
	"github.com/crystaldolphin/pantrychef/internal/config/store"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		l := newLogger(config.LogConfig{Level: tt.level})
		if !l.Enabled(context.Background(), tt.want) {
			t.Errorf("%q: level %v should be enabled", tt.level, tt.want)
		}
		if tt.want > slog.LevelDebug && l.Enabled(context.Background(), tt.want-4) {
			t.Errorf("%q: level below %v should be disabled", tt.level, tt.want)
		}
	}
}

func TestDescribeStore(t *testing.T) {
	tests := []struct {
		sc   store.StoreConfig
		want string
	}{
		{store.StoreConfig{Driver: store.DriverMemory}, "memory"},
		{store.StoreConfig{Driver: store.DriverMemory, Seed: "r.json"}, "memory (seed r.json)"},
		{store.StoreConfig{Driver: store.DriverSQLite, Path: "/tmp/r.db"}, "sqlite /tmp/r.db"},
		{store.StoreConfig{Driver: store.DriverRedis, Addr: "localhost:6379"}, "redis localhost:6379"},
		{store.StoreConfig{Driver: store.DriverFirestore, Collection: "recipes"}, "firestore recipes"},
		{store.StoreConfig{Driver: "mongo"}, "mongo (unknown driver)"},
	}
	for _, tt := range tests {
		cfg := config.DefaultConfig()
		cfg.Store = tt.sc
		if got := describeStore(&cfg); got != tt.want {
			t.Errorf("describeStore(%+v) = %q, want %q", tt.sc, got, tt.want)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"chat", "index", "ingredients", "onboard", "serve", "status"}
	var got []string
	for _, c := range rootCmd.Commands() {
		got = append(got, c.Name())
	}
	joined := strings.Join(got, ",")
	for _, name := range want {
		if !strings.Contains(joined, name) {
			t.Errorf("command %q not registered (have %s)", name, joined)
		}
	}
}
