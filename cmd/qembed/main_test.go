package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/qembed/internal/config"
)

func defaultTestOptions() embedOptions {
	return embedOptions{
		format:    FormatVector,
		backend:   BackendONNX,
		chunkSize: 32,
	}
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		mutate  func(*embedOptions)
		wantErr string
	}{
		{
			name: "single query ok",
			args: []string{"covid", "symptoms"},
		},
		{
			name:   "batch ok",
			mutate: func(o *embedOptions) { o.batchFile = "queries.txt" },
		},
		{
			name:    "neither query nor batch",
			wantErr: "provide query text or use --batch",
		},
		{
			name:    "both query and batch",
			args:    []string{"covid"},
			mutate:  func(o *embedOptions) { o.batchFile = "queries.txt" },
			wantErr: "cannot use both",
		},
		{
			name:    "bad format",
			args:    []string{"q"},
			mutate:  func(o *embedOptions) { o.format = "json" },
			wantErr: "invalid format",
		},
		{
			name:   "table format ok",
			args:   []string{"q"},
			mutate: func(o *embedOptions) { o.format = FormatTable },
		},
		{
			name:    "bad backend",
			args:    []string{"q"},
			mutate:  func(o *embedOptions) { o.backend = "openai" },
			wantErr: "invalid backend",
		},
		{
			name:    "bad device",
			args:    []string{"q"},
			mutate:  func(o *embedOptions) { o.device = "tpu" },
			wantErr: "unsupported device",
		},
		{
			name:   "gpu device ok",
			args:   []string{"q"},
			mutate: func(o *embedOptions) { o.device = "gpu" },
		},
		{
			name:    "zero chunk size",
			args:    []string{"q"},
			mutate:  func(o *embedOptions) { o.chunkSize = 0 },
			wantErr: "chunk size",
		},
		{
			name:    "output without batch",
			args:    []string{"q"},
			mutate:  func(o *embedOptions) { o.outputFile = "out.csv" },
			wantErr: "--output requires --batch",
		},
		{
			name: "output with batch ok",
			mutate: func(o *embedOptions) {
				o.batchFile = "queries.txt"
				o.outputFile = "out.csv"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultTestOptions()
			if tt.mutate != nil {
				tt.mutate(&o)
			}

			err := validateOptions(&o, tt.args)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validateOptions() error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("validateOptions() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validateOptions() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuildProvider_CorruptConfig(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	config.ResetCache()
	t.Cleanup(config.ResetCache)

	dir := filepath.Join(configHome, config.ConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte("models_dir: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}

	o := defaultTestOptions()
	_, cleanup, err := buildProvider(context.Background(), &o, true)
	defer cleanup()
	if err == nil {
		t.Fatal("buildProvider() error = nil, want config parse error")
	}
	if !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("buildProvider() error = %q, want it to mention parsing config", err)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "", "third"); got != "third" {
		t.Errorf("firstNonEmpty() = %q, want third", got)
	}
	if got := firstNonEmpty("first", "second"); got != "first" {
		t.Errorf("firstNonEmpty() = %q, want first", got)
	}
	if got := firstNonEmpty(); got != "" {
		t.Errorf("firstNonEmpty() = %q, want empty", got)
	}
}
