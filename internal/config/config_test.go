package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	// Set required env vars for all subtests
	cleanup := setEnvs(t, map[string]string{
		"STT_API_KEY": "test-key",
	})
	defer cleanup()

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":8080" {
			t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
		if cfg.DataDir != "./data" {
			t.Errorf("DataDir = %q, want ./data", cfg.DataDir)
		}
		if cfg.MaxChunkMB != 25 {
			t.Errorf("MaxChunkMB = %d, want 25", cfg.MaxChunkMB)
		}
		if cfg.MaxChunkBytes() != 25*1024*1024 {
			t.Errorf("MaxChunkBytes = %d, want %d", cfg.MaxChunkBytes(), 25*1024*1024)
		}
		if cfg.ChunkFailurePolicy != "strict" {
			t.Errorf("ChunkFailurePolicy = %q, want strict", cfg.ChunkFailurePolicy)
		}
		if cfg.Workers != 2 {
			t.Errorf("Workers = %d, want 2", cfg.Workers)
		}
		if cfg.S3.Enabled() {
			t.Error("S3.Enabled() = true with no bucket configured")
		}
	})

	t.Run("cli_overrides_take_priority", func(t *testing.T) {
		cfg, err := Load(Overrides{
			EnvFile:  "nonexistent.env",
			HTTPAddr: ":9090",
			LogLevel: "debug",
			DataDir:  "/tmp/vt-data",
			InboxDir: "/tmp/inbox",
		})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":9090" {
			t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
		if cfg.DataDir != "/tmp/vt-data" {
			t.Errorf("DataDir = %q, want /tmp/vt-data", cfg.DataDir)
		}
		if cfg.InboxDir != "/tmp/inbox" {
			t.Errorf("InboxDir = %q, want /tmp/inbox", cfg.InboxDir)
		}
	})

	t.Run("env_vars_read", func(t *testing.T) {
		cleanup := setEnvs(t, map[string]string{
			"CHUNK_FAILURE_POLICY": "tolerant",
			"MAX_CHUNK_MB":         "20",
		})
		defer cleanup()

		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.ChunkFailurePolicy != "tolerant" {
			t.Errorf("ChunkFailurePolicy = %q, want tolerant", cfg.ChunkFailurePolicy)
		}
		if cfg.MaxChunkMB != 20 {
			t.Errorf("MaxChunkMB = %d, want 20", cfg.MaxChunkMB)
		}
	})

	t.Run("invalid_policy_rejected", func(t *testing.T) {
		cleanup := setEnvs(t, map[string]string{"CHUNK_FAILURE_POLICY": "lenient"})
		defer cleanup()

		if _, err := Load(Overrides{EnvFile: "nonexistent.env"}); err == nil {
			t.Error("expected error for invalid chunk failure policy")
		}
	})

	t.Run("invalid_chunk_size_rejected", func(t *testing.T) {
		cleanup := setEnvs(t, map[string]string{"MAX_CHUNK_MB": "0"})
		defer cleanup()

		if _, err := Load(Overrides{EnvFile: "nonexistent.env"}); err == nil {
			t.Error("expected error for zero chunk size")
		}
	})
}

func TestLoadMissingRequired(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{"STT_API_KEY": ""})
	defer cleanup()
	os.Unsetenv("STT_API_KEY")

	_, err := Load(Overrides{EnvFile: "nonexistent.env"})
	if err == nil {
		t.Error("expected error when required env vars are missing")
	}
}

// setEnvs sets environment variables and returns a cleanup function.
func setEnvs(t *testing.T, envs map[string]string) func() {
	t.Helper()
	originals := make(map[string]string)
	unset := make([]string, 0)

	for k, v := range envs {
		if orig, ok := os.LookupEnv(k); ok {
			originals[k] = orig
		} else {
			unset = append(unset, k)
		}
		os.Setenv(k, v)
	}

	return func() {
		for k, v := range originals {
			os.Setenv(k, v)
		}
		for _, k := range unset {
			os.Unsetenv(k)
		}
	}
}
