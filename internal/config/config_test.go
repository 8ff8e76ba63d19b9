package config

import "testing"

func TestLoadAppliesDefaults(t *testing.T) {
	cfg := Load()

	if cfg.BindAddr == "" {
		t.Error("expected a non-empty default bind address")
	}
	if cfg.Shell == "" {
		t.Error("expected a non-empty default shell")
	}
	if len(cfg.ObserverBackoff) != 3 {
		t.Errorf("expected 3 backoff steps, got %d", len(cfg.ObserverBackoff))
	}
	if cfg.ObserverMaxRestarts <= 0 {
		t.Error("expected a positive default restart cap")
	}
	if cfg.PTYOutputBufferSize <= 0 {
		t.Error("expected a positive default pty output buffer size")
	}
}
