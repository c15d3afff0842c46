package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hooknotify/pkg/logx"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: debug
  console: true
storage:
  driver: sqlite
  path: /tmp/engine.db
  busy_timeout: 5s
debounce:
  dir: /tmp/markers
telegram:
  enabled: true
  token: "123:abc"
  chat_id: "42"
desktop:
  enabled: true
server:
  addr: "127.0.0.1:4100"
  read_timeout: 10s
`)
	m := NewManager(path, logx.Nop())
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "/tmp/engine.db" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Telegram.ChatID != "42" {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Server == nil || cfg.Server.Addr != "127.0.0.1:4100" {
		t.Fatalf("server = %+v", cfg.Server)
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"logging": {"level": "info"},
		"storage": {"driver": "file", "path": "/tmp/engine.db"},
		"debounce": {"dir": ""},
		"telegram": {"enabled": false},
		"desktop": {"enabled": false}
	}`)
	m := NewManager(path, logx.Nop())
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Storage.Driver != "file" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: info
  verbosity: high
`)
	m := NewManager(path, logx.Nop())
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"logging":{"level":"info"}}{"extra":true}`)
	m := NewManager(path, logx.Nop())
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestParseExpandsCredentialEnv(t *testing.T) {
	t.Setenv("HOOKNOTIFY_TEST_TOKEN", "999:secret")
	t.Setenv("HOOKNOTIFY_TEST_CHAT", "4242")

	path := writeConfig(t, "config.yaml", `
telegram:
  enabled: true
  token: "${HOOKNOTIFY_TEST_TOKEN}"
  chat_id: "${HOOKNOTIFY_TEST_CHAT}"
  group_id: "${HOOKNOTIFY_TEST_UNSET_VAR}"
`)
	m := NewManager(path, logx.Nop())
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "999:secret" {
		t.Fatalf("Token = %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.ChatID != "4242" {
		t.Fatalf("ChatID = %q", cfg.Telegram.ChatID)
	}
	// Unset variables read as absent, which disables the channel target.
	if cfg.Telegram.GroupID != "" {
		t.Fatalf("GroupID = %q, want empty", cfg.Telegram.GroupID)
	}
}

func TestLoadMissingExplicitPathFails(t *testing.T) {
	t.Parallel()
	m := NewManager(filepath.Join(t.TempDir(), "absent.yaml"), logx.Nop())
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestExpandEnvPattern(t *testing.T) {
	t.Setenv("HOOKNOTIFY_TEST_A", "val")
	tests := []struct{ in, want string }{
		{"${HOOKNOTIFY_TEST_A}", "val"},
		{"x-${HOOKNOTIFY_TEST_A}-y", "x-val-y"},
		{"$HOOKNOTIFY_TEST_A", "$HOOKNOTIFY_TEST_A"}, // bare form not expanded
		{"${HOOKNOTIFY_TEST_MISSING}", ""},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := expandEnv(tt.in); got != tt.want {
			t.Fatalf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationField("x", " 5s ")
	if err != nil || d != 5*time.Second {
		t.Fatalf("got (%v, %v)", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: got (%v, %v)", d, err)
	}
	if _, err := ParseDurationField("x", "five seconds"); err == nil {
		t.Fatal("expected error for garbage duration")
	}

	d, err = ParseDurationOrDefault("x", "", 7*time.Second)
	if err != nil || d != 7*time.Second {
		t.Fatalf("default: got (%v, %v)", d, err)
	}
}
