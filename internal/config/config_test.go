package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apex.yaml")
	yamlBody := `
model: test-model
max_rounds: 5
workspace: /tmp/ws
allowed_users:
  - 111
  - 222
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "test-model" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.MaxRounds != 5 {
		t.Errorf("MaxRounds = %d", cfg.MaxRounds)
	}
	if cfg.Workspace != "/tmp/ws" {
		t.Errorf("Workspace = %q", cfg.Workspace)
	}
	if len(cfg.AllowedUsers) != 2 || cfg.AllowedUsers[0] != 111 {
		t.Errorf("AllowedUsers = %v", cfg.AllowedUsers)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apex.yaml")
	if err := os.WriteFile(path, []byte("model: from-file\nmax_rounds: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("APEX_MODEL", "from-env")
	t.Setenv("APEX_MAX_ROUNDS", "7")
	t.Setenv("APEX_ALLOWED_USERS", "10, 20,30")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "from-env" {
		t.Errorf("Model = %q, want env value", cfg.Model)
	}
	if cfg.MaxRounds != 7 {
		t.Errorf("MaxRounds = %d, want 7", cfg.MaxRounds)
	}
	if len(cfg.AllowedUsers) != 3 || cfg.AllowedUsers[2] != 30 {
		t.Errorf("AllowedUsers = %v", cfg.AllowedUsers)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxRounds != defaultMaxRounds {
		t.Errorf("MaxRounds = %d, want default %d", cfg.MaxRounds, defaultMaxRounds)
	}
	if cfg.ServeAddr != defaultServeAddr {
		t.Errorf("ServeAddr = %q", cfg.ServeAddr)
	}
	if cfg.Workspace == "" {
		t.Error("Workspace default is empty")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apex.yaml")
	if err := os.WriteFile(path, []byte("model: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load must fail on malformed YAML")
	}
}

func TestUserAllowed(t *testing.T) {
	open := &Config{}
	if !open.UserAllowed(42) {
		t.Error("empty allowlist must permit everyone")
	}

	restricted := &Config{AllowedUsers: []int64{1, 2}}
	if !restricted.UserAllowed(2) {
		t.Error("listed user rejected")
	}
	if restricted.UserAllowed(3) {
		t.Error("unlisted user accepted")
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	body := "# comment\nDOTENV_TEST_KEY=hello\nDOTENV_EXISTING=from-file\nnot-a-pair\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DOTENV_EXISTING", "already-set")
	os.Unsetenv("DOTENV_TEST_KEY")
	t.Cleanup(func() { os.Unsetenv("DOTENV_TEST_KEY") })

	LoadDotenv(path)

	if got := os.Getenv("DOTENV_TEST_KEY"); got != "hello" {
		t.Errorf("DOTENV_TEST_KEY = %q", got)
	}
	// Existing vars keep their value.
	if got := os.Getenv("DOTENV_EXISTING"); got != "already-set" {
		t.Errorf("DOTENV_EXISTING = %q", got)
	}
}
