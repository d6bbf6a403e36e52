package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/graphflow/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	if !cfg.Editor.FeatureLogicMode {
		t.Error("feature logic mode should default to true")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestBackendConfig_RejectsBadURL(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Backend.URL = "localhost:8080"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "backend") {
		t.Fatalf("err = %v, want backend error", err)
	}
}

func TestEditorConfig_RejectsSlashInPrefix(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Editor.NamePrefix = "a/b"
	if err := cfg.Validate(); err == nil {
		t.Fatal("prefix with '/' should fail")
	}
}

func TestEditorConfig_Serializer(t *testing.T) {
	cfg := EditorConfig{Owner: "team", NamePrefix: "FLOW"}
	ser := cfg.Serializer()
	ser.Now = func() time.Time { return time.UnixMilli(42) }
	if got := ser.DefaultName(); got != "FLOW42" {
		t.Errorf("DefaultName = %q", got)
	}
	if ser.Owner != "team" {
		t.Errorf("Owner = %q", ser.Owner)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("GRAPHFLOW_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  http:
    port: 9090
backend:
  url: http://backend:8080/api
  timeout: 5s
registry:
  sqlite_path: /tmp/graphflow.db
  sources_dir: /tmp/sources
  infras: [redis, neo4j]
editor:
  feature_logic_mode: false
auth:
  mode: token
  token: ${GRAPHFLOW_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.Token != "s3cret" || cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("auth = %+v, backend = %+v", cfg.Auth, cfg.Backend)
	}
	if cfg.Editor.FeatureLogicMode || cfg.Editor.Owner != "Ofnil" {
		t.Errorf("editor = %+v", cfg.Editor)
	}
	if len(cfg.Registry.Infras) != 2 || cfg.App.HTTP.Address() != ":9090" {
		t.Errorf("registry = %+v, port = %d", cfg.Registry, cfg.App.HTTP.Port)
	}
}
