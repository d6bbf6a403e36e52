package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/graphflow/internal/workflow"
)

// namePrefixRe keeps generated workflow names free of path separators.
var (
	namePrefixRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	backendURLRe = regexp.MustCompile(`^https?://[^\s]+$`)
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Backend  BackendConfig     `yaml:"backend"`
	Registry RegistryConfig    `yaml:"registry"`
	Editor   EditorConfig      `yaml:"editor"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if err := c.Registry.Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if err := c.Editor.Validate(); err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// BackendConfig points editor sessions at the collaborator serving the
// procedure catalog, config schemas, graphs and transformations.
// Timeout 0 means no client timeout.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the backend configuration.
func (c *BackendConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.Required, validation.Match(backendURLRe)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// RegistryConfig configures the reference backend.
type RegistryConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	// SourcesDir holds the YAML graph-source descriptors.
	SourcesDir   string   `yaml:"sources_dir"`
	Infras       []string `yaml:"infras"`
	VertexLabels []string `yaml:"vertex_labels"`
	EdgeLabels   []string `yaml:"edge_labels"`
}

// Validate validates the registry configuration.
func (c *RegistryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SQLitePath, validation.Required),
		validation.Field(&c.SourcesDir, validation.Required),
		validation.Field(&c.Infras, validation.Each(validation.Required)),
	)
}

// EditorConfig holds editor session settings.
//
// FeatureLogicMode false is "workflow mode": a drop that creates a node
// opens its config form right away.
type EditorConfig struct {
	Owner            string `yaml:"owner"`
	NamePrefix       string `yaml:"name_prefix"`
	FeatureLogicMode bool   `yaml:"feature_logic_mode"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Owner, validation.Required),
		validation.Field(&c.NamePrefix, validation.Required, validation.Match(namePrefixRe)),
	)
}

// Serializer returns the workflow serializer these settings describe.
func (c *EditorConfig) Serializer() *workflow.Serializer {
	ser := workflow.NewSerializer()
	ser.Owner = c.Owner
	ser.NamePrefix = c.NamePrefix
	return ser
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Backend: BackendConfig{
			URL: "http://localhost:8080/api",
		},
		Registry: RegistryConfig{
			SQLitePath: "./graphflow.db",
			SourcesDir: "./sources",
			Infras:     []string{},
		},
		Editor: EditorConfig{
			Owner:            workflow.DefaultOwner,
			NamePrefix:       workflow.DefaultNamePrefix,
			FeatureLogicMode: true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
