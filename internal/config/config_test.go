package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig pins the defaults so that changing one is a deliberate act.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default MaxPages is 50", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxPages != 50 {
			t.Errorf("expected MaxPages to be 50, got %d", cfg.MaxPages)
		}
	})

	t.Run("default Timeout is 5 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 5*time.Second {
			t.Errorf("expected Timeout to be 5s, got %v", cfg.Timeout)
		}
	})

	t.Run("default Workers is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.Workers != 1 {
			t.Errorf("expected Workers to be 1, got %d", cfg.Workers)
		}
	})

	t.Run("seeds are crawled one at a time by default", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != DefaultBatchSize {
			t.Errorf("expected BatchSize %d, got %d", DefaultBatchSize, cfg.BatchSize)
		}
	})

	t.Run("redirects are followed by default", func(t *testing.T) {
		t.Parallel()
		if !cfg.FollowRedirects {
			t.Error("expected FollowRedirects to be true")
		}
	})

	t.Run("history is saved under the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
	})

	t.Run("defaults validate once a seed is set", func(t *testing.T) {
		t.Parallel()
		c := NewConfig()
		c.Seeds = []string{"https://example.com/"}
		if err := c.Validate(); err != nil {
			t.Errorf("expected defaults to be valid, got %v", err)
		}
	})
}

// TestConfigValidate tests one validation rule per case.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		return &Config{
			Seeds:     []string{"https://example.com/"},
			MaxPages:  10,
			Timeout:   time.Second,
			Workers:   1,
			BatchSize: 1,
		}
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"valid config returns nil", func(*Config) {}, nil},
		{"missing seed", func(c *Config) { c.Seeds = nil }, ErrNoSeed},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"zero max pages", func(c *Config) { c.MaxPages = 0 }, ErrInvalidMaxPages},
		{"negative max pages", func(c *Config) { c.MaxPages = -3 }, ErrInvalidMaxPages},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"zero workers", func(c *Config) { c.Workers = 0 }, ErrInvalidWorkers},
		{"too many workers", func(c *Config) { c.Workers = MaxWorkers + 1 }, ErrInvalidWorkers},
		{"max workers accepted", func(c *Config) { c.Workers = MaxWorkers }, nil},
		{"json and markdown", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"history without dir", func(c *Config) { c.SaveToDB = true }, ErrNoDBDir},
		{"history with dir", func(c *Config) { c.SaveToDB, c.DBDir = true, "/tmp/x" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigApplySite(t *testing.T) {
	t.Parallel()

	t.Run("site budget applies when flag not given", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ApplySite(SiteConfig{MaxPages: 200, UserAgent: "custom/1"}, false)
		if cfg.MaxPages != 200 {
			t.Errorf("expected MaxPages 200, got %d", cfg.MaxPages)
		}
		if cfg.UserAgent != "custom/1" {
			t.Errorf("expected custom user agent, got %q", cfg.UserAgent)
		}
	})

	t.Run("explicit flag wins", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.MaxPages = 7
		cfg.ApplySite(SiteConfig{MaxPages: 200}, true)
		if cfg.MaxPages != 7 {
			t.Errorf("expected MaxPages 7, got %d", cfg.MaxPages)
		}
	})

	t.Run("empty site changes nothing", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ApplySite(SiteConfig{}, false)
		if cfg.MaxPages != DefaultMaxPages || cfg.UserAgent != DefaultUserAgent {
			t.Errorf("unexpected change: %+v", cfg)
		}
	})
}

// TestFileGetSiteConfig tests the GetSiteConfig method.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	t.Run("returns defaults when site not found", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{MaxPages: 30, Cookie: "default_cookie=abc"},
			Sites:    map[string]SiteConfig{},
		}

		cfg := file.GetSiteConfig("unknown.example")
		if cfg.MaxPages != 30 {
			t.Errorf("expected max pages 30, got %d", cfg.MaxPages)
		}
		if cfg.Cookie != "default_cookie=abc" {
			t.Errorf("expected default cookie, got %q", cfg.Cookie)
		}
	})

	t.Run("returns site-specific config", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{MaxPages: 30, Cookie: "default_cookie=abc"},
			Sites: map[string]SiteConfig{
				"example.com": {MaxPages: 100, Cookie: "session=xyz"},
			},
		}

		cfg := file.GetSiteConfig("example.com")
		if cfg.MaxPages != 100 {
			t.Errorf("expected max pages 100, got %d", cfg.MaxPages)
		}
		if cfg.Cookie != "session=xyz" {
			t.Errorf("expected site cookie, got %q", cfg.Cookie)
		}
	})

	t.Run("host lookup is case-insensitive", func(t *testing.T) {
		t.Parallel()

		file := &File{Sites: map[string]SiteConfig{"example.com": {Cookie: "a=b"}}}
		if got := file.GetSiteConfig("Example.COM").Cookie; got != "a=b" {
			t.Errorf("expected site cookie, got %q", got)
		}
	})

	t.Run("merges headers without touching defaults", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{
				Headers: map[string]string{"X-Default": "value1", "Authorization": "default-token"},
			},
			Sites: map[string]SiteConfig{
				"example.com": {
					Headers: map[string]string{"X-Custom": "value2", "Authorization": "site-token"},
				},
			},
		}

		cfg := file.GetSiteConfig("example.com")
		if cfg.Headers["X-Default"] != "value1" || cfg.Headers["X-Custom"] != "value2" {
			t.Errorf("expected merged headers, got %v", cfg.Headers)
		}
		if cfg.Headers["Authorization"] != "site-token" {
			t.Errorf("expected site token to override, got %q", cfg.Headers["Authorization"])
		}
		if file.Defaults.Headers["Authorization"] != "default-token" {
			t.Error("defaults must not be modified by a lookup")
		}
		if _, leaked := file.Defaults.Headers["X-Custom"]; leaked {
			t.Error("site header leaked into defaults")
		}
	})

	t.Run("site patterns override defaults", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{
				IgnorePatterns: []string{"/default/*"},
				FollowPatterns: []string{"/default-follow/*"},
			},
			Sites: map[string]SiteConfig{
				"example.com": {
					IgnorePatterns: []string{"/admin/*"},
					FollowPatterns: []string{"/api/*"},
				},
			},
		}

		cfg := file.GetSiteConfig("example.com")
		if len(cfg.IgnorePatterns) != 1 || cfg.IgnorePatterns[0] != "/admin/*" {
			t.Errorf("expected site ignore patterns, got %v", cfg.IgnorePatterns)
		}
		if len(cfg.FollowPatterns) != 1 || cfg.FollowPatterns[0] != "/api/*" {
			t.Errorf("expected site follow patterns, got %v", cfg.FollowPatterns)
		}
	})

	t.Run("zero values fall back to defaults", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{MaxPages: 30, Cookie: "default=abc"},
			Sites:    map[string]SiteConfig{"example.com": {UserAgent: "x"}},
		}

		cfg := file.GetSiteConfig("example.com")
		if cfg.MaxPages != 30 || cfg.Cookie != "default=abc" {
			t.Errorf("expected defaults to remain, got %+v", cfg)
		}
	})

	t.Run("nil file", func(t *testing.T) {
		t.Parallel()

		var file *File
		cfg := file.GetSiteConfig("any.example")
		if cfg.MaxPages != 0 || cfg.Headers != nil {
			t.Errorf("expected zero config, got %+v", cfg)
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.mailcrawl")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".mailcrawl")
		content := `defaults:
  maxPages: 20
  cookie: "default=abc"
sites:
  Example.com:
    maxPages: 100
    cookie: "session=xyz"
    userAgent: "custom/2"
    headers:
      Authorization: "Bearer token"
    ignorePatterns:
      - "/admin/*"
    followPatterns:
      - "/api/**"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Defaults.MaxPages != 20 {
			t.Errorf("expected default max pages 20, got %d", cfg.Defaults.MaxPages)
		}

		site, ok := cfg.Sites["example.com"]
		if !ok {
			t.Fatalf("expected lowercased example.com in sites, got %v", cfg.Sites)
		}
		if site.MaxPages != 100 || site.UserAgent != "custom/2" {
			t.Errorf("unexpected site config: %+v", site)
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Errorf("expected Authorization header")
		}
		if len(site.IgnorePatterns) != 1 || len(site.FollowPatterns) != 1 {
			t.Errorf("unexpected patterns: %+v", site)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".mailcrawl")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfigFile(configPath)
		if err == nil {
			t.Fatal("expected error for invalid YAML")
		}
		if !strings.Contains(err.Error(), configPath) {
			t.Errorf("expected error to name the file, got %v", err)
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".mailcrawl")
		if err := os.WriteFile(configPath, []byte("defaults:\n  maxPages: 5\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("explicit missing path is an error", func(t *testing.T) {
		t.Parallel()

		_, err := Load("/nonexistent/path/.mailcrawl")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("explicit path is loaded", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "crawl.yaml")
		content := "sites:\n  example.com:\n    maxPages: 3\n"
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		file, err := Load(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if file.GetSiteConfig("example.com").MaxPages != 3 {
			t.Errorf("unexpected file: %+v", file)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
	} {
		if dir == "" {
			t.Errorf("expected non-empty XDG %s dir", name)
		}
		if filepath.Base(dir) != AppName {
			t.Errorf("expected XDG %s dir to end with %q, got %q", name, AppName, dir)
		}
	}
}
