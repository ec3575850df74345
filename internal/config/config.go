package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultMaxPages is the page budget: the number of successfully
	// processed pages after which a crawl stops.
	DefaultMaxPages = 50

	// DefaultTimeout bounds each individual fetch, not the whole crawl.
	DefaultTimeout = 5 * time.Second

	// DefaultWorkers is the number of concurrent fetches. With one worker the
	// crawl visits pages in strict breadth-first order.
	DefaultWorkers = 1

	// AppName is the application name used for XDG directory paths.
	AppName = "mailcrawl"

	// DefaultUserAgent identifies mailcrawl in HTTP requests.
	DefaultUserAgent = "mailcrawl/1.0 (+https://github.com/nao1215/mailcrawl)"

	// DefaultMaxBodySize limits how much of each response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// MaxWorkers caps the worker count accepted from flags or config.
	MaxWorkers = 64

	// DefaultBatchSize is the number of seeds crawled concurrently.
	DefaultBatchSize = 1
)

// Config holds all configuration options for mailcrawl.
// It is populated from CLI flags and the optional config file, then passed
// down explicitly; nothing reads global state.
type Config struct {
	// Seeds are the URLs to crawl, one independent crawl per seed. Each must
	// carry a scheme and host.
	Seeds []string

	// MaxPages is the page budget. Failed pages do not count against it.
	MaxPages int

	// Timeout is the per-fetch timeout.
	Timeout time.Duration

	// Workers is the number of pages fetched concurrently within one crawl.
	Workers int

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// Verbose enables debug logging. When false only warnings and errors
	// are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .mailcrawl is searched in the current directory and then in
	// the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-host settings loaded from the config file.
	SiteConfigs *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output path for the report. Empty means stdout.
	// Parent directories are created as needed.
	ReportFile string

	// DBDir is the directory holding the SQLite history database.
	// Defaults to the XDG data directory (~/.local/share/mailcrawl on Linux).
	DBDir string

	// SaveToDB records the crawl result in the history database.
	SaveToDB bool

	// SameHost restricts the crawl to the seed's host.
	SameHost bool

	// FollowRedirects makes the fetcher follow 3xx responses. When false a
	// redirect is reported as an unsuccessful status.
	FollowRedirects bool

	// CompactVisited deduplicates visited URLs by 64-bit hash, at a small
	// risk of a false "already visited". The result still lists every URL.
	CompactVisited bool

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	// Longer bodies are truncated.
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxPages:        DefaultMaxPages,
		Timeout:         DefaultTimeout,
		Workers:         DefaultWorkers,
		BatchSize:       DefaultBatchSize,
		DBDir:           XDGDataDir(),
		SaveToDB:        true,
		FollowRedirects: true,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for mailcrawl.
// On Linux: ~/.local/share/mailcrawl
// On macOS: ~/Library/Application Support/mailcrawl
// On Windows: %LOCALAPPDATA%\mailcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for mailcrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found as one of the package's sentinel errors.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}

	if c.MaxPages < 1 {
		return ErrInvalidMaxPages
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Workers < 1 || c.Workers > MaxWorkers {
		return ErrInvalidWorkers
	}

	if c.BatchSize < 1 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.SaveToDB && c.DBDir == "" {
		return ErrNoDBDir
	}

	return nil
}

// ApplySite overlays per-host settings from the config file. MaxPages is
// copied only when the caller has not set it explicitly; headers, cookie and
// patterns are consumed by the fetcher and link filter. In a batch every
// seed gets its own copy of the Config before ApplySite.
func (c *Config) ApplySite(site SiteConfig, maxPagesExplicit bool) {
	if site.MaxPages > 0 && !maxPagesExplicit {
		c.MaxPages = site.MaxPages
	}
	if site.UserAgent != "" {
		c.UserAgent = site.UserAgent
	}
}
