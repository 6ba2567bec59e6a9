package model

import "time"

// Config holds the complete runtime configuration
type Config struct {
	GitHub  GitHubConfig  `yaml:"github"`
	Cache   CacheConfig   `yaml:"cache"`
	Server  ServerConfig  `yaml:"server"`
	Resolve ResolveConfig `yaml:"resolve"`
}

// GitHubConfig configures the GitHub API client
type GitHubConfig struct {
	Token             string        `yaml:"token,omitempty"`     // API token (prefer GITHUB_TOKEN env var)
	BaseURL           string        `yaml:"base_url"`            // API base URL (override for GitHub Enterprise)
	UserAgent         string        `yaml:"user_agent"`          // HTTP User-Agent
	Timeout           time.Duration `yaml:"timeout"`             // Per-request timeout
	RequestsPerSecond float64       `yaml:"requests_per_second"` // Per-host rate limit
	Burst             int           `yaml:"burst"`               // Rate limit burst size
	HTTPProxy         string        `yaml:"http_proxy,omitempty"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty"`
}

// CacheConfig configures CODEOWNERS content caching
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`           // Freshness window before ETag revalidation
	Dir     string        `yaml:"dir,omitempty"` // Optional disk cache directory (empty = memory only)
}

// ServerConfig configures the MCP server
type ServerConfig struct {
	Transport string `yaml:"transport"` // stdio, sse, streamable-http
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Debug     bool   `yaml:"debug"`
}

// ResolveConfig configures the ownership resolution engine
type ResolveConfig struct {
	MaxDepth int `yaml:"max_depth"` // Maximum nested team expansion depth
	Workers  int `yaml:"workers"`   // Concurrent membership lookups per batch
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			BaseURL:           "https://api.github.com",
			UserAgent:         "mcp-github-owners/0.1 (+https://github.com/toto-dev/mcp-server-github-codeowners)",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     300 * time.Second,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Host:      "127.0.0.1",
			Port:      8000,
		},
		Resolve: ResolveConfig{
			MaxDepth: 10,
			Workers:  8,
		},
	}
}
