package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port               int
	APIKey             string
	MaxConcurrentJobs  int
	MaxUploadSizeMB    int
	AllowedExtensions  []string
	MIMETypes          map[string]string
	CleanupInterval    time.Duration
	JobRetentionPeriod time.Duration
	JobsDir            string
	ToolName           string
	CommandPolicy      string
	ArchiveDir         string
	ServerTimeout      time.Duration
	LogLevel           string
	// TrustProxy makes client IPs come from X-Forwarded-For / X-Real-IP.
	TrustProxy         bool
}

const (
	defaultAllowedExtensions = "mp4,wav,mp3,mov,webm,mkv,aac,ogg"
	defaultMIMETypes         = "mp4=video/mp4,mov=video/quicktime,mkv=video/x-matroska,webm=video/webm," +
		"mp3=audio/mpeg,wav=audio/wav,aac=audio/aac,ogg=audio/ogg"
)

func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "3000"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	maxJobs, err := strconv.Atoi(getEnv("MAX_CONCURRENT_JOBS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_CONCURRENT_JOBS: %w", err)
	}
	if maxJobs < 1 {
		return nil, fmt.Errorf("invalid MAX_CONCURRENT_JOBS: must be at least 1, got %d", maxJobs)
	}

	maxUploadSizeMB, err := strconv.Atoi(getEnv("MAX_UPLOAD_SIZE_MB", "10240"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE_MB: %w", err)
	}
	if maxUploadSizeMB < 1 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE_MB: must be positive, got %d", maxUploadSizeMB)
	}

	cleanupInterval, err := parsePositiveDuration("CLEANUP_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}
	retention, err := parsePositiveDuration("JOB_RETENTION_PERIOD", "24h")
	if err != nil {
		return nil, err
	}
	serverTimeout, err := parsePositiveDuration("SERVER_TIMEOUT", "10m")
	if err != nil {
		return nil, err
	}

	allowed := parseList(getEnv("ALLOWED_EXTENSIONS", defaultAllowedExtensions))
	if len(allowed) == 0 {
		return nil, fmt.Errorf("ALLOWED_EXTENSIONS must list at least one extension")
	}

	mimeTypes, err := parseMIMETypes(getEnv("MIME_TYPES", defaultMIMETypes))
	if err != nil {
		return nil, fmt.Errorf("invalid MIME_TYPES: %w", err)
	}

	trustProxy, err := strconv.ParseBool(getEnv("TRUST_PROXY", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRUST_PROXY: %w", err)
	}

	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}

	return &Config{
		Port:               port,
		APIKey:             apiKey,
		MaxConcurrentJobs:  maxJobs,
		MaxUploadSizeMB:    maxUploadSizeMB,
		AllowedExtensions:  allowed,
		MIMETypes:          mimeTypes,
		CleanupInterval:    cleanupInterval,
		JobRetentionPeriod: retention,
		JobsDir:            getEnv("JOBS_DIR", os.TempDir()),
		ToolName:           getEnv("TOOL_NAME", "ffmpeg"),
		CommandPolicy:      getEnv("COMMAND_POLICY", "strict"),
		ArchiveDir:         os.Getenv("ARCHIVE_DIR"),
		ServerTimeout:      serverTimeout,
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		TrustProxy:         trustProxy,
	}, nil
}

// MaxUploadBytes is the request body cap for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) << 20
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parsePositiveDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %s", key, d)
	}
	return d, nil
}

// parseList splits a comma separated list of extensions, lowercasing them
// and dropping blanks, leading dots and duplicates.
func parseList(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(part), "."))
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	return out
}

// parseMIMETypes reads "ext=type,ext=type".
func parseMIMETypes(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		ext, mime, ok := strings.Cut(pair, "=")
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		mime = strings.TrimSpace(mime)
		if !ok || ext == "" || mime == "" {
			return nil, fmt.Errorf("malformed entry %q, want ext=type", pair)
		}
		out[ext] = mime
	}
	return out, nil
}
