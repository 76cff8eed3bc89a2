package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Transfer modes supported by the delivery dispatcher.
const (
	TransferEmbedded  = "embedded"
	TransferNamedFile = "named-file"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort     string
	JWTSecret   string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Admin credential for issuing API tokens (bcrypt hash of the password)
	AdminUser         string
	AdminPasswordHash string

	RateLimitPerMinute int
	AllowedOrigins     []string

	// Gin framework configuration
	GinMode string
	GinPath string

	// Redis for shared state and caching
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	// Archive behaviour
	ArchiveEnabled       bool
	ArchiveChannels      []string // allowlist; empty means every channel
	ArchiveRoot          string   // blob directory root
	ArchiveTempDir       string   // ephemeral delivery files
	MaxPerChannel        int      // capacity bound, clamped to [5,100]
	PermissionThreshold  int      // level required for delete/clear, clamped to [1,5]
	StaticTransferMode   string   // embedded | named-file
	AnimatedTransferMode string   // embedded | named-file
	FetchTimeoutMs       int
	Debug                bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	applyDebug(&cfg)
	clampBounds(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) (bool, bool) {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b, true
			}
		}
		return false, false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.AdminUser = getString(app, "AdminUser")
		out.AdminPasswordHash = getString(app, "AdminPasswordHash")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		if v := getString(g, "Mode"); v != "" {
			out.GinMode = v
		}
		if v := getString(g, "LogPath"); v != "" {
			out.GinPath = v
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getString(lg, "GinMode"); v != "" {
			out.GinMode = v
		}
		if v := getString(lg, "GinPath"); v != "" {
			out.GinPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		if b, ok := getBool(lg, "Compress"); ok {
			out.LogCompress = b
		}
	}

	if ar, ok := raw["archive"].(map[string]any); ok {
		if b, ok := getBool(ar, "Enabled"); ok {
			out.ArchiveEnabled = b
		}
		if list := getStringSlice(ar, "Channels"); len(list) > 0 {
			out.ArchiveChannels = list
		}
		if v := getString(ar, "Root"); v != "" {
			out.ArchiveRoot = v
		}
		if v := getString(ar, "TempDir"); v != "" {
			out.ArchiveTempDir = v
		}
		if v := getInt(ar, "MaxPerChannel"); v != 0 {
			out.MaxPerChannel = v
		}
		if v := getInt(ar, "PermissionThreshold"); v != 0 {
			out.PermissionThreshold = v
		}
		if v := getString(ar, "StaticTransferMode"); v != "" {
			out.StaticTransferMode = v
		}
		if v := getString(ar, "AnimatedTransferMode"); v != "" {
			out.AnimatedTransferMode = v
		}
		if v := getInt(ar, "FetchTimeoutMs"); v != 0 {
			out.FetchTimeoutMs = v
		}
		if b, ok := getBool(ar, "Debug"); ok {
			out.Debug = b
		}
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "mediavault"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.ArchiveRoot == "" {
		c.ArchiveRoot = "data/blobs"
	}
	if c.ArchiveTempDir == "" {
		c.ArchiveTempDir = filepath.Join(os.TempDir(), "mediavault")
	}
	if c.MaxPerChannel == 0 {
		c.MaxPerChannel = 20
	}
	if c.PermissionThreshold == 0 {
		c.PermissionThreshold = 3
	}
	if c.StaticTransferMode == "" {
		c.StaticTransferMode = TransferEmbedded
	}
	if c.AnimatedTransferMode == "" {
		c.AnimatedTransferMode = TransferNamedFile
	}
	if c.FetchTimeoutMs == 0 {
		c.FetchTimeoutMs = 15000
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("ADMIN_USER", ""); v != "" {
		c.AdminUser = v
	}
	if v := getEnv("ADMIN_PASSWORD_HASH", ""); v != "" {
		c.AdminPasswordHash = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("ARCHIVE_ENABLED", ""); v != "" {
		c.ArchiveEnabled = v == "true"
	}
	if v := getEnv("ARCHIVE_CHANNELS", ""); v != "" {
		c.ArchiveChannels = readListEnv("ARCHIVE_CHANNELS", c.ArchiveChannels)
	}
	if v := getEnv("ARCHIVE_ROOT", ""); v != "" {
		c.ArchiveRoot = v
	}
	if v := getEnv("ARCHIVE_TEMP_DIR", ""); v != "" {
		c.ArchiveTempDir = v
	}
	if v := getEnv("ARCHIVE_MAX_PER_CHANNEL", ""); v != "" {
		c.MaxPerChannel = mustParseInt(v)
	}
	if v := getEnv("ARCHIVE_PERMISSION_THRESHOLD", ""); v != "" {
		c.PermissionThreshold = mustParseInt(v)
	}
	if v := getEnv("ARCHIVE_STATIC_TRANSFER_MODE", ""); v != "" {
		c.StaticTransferMode = v
	}
	if v := getEnv("ARCHIVE_ANIMATED_TRANSFER_MODE", ""); v != "" {
		c.AnimatedTransferMode = v
	}
	if v := getEnv("ARCHIVE_FETCH_TIMEOUT_MS", ""); v != "" {
		c.FetchTimeoutMs = mustParseInt(v)
	}
	if v := getEnv("ARCHIVE_DEBUG", ""); v != "" {
		c.Debug = v == "true"
	}
}

// applyDebug forces verbose logging and gin debug mode when the debug flag is on.
func applyDebug(c *AppConfig) {
	if !c.Debug {
		return
	}
	c.LogLevel = "debug"
	c.GinMode = "debug"
}

// clampBounds keeps operator-supplied knobs inside their documented ranges.
func clampBounds(c *AppConfig) {
	if c.MaxPerChannel < 5 {
		c.MaxPerChannel = 5
	}
	if c.MaxPerChannel > 100 {
		c.MaxPerChannel = 100
	}
	if c.PermissionThreshold < 1 {
		c.PermissionThreshold = 1
	}
	if c.PermissionThreshold > 5 {
		c.PermissionThreshold = 5
	}
	if c.StaticTransferMode != TransferEmbedded && c.StaticTransferMode != TransferNamedFile {
		c.StaticTransferMode = TransferEmbedded
	}
	if c.AnimatedTransferMode != TransferEmbedded && c.AnimatedTransferMode != TransferNamedFile {
		c.AnimatedTransferMode = TransferNamedFile
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
