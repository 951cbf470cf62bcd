package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all settings for the pipeline and the read API. There is no
// hidden process-wide state: stages receive this object at construction
// and Verbose is the only diagnostic toggle.
type Config struct {
	DBPath        string
	MigrationsDir string
	LogLevel      string
	Verbose       bool

	// Inbox feed adapter
	DataDir           string
	InboxJSON         string
	AttachmentsDir    string
	StagingDir        string
	TrackedFolders    []string
	MaxItemsPerFolder int

	// Master data import
	POMasterCSV string

	// Read API
	Port string

	// Optional S3 archive of staged attachments
	S3ArchiveEnabled  bool
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3UseSSL          bool
}

// rawConfig mirrors the YAML file layout.
type rawConfig struct {
	Database struct {
		Path          string `yaml:"path"`
		MigrationsDir string `yaml:"migrations_dir"`
	} `yaml:"database"`
	Log struct {
		Level   string `yaml:"level"`
		Verbose bool   `yaml:"verbose"`
	} `yaml:"log"`
	Inbox struct {
		DataDir           string   `yaml:"data_dir"`
		FeedJSON          string   `yaml:"feed_json"`
		AttachmentsDir    string   `yaml:"attachments_dir"`
		StagingDir        string   `yaml:"staging_dir"`
		TrackedFolders    []string `yaml:"tracked_folders"`
		MaxItemsPerFolder int      `yaml:"max_items_per_folder"`
	} `yaml:"inbox"`
	Master struct {
		POCSV string `yaml:"po_csv"`
	} `yaml:"master"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	S3 struct {
		Enabled         bool   `yaml:"enabled"`
		Endpoint        string `yaml:"endpoint"`
		AccessKeyID     string `yaml:"access_key_id"`
		SecretAccessKey string `yaml:"secret_access_key"`
		Bucket          string `yaml:"bucket"`
		UseSSL          bool   `yaml:"use_ssl"`
	} `yaml:"s3"`
}

// Load reads the optional YAML config file (APINBOX_CONFIG, with ${VAR}
// expansion) and applies environment-variable overrides on top of
// defaults.
func Load() (*Config, error) {
	var raw rawConfig

	if path := getEnv("APINBOX_CONFIG", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	dataDir := firstNonEmpty(getEnv("APINBOX_DATA_DIR", ""), raw.Inbox.DataDir, "data")

	cfg := &Config{
		DBPath:        firstNonEmpty(getEnv("APINBOX_DB_PATH", ""), raw.Database.Path, "inbox.db"),
		MigrationsDir: firstNonEmpty(getEnv("APINBOX_MIGRATIONS_DIR", ""), raw.Database.MigrationsDir, "internal/db/migrations"),
		LogLevel:      firstNonEmpty(getEnv("LOG_LEVEL", ""), raw.Log.Level, "info"),
		Verbose:       getEnvBool("APINBOX_VERBOSE", raw.Log.Verbose),

		DataDir:           dataDir,
		InboxJSON:         firstNonEmpty(getEnv("APINBOX_INBOX_JSON", ""), raw.Inbox.FeedJSON, dataDir+"/inbox.json"),
		AttachmentsDir:    firstNonEmpty(getEnv("APINBOX_ATTACHMENTS_DIR", ""), raw.Inbox.AttachmentsDir, dataDir+"/attachments"),
		StagingDir:        firstNonEmpty(getEnv("APINBOX_STAGING_DIR", ""), raw.Inbox.StagingDir, "staging"),
		TrackedFolders:    raw.Inbox.TrackedFolders,
		MaxItemsPerFolder: getEnvInt("APINBOX_MAX_ITEMS_PER_FOLDER", raw.Inbox.MaxItemsPerFolder, 50),

		POMasterCSV: firstNonEmpty(getEnv("APINBOX_PO_MASTER_CSV", ""), raw.Master.POCSV, dataDir+"/po_master.csv"),

		Port: firstNonEmpty(getEnv("PORT", ""), raw.Server.Port, "8080"),

		S3ArchiveEnabled:  getEnvBool("APINBOX_S3_ENABLED", raw.S3.Enabled),
		S3Endpoint:        firstNonEmpty(getEnv("S3_ENDPOINT", ""), raw.S3.Endpoint, "localhost:9000"),
		S3AccessKeyID:     firstNonEmpty(getEnv("S3_ACCESS_KEY_ID", ""), raw.S3.AccessKeyID, "minioadmin"),
		S3SecretAccessKey: firstNonEmpty(getEnv("S3_SECRET_ACCESS_KEY", ""), raw.S3.SecretAccessKey, "minioadmin"),
		S3BucketName:      firstNonEmpty(getEnv("S3_BUCKET_NAME", ""), raw.S3.Bucket, "invoice-archive"),
		S3UseSSL:          getEnvBool("S3_USE_SSL", raw.S3.UseSSL),
	}

	if len(cfg.TrackedFolders) == 0 {
		cfg.TrackedFolders = []string{"Inbox"}
	}

	if cfg.MaxItemsPerFolder <= 0 {
		return nil, fmt.Errorf("max_items_per_folder must be positive, got %d", cfg.MaxItemsPerFolder)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return defaultValue
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

func getEnvInt(key string, yamlValue, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if yamlValue != 0 {
		return yamlValue
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
