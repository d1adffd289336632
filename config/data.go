package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Settings holds the validated process configuration. Built once at startup
// by Load; handlers read it but never mutate it.
type Settings struct {
	ListenAddr string

	// Store selects the remote store driver: "sftp", "s3", "gcs" or "local".
	Store string

	// SFTP driver.
	SFTPHost       string
	SFTPPort       string
	SFTPUser       string
	SFTPPassword   string
	SFTPPrivateKey string // raw PEM or base64
	SFTPRoot       string
	SFTPMaxConns   int

	// S3 driver.
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	// GCS driver.
	GCSBucket          string
	GCSCredentialsJSON string // base64 service account key

	// Local driver (development and tests).
	LocalRoot string
}

// Load reads configuration from the environment and validates that every
// setting required by the selected store driver is present. There are no
// built-in fallback credentials: a missing required value is a startup error.
func Load() (*Settings, error) {
	s := &Settings{
		ListenAddr: ":" + envOr("MEDIAPROXY_PORT", "8080"),
		Store:      envOr("MEDIAPROXY_STORE", "sftp"),

		SFTPHost:       os.Getenv("MEDIAPROXY_SFTP_HOST"),
		SFTPPort:       envOr("MEDIAPROXY_SFTP_PORT", "22"),
		SFTPUser:       os.Getenv("MEDIAPROXY_SFTP_USER"),
		SFTPPassword:   os.Getenv("MEDIAPROXY_SFTP_PASSWORD"),
		SFTPPrivateKey: os.Getenv("MEDIAPROXY_SFTP_PRIVATE_KEY"),
		SFTPRoot:       envOr("MEDIAPROXY_SFTP_ROOT", "/"),
		SFTPMaxConns:   envIntOr("MEDIAPROXY_SFTP_MAX_CONNS", 8),

		S3Region:    os.Getenv("MEDIAPROXY_S3_REGION"),
		S3Bucket:    os.Getenv("MEDIAPROXY_S3_BUCKET"),
		S3AccessKey: os.Getenv("MEDIAPROXY_S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("MEDIAPROXY_S3_SECRET_KEY"),

		GCSBucket:          os.Getenv("MEDIAPROXY_GCS_BUCKET"),
		GCSCredentialsJSON: os.Getenv("MEDIAPROXY_GCS_CREDENTIALS"),

		LocalRoot: os.Getenv("MEDIAPROXY_LOCAL_ROOT"),
	}

	var missing []string
	switch s.Store {
	case "sftp":
		if s.SFTPHost == "" {
			missing = append(missing, "MEDIAPROXY_SFTP_HOST")
		}
		if s.SFTPUser == "" {
			missing = append(missing, "MEDIAPROXY_SFTP_USER")
		}
		if s.SFTPPassword == "" && s.SFTPPrivateKey == "" {
			missing = append(missing, "MEDIAPROXY_SFTP_PASSWORD or MEDIAPROXY_SFTP_PRIVATE_KEY")
		}
	case "s3":
		if s.S3Region == "" {
			missing = append(missing, "MEDIAPROXY_S3_REGION")
		}
		if s.S3Bucket == "" {
			missing = append(missing, "MEDIAPROXY_S3_BUCKET")
		}
		if s.S3AccessKey == "" {
			missing = append(missing, "MEDIAPROXY_S3_ACCESS_KEY")
		}
		if s.S3SecretKey == "" {
			missing = append(missing, "MEDIAPROXY_S3_SECRET_KEY")
		}
	case "gcs":
		if s.GCSBucket == "" {
			missing = append(missing, "MEDIAPROXY_GCS_BUCKET")
		}
		if s.GCSCredentialsJSON == "" {
			missing = append(missing, "MEDIAPROXY_GCS_CREDENTIALS")
		}
	case "local":
		if s.LocalRoot == "" {
			missing = append(missing, "MEDIAPROXY_LOCAL_ROOT")
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q (expected sftp, s3, gcs or local)", s.Store)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration for %s store: %v", s.Store, missing)
	}
	return s, nil
}

// GetDataDir returns the directory for process-local state (organization DB).
// Priority: MEDIAPROXY_DATA_DIR environment variable > "./data" default.
func GetDataDir() string {
	if dir := os.Getenv("MEDIAPROXY_DATA_DIR"); dir != "" {
		return dir
	}
	return "./data"
}

// GetOrgDBPath returns the full path to the organization records database.
func GetOrgDBPath() string {
	return filepath.Join(GetDataDir(), "organizations.db")
}

// GetScratchDir returns the directory for transient video-processing files.
// Defaults to the OS temp dir; configurable for hosts with small /tmp.
func GetScratchDir() string {
	if dir := os.Getenv("MEDIAPROXY_SCRATCH_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// GetLogFile returns the optional log file path; empty means console only.
func GetLogFile() string {
	return os.Getenv("MEDIAPROXY_LOG_FILE")
}

// GetEncoderPath returns an override for the encoder binary, empty to use
// whatever "ffmpeg" resolves to in PATH.
func GetEncoderPath() string {
	return os.Getenv("MEDIAPROXY_FFMPEG")
}

// GetEncodeTimeout returns the wall-clock limit for one encoder invocation.
// A stuck encode is killed rather than left to hold scratch space forever.
func GetEncodeTimeout() time.Duration {
	if v := os.Getenv("MEDIAPROXY_ENCODE_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return 5 * time.Minute
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
