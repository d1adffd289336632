package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MEDIAPROXY_PORT", "MEDIAPROXY_STORE",
		"MEDIAPROXY_SFTP_HOST", "MEDIAPROXY_SFTP_USER", "MEDIAPROXY_SFTP_PASSWORD",
		"MEDIAPROXY_SFTP_PRIVATE_KEY", "MEDIAPROXY_SFTP_ROOT", "MEDIAPROXY_SFTP_MAX_CONNS",
		"MEDIAPROXY_S3_REGION", "MEDIAPROXY_S3_BUCKET",
		"MEDIAPROXY_S3_ACCESS_KEY", "MEDIAPROXY_S3_SECRET_KEY",
		"MEDIAPROXY_GCS_BUCKET", "MEDIAPROXY_GCS_CREDENTIALS",
		"MEDIAPROXY_LOCAL_ROOT", "MEDIAPROXY_ENCODE_TIMEOUT_SEC",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadMissingStoreCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEDIAPROXY_STORE", "sftp")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing SFTP settings")
	}
	if !strings.Contains(err.Error(), "MEDIAPROXY_SFTP_HOST") {
		t.Errorf("error does not name the missing variable: %v", err)
	}
}

func TestLoadS3RequiresAllKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEDIAPROXY_STORE", "s3")
	t.Setenv("MEDIAPROXY_S3_REGION", "eu-west-1")
	t.Setenv("MEDIAPROXY_S3_BUCKET", "media")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing S3 credentials")
	}
	if !strings.Contains(err.Error(), "MEDIAPROXY_S3_ACCESS_KEY") {
		t.Errorf("error does not name the missing variable: %v", err)
	}
}

func TestLoadLocalStore(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEDIAPROXY_STORE", "local")
	t.Setenv("MEDIAPROXY_LOCAL_ROOT", t.TempDir())
	t.Setenv("MEDIAPROXY_PORT", "9090")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", s.ListenAddr)
	}
	if s.Store != "local" {
		t.Errorf("Store = %q, want local", s.Store)
	}
}

func TestLoadUnknownBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEDIAPROXY_STORE", "ftp")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestEncodeTimeout(t *testing.T) {
	clearEnv(t)
	if got := GetEncodeTimeout(); got != 5*time.Minute {
		t.Errorf("default timeout = %v, want 5m", got)
	}
	t.Setenv("MEDIAPROXY_ENCODE_TIMEOUT_SEC", "30")
	if got := GetEncodeTimeout(); got != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", got)
	}
	t.Setenv("MEDIAPROXY_ENCODE_TIMEOUT_SEC", "bogus")
	if got := GetEncodeTimeout(); got != 5*time.Minute {
		t.Errorf("bogus timeout = %v, want default 5m", got)
	}
}
