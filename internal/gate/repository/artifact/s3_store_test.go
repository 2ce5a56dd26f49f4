package artifact

import (
	"testing"
	"time"
)

func TestNewS3StoreValidatesConfig(t *testing.T) {
	base := S3Config{
		Endpoint:  "minio:9000",
		AccessKey: "ak",
		SecretKey: "sk",
		Bucket:    "gate-artifacts",
	}

	cases := []struct {
		name   string
		mutate func(*S3Config)
	}{
		{"missing endpoint", func(c *S3Config) { c.Endpoint = " " }},
		{"missing access key", func(c *S3Config) { c.AccessKey = "" }},
		{"missing secret key", func(c *S3Config) { c.SecretKey = "" }},
		{"missing bucket", func(c *S3Config) { c.Bucket = "" }},
	}
	for _, tc := range cases {
		cfg := base
		tc.mutate(&cfg)
		if _, err := NewS3Store(cfg); err == nil {
			t.Fatalf("%s: NewS3Store() accepted an invalid config", tc.name)
		}
	}
}

func TestNewS3StoreDefaults(t *testing.T) {
	store, err := NewS3Store(S3Config{
		Endpoint:  "minio:9000",
		AccessKey: "ak",
		SecretKey: "sk",
		Bucket:    "gate-artifacts",
	})
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}
	if store.region != "us-east-1" {
		t.Fatalf("region = %q", store.region)
	}
	if store.urlExpiry != time.Hour {
		t.Fatalf("url expiry = %v, want 1h default", store.urlExpiry)
	}
}

func TestArtifactContentType(t *testing.T) {
	if got := artifactContentType("lint-marker"); got != "application/octet-stream" {
		t.Fatalf("marker content type = %q", got)
	}
	for _, name := range []string{"lint-output", "coverage-output"} {
		if got := artifactContentType(name); got != "text/plain; charset=utf-8" {
			t.Fatalf("%s content type = %q", name, got)
		}
	}
}
