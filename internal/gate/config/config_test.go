package config

import (
	"testing"
	"time"
)

func TestLoadLocalDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GATE_API_TOKEN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Env != "local" {
		t.Fatalf("env = %q", cfg.Env)
	}
	if !cfg.Artifact.Enabled {
		t.Fatalf("artifact store must be enabled locally")
	}
	if cfg.Labels.Passed != "Passed" || cfg.Labels.Failed != "Failed" {
		t.Fatalf("labels = %+v", cfg.Labels)
	}
	if len(cfg.Checks.FormatCommand) == 0 || len(cfg.Checks.LintCommand) == 0 || len(cfg.Checks.TestCommand) == 0 {
		t.Fatalf("check commands must have defaults: %+v", cfg.Checks)
	}
}

func TestLoadProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("GATE_REPO", "acme/widgets")
	t.Setenv("GATE_API_TOKEN", "tok")
	t.Setenv("GATE_PROPOSAL_NUMBER", "42")
	t.Setenv("ARTIFACT_S3_ENDPOINT", "s3.example.com")
	t.Setenv("ARTIFACT_S3_ACCESS_KEY", "ak")
	t.Setenv("ARTIFACT_S3_SECRET_KEY", "sk")
	t.Setenv("ARTIFACT_S3_BUCKET", "gate-artifacts")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != ":9090" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if !cfg.Artifact.CanUseS3() {
		t.Fatalf("s3 config should be complete: %+v", cfg.Artifact)
	}
	if !cfg.Artifact.UseSSL {
		t.Fatalf("ssl must default to on outside local")
	}
	if cfg.Proposal.Repo != "acme/widgets" || cfg.Proposal.Number != 42 {
		t.Fatalf("proposal = %+v", cfg.Proposal)
	}
}

func TestCheckCommandOverride(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("GATE_LINT_CMD", "golangci-lint run ./...")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"golangci-lint", "run", "./..."}
	if len(cfg.Checks.LintCommand) != len(want) {
		t.Fatalf("lint command = %v", cfg.Checks.LintCommand)
	}
	for i := range want {
		if cfg.Checks.LintCommand[i] != want[i] {
			t.Fatalf("lint command = %v", cfg.Checks.LintCommand)
		}
	}
}

func TestCheckCommandOverrideKeepsQuotedArgs(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("GATE_TEST_CMD", `sh -c "go test -cover ./..."`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"sh", "-c", "go test -cover ./..."}
	if len(cfg.Checks.TestCommand) != len(want) {
		t.Fatalf("test command = %v", cfg.Checks.TestCommand)
	}
	for i := range want {
		if cfg.Checks.TestCommand[i] != want[i] {
			t.Fatalf("test command = %v, want %v", cfg.Checks.TestCommand, want)
		}
	}
}

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{`go vet ./...`, []string{"go", "vet", "./..."}},
		{`sh -c 'gofmt -l . | tee out'`, []string{"sh", "-c", "gofmt -l . | tee out"}},
		{`tool --msg "two words" end`, []string{"tool", "--msg", "two words", "end"}},
		{`tool ''`, []string{"tool", ""}},
		{`  spaced   out  `, []string{"spaced", "out"}},
		{``, nil},
	}
	for _, tc := range cases {
		got := splitCommand(tc.raw)
		if len(got) != len(tc.want) {
			t.Fatalf("splitCommand(%q) = %v, want %v", tc.raw, got, tc.want)
		}
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Fatalf("splitCommand(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		}
	}
}

func TestArtifactURLTTL(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("ARTIFACT_URL_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Artifact.URLTTL != 30*time.Minute {
		t.Fatalf("url ttl = %v", cfg.Artifact.URLTTL)
	}

	t.Setenv("ARTIFACT_URL_TTL", "not-a-duration")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Artifact.URLTTL != time.Hour {
		t.Fatalf("url ttl = %v, want the 1h default", cfg.Artifact.URLTTL)
	}
}

func TestMissingArtifactTextOverride(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("GATE_MISSING_ARTIFACT_TEXT", "artifact never arrived")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Checks.MissingArtifactText != "artifact never arrived" {
		t.Fatalf("missing artifact text = %q", cfg.Checks.MissingArtifactText)
	}
}
