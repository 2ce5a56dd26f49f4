package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	WorkDir     string
	Artifact    ArtifactConfig
	Proposal    ProposalConfig
	Labels      LabelConfig
	Checks      CheckConfig
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// URLTTL bounds how long a presigned artifact download link stays
	// valid.
	URLTTL time.Duration
}

func (c ArtifactConfig) CanUseS3() bool {
	return strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		strings.TrimSpace(c.Bucket) != ""
}

type ProposalConfig struct {
	BaseURL string
	Token   string
	Repo    string
	Number  int
}

type LabelConfig struct {
	Passed string
	Failed string
}

type CheckConfig struct {
	FormatCommand []string
	LintCommand   []string
	TestCommand   []string
	CoverageFile  string
	// MissingArtifactText is reported as the content of an artifact the
	// store never received. Empty falls back to the loader's default.
	MissingArtifactText string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}
	if strings.EqualFold(env, "local") {
		return localConfig(), nil
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = ":8080"
	} else if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	return &Config{
		Port:        port,
		Env:         env,
		DatabaseURL: firstNonEmpty(strings.TrimSpace(os.Getenv("GATE_DATABASE_URL")), strings.TrimSpace(os.Getenv("DATABASE_URL"))),
		WorkDir:     firstNonEmpty(strings.TrimSpace(os.Getenv("GATE_WORKDIR")), "."),
		Artifact:    loadArtifactConfig(env),
		Proposal:    loadProposalConfig(),
		Labels:      loadLabelConfig(),
		Checks:      loadCheckConfig(),
	}, nil
}

func loadArtifactConfig(env string) ArtifactConfig {
	endpoint := resolveArtifactEndpoint(env)
	return ArtifactConfig{
		Enabled:   strings.EqualFold(strings.TrimSpace(env), "local") || endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "cigate-artifacts"),
		UseSSL:    resolveArtifactUseSSL(env),
		URLTTL:    resolveArtifactURLTTL(),
	}
}

func resolveArtifactURLTTL() time.Duration {
	raw := strings.TrimSpace(os.Getenv("ARTIFACT_URL_TTL"))
	if raw == "" {
		return time.Hour
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil || ttl <= 0 {
		return time.Hour
	}
	return ttl
}

func resolveArtifactEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT")), "minio:9000")
	}
	return strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
}

func resolveArtifactUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("ARTIFACT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func loadProposalConfig() ProposalConfig {
	number := 0
	if raw := firstNonEmpty(strings.TrimSpace(os.Getenv("GATE_PROPOSAL_NUMBER")), strings.TrimSpace(os.Getenv("PR_NUMBER"))); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			number = n
		}
	}
	return ProposalConfig{
		BaseURL: strings.TrimSpace(os.Getenv("GATE_API_BASE_URL")),
		Token:   firstNonEmpty(strings.TrimSpace(os.Getenv("GATE_API_TOKEN")), strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))),
		Repo:    firstNonEmpty(strings.TrimSpace(os.Getenv("GATE_REPO")), strings.TrimSpace(os.Getenv("GITHUB_REPOSITORY"))),
		Number:  number,
	}
}

func loadLabelConfig() LabelConfig {
	return LabelConfig{
		Passed: firstNonEmpty(strings.TrimSpace(os.Getenv("GATE_LABEL_PASSED")), "Passed"),
		Failed: firstNonEmpty(strings.TrimSpace(os.Getenv("GATE_LABEL_FAILED")), "Failed"),
	}
}

func loadCheckConfig() CheckConfig {
	return CheckConfig{
		FormatCommand:       commandFromEnv("GATE_FORMAT_CMD", []string{"gofmt", "-l", "."}),
		LintCommand:         commandFromEnv("GATE_LINT_CMD", []string{"go", "vet", "./..."}),
		TestCommand:         commandFromEnv("GATE_TEST_CMD", []string{"go", "test", "-cover", "./..."}),
		CoverageFile:        strings.TrimSpace(os.Getenv("GATE_COVERAGE_FILE")),
		MissingArtifactText: strings.TrimSpace(os.Getenv("GATE_MISSING_ARTIFACT_TEXT")),
	}
}

func commandFromEnv(key string, fallback []string) []string {
	fields := splitCommand(os.Getenv(key))
	if len(fields) == 0 {
		return fallback
	}
	return fields
}

// splitCommand tokenizes a command override the way a shell would, so
// wrapped invocations like `sh -c "go test ./..."` keep their quoted
// argument intact.
func splitCommand(raw string) []string {
	var (
		args   []string
		cur    strings.Builder
		quote  rune
		quoted bool
	)
	flush := func() {
		if quoted || cur.Len() > 0 {
			args = append(args, cur.String())
		}
		cur.Reset()
		quoted = false
	}
	for _, r := range raw {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			quoted = true
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return args
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
