package config

import (
	"os"
	"strings"
)

func localConfig() *Config {
	return &Config{
		Port:        ":8080",
		Env:         "local",
		DatabaseURL: firstNonEmpty(strings.TrimSpace(os.Getenv("GATE_DATABASE_URL")), ""),
		WorkDir:     firstNonEmpty(strings.TrimSpace(os.Getenv("GATE_WORKDIR")), "."),
		Artifact: ArtifactConfig{
			Enabled:   true,
			Endpoint:  firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT")), ""),
			Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
			AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), "cigate"),
			SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), "cigate123"),
			Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "cigate-artifacts"),
			UseSSL:    false,
			URLTTL:    resolveArtifactURLTTL(),
		},
		Proposal: loadProposalConfig(),
		Labels:   loadLabelConfig(),
		Checks:   loadCheckConfig(),
	}
}
