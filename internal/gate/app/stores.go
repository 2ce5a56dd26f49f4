package app

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	artifactcache "cigate/internal/gate/cache/artifact"
	"cigate/internal/gate/config"
	artifactrepo "cigate/internal/gate/repository/artifact"
	"cigate/internal/history"
)

// Stores bundles the persistence the gate binary wires at startup.
// History is nil when no database is configured.
type Stores struct {
	Artifact artifactrepo.Store
	History  *history.Store
}

func InitStores(cfg *config.Config) (*Stores, error) {
	artifactStore, err := initArtifactStore(cfg)
	if err != nil {
		return nil, err
	}

	stores := &Stores{
		Artifact: artifactcache.NewCachedStore(artifactStore, artifactcache.DefaultCacheConfig()),
	}
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		h, err := history.NewPostgres(dsn)
		if err != nil {
			return nil, fmt.Errorf("init history store: %w", err)
		}
		stores.History = h
	}
	return stores, nil
}

func initArtifactStore(cfg *config.Config) (artifactrepo.Store, error) {
	if cfg.Artifact.CanUseS3() {
		s3Store, err := artifactrepo.NewS3Store(artifactrepo.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
			URLExpiry: cfg.Artifact.URLTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize artifact s3 store: %w", err)
		}
		log.Printf("artifact store: s3 bucket=%s endpoint=%s", cfg.Artifact.Bucket, cfg.Artifact.Endpoint)
		return s3Store, nil
	}

	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		log.Printf("artifact store: postgres")
		return artifactrepo.NewPostgresStore(db), nil
	}

	if cfg.Artifact.Enabled {
		log.Printf("artifact store: using in-memory fallback (s3 config incomplete)")
	}
	return artifactrepo.NewMemoryStore(), nil
}
