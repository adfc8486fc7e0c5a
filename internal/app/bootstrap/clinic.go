package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/careconnect/internal/clinic"
	appconfig "github.com/wolfman30/careconnect/internal/config"
	"github.com/wolfman30/careconnect/internal/observability/metrics"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// BuildClinicSource selects the clinic directory named by CLINIC_SOURCE.
// "static" (or a postgres source without a pool) returns nil, which makes
// the recommender serve the fallback table.
func BuildClinicSource(ctx context.Context, cfg *appconfig.Config, pool *pgxpool.Pool, logger *logging.Logger) (clinic.Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.ClinicSource {
	case "firestore":
		if cfg.FirebaseProjectID == "" {
			return nil, fmt.Errorf("bootstrap: FIREBASE_PROJECT_ID is required for the firestore clinic source")
		}
		source, err := clinic.NewFirestoreSource(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			return nil, err
		}
		logger.Info("clinic directory: firestore", "project_id", cfg.FirebaseProjectID)
		return source, nil
	case "postgres", "":
		if pool == nil {
			logger.Warn("clinic directory: postgres unavailable, serving fallback clinics")
			return nil, nil
		}
		logger.Info("clinic directory: postgres")
		return clinic.NewPostgresSource(pool), nil
	case "static":
		logger.Info("clinic directory: static fallback table")
		return nil, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown clinic source %q", cfg.ClinicSource)
	}
}

// BuildRecommender wires the clinic recommender with its Redis result cache.
func BuildRecommender(cfg *appconfig.Config, source clinic.Source, redisClient *redis.Client, chatMetrics *metrics.ChatMetrics, logger *logging.Logger) *clinic.Recommender {
	var cache clinic.ResultCache
	if redisClient != nil {
		cache = clinic.NewRedisResultCache(redisClient, cfg.ClinicCacheTTL, logger)
	}
	rec := clinic.NewRecommender(source, cache, clinic.Options{
		MinRating: cfg.ClinicMinRating,
		Limit:     cfg.ClinicResultLimit,
		Ranking:   clinic.ParseRankingMode(cfg.ClinicRanking),
	}, logger)
	if chatMetrics != nil {
		rec.WithRecorder(chatMetrics)
	}
	return rec
}
