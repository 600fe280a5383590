package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/memento-ai/mementod/internal/config"
	"github.com/memento-ai/mementod/internal/openai"
	"github.com/memento-ai/mementod/internal/parser"
	"github.com/memento-ai/mementod/internal/repository"
	"github.com/memento-ai/mementod/internal/service"
	"github.com/memento-ai/mementod/internal/storage"
)

// app bundles the wired pipeline shared by the serve, ingest and search
// commands.
type app struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	sourceClient  *storage.S3Client
	ingestionSvc  *service.IngestionService
	searchSvc     *service.SearchService
	processedRepo *repository.ProcessedFileRepository
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// buildApp connects to every backing service and wires the pipeline. The
// ingestion path needs S3 and OpenAI; both are mandatory here.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if !cfg.HasS3() {
		return nil, fmt.Errorf("S3 configuration is required (MEMENTO_S3_ENDPOINT, MEMENTO_S3_ACCESS_KEY_ID, MEMENTO_S3_SECRET_ACCESS_KEY)")
	}
	if !cfg.HasOpenAI() {
		return nil, fmt.Errorf("MEMENTO_OPENAI_API_KEY is required")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	sourceClient, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.SourceBucket,
		UsePathStyle:    true,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create source S3 client: %w", err)
	}

	imageClient, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.ImageBucket,
		PublicBaseURL:   cfg.ImagePublicURL,
		UsePathStyle:    true,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create image S3 client: %w", err)
	}
	if err := imageClient.EnsureBucket(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure image bucket: %w", err)
	}

	aiClient := openai.NewClient(cfg.OpenAIAPIKey)

	chunkRepo := repository.NewChunkRepository(pool)
	imageRepo := repository.NewImageRepository(pool)
	processedRepo := repository.NewProcessedFileRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	imageSvc := service.NewImageService(imageClient, aiClient, openai.IsRetryable, cfg.DescribeConcurrency)
	embeddingSvc := service.NewEmbeddingService(aiClient, openai.IsRetryable, cfg.EmbedBatchSize, cfg.EmbedConcurrency)

	ingestionSvc := service.NewIngestionService(
		sourceClient,
		parser.NewRegistry(),
		imageSvc,
		embeddingSvc,
		service.ChunkConfig{MaxChars: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
		chunkRepo,
		imageRepo,
		processedRepo,
		txRunner,
		cfg.IngestWorkers,
	)
	searchSvc := service.NewSearchService(aiClient, chunkRepo)

	return &app{
		cfg:           cfg,
		pool:          pool,
		sourceClient:  sourceClient,
		ingestionSvc:  ingestionSvc,
		searchSvc:     searchSvc,
		processedRepo: processedRepo,
	}, nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else {
		log.Printf("migrations: at version %d", version)
	}

	return nil
}
