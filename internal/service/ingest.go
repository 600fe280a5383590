package service

import (
	"context"
	"errors"
	"log"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/memento-ai/mementod/internal/domain"
	"github.com/memento-ai/mementod/internal/parser"
	"github.com/memento-ai/mementod/internal/storage"
	"github.com/memento-ai/mementod/internal/telemetry"
	"github.com/google/uuid"
)

// SourceStore fetches original document bytes from the source bucket.
type SourceStore interface {
	FetchObject(ctx context.Context, key string) ([]byte, error)
}

// ChunkRepositoryInterface defines the repository interface for chunk persistence.
type ChunkRepositoryInterface interface {
	InsertBatch(ctx context.Context, chunks []domain.Chunk) error
	DeleteByFile(ctx context.Context, tenantID, fileID string) error
}

// ImageRepositoryInterface defines the repository interface for image record persistence.
type ImageRepositoryInterface interface {
	InsertBatch(ctx context.Context, images []*domain.ExtractedImage) error
	DeleteByFile(ctx context.Context, tenantID, fileID string) error
}

// ProcessedFileRepositoryInterface defines the repository interface for the
// idempotency claim table.
type ProcessedFileRepositoryInterface interface {
	TryClaim(ctx context.Context, tenantID, fileID, fileName string) (bool, error)
	IsCompleted(ctx context.Context, tenantID, fileID string) (bool, error)
	MarkCompleted(ctx context.Context, tenantID, fileID string) error
	Release(ctx context.Context, tenantID, fileID string) error
	Delete(ctx context.Context, tenantID, fileID string) error
}

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Chunks() ChunkRepositoryInterface
	Images() ImageRepositoryInterface
	ProcessedFiles() ProcessedFileRepositoryInterface
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// IngestRequest identifies one document to ingest. FileID is the object key
// under the tenant's prefix in the source bucket; FileName defaults to its
// base name.
type IngestRequest struct {
	TenantID string
	FileID   string
	FileName string
	// Force purges any prior ingestion of the file and reprocesses it.
	Force bool
}

// IngestResult is the per-file outcome.
type IngestResult struct {
	TenantID string               `json:"tenant_id"`
	FileID   string               `json:"file_id"`
	Status   domain.IngestOutcome `json:"status"`
	Detail   string               `json:"detail,omitempty"`
	Chunks   int                  `json:"chunks"`
	Images   int                  `json:"images"`
	Duration time.Duration        `json:"-"`
}

// UUIDGenerator defines interface for UUID generation (for testing).
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid.
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string.
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestionService drives one document through the pipeline: claim, fetch,
// parse, image handling, chunk, embed, write, complete. The claim row makes
// the whole run idempotent: concurrent requests for the same (tenant, file)
// lose the claim and skip, and any failure releases the claim and deletes
// partial rows so a retry starts clean.
type IngestionService struct {
	source        SourceStore
	parsers       *parser.Registry
	images        *ImageService
	embedder      *EmbeddingService
	chunkCfg      ChunkConfig
	chunkRepo     ChunkRepositoryInterface
	imageRepo     ImageRepositoryInterface
	processedRepo ProcessedFileRepositoryInterface
	txRunner      TxRunner
	uuidGen       UUIDGenerator
	workers       int
}

// NewIngestionService creates a new IngestionService instance.
func NewIngestionService(
	source SourceStore,
	parsers *parser.Registry,
	images *ImageService,
	embedder *EmbeddingService,
	chunkCfg ChunkConfig,
	chunkRepo ChunkRepositoryInterface,
	imageRepo ImageRepositoryInterface,
	processedRepo ProcessedFileRepositoryInterface,
	txRunner TxRunner,
	workers int,
) *IngestionService {
	if chunkCfg.MaxChars <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	if workers <= 0 {
		workers = 4
	}
	return &IngestionService{
		source:        source,
		parsers:       parsers,
		images:        images,
		embedder:      embedder,
		chunkCfg:      chunkCfg,
		chunkRepo:     chunkRepo,
		imageRepo:     imageRepo,
		processedRepo: processedRepo,
		txRunner:      txRunner,
		uuidGen:       &DefaultUUIDGenerator{},
		workers:       workers,
	}
}

// Ingest runs the full pipeline for one file and reports the outcome. Only
// infrastructure errors surface as the second return value; per-file
// pipeline failures are folded into a failed result.
func (s *IngestionService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	started := time.Now()
	result := &IngestResult{TenantID: req.TenantID, FileID: req.FileID}

	if req.TenantID == "" {
		return s.failed(result, started, domain.ErrEmptyTenantID), nil
	}
	if req.FileID == "" {
		return s.failed(result, started, domain.ErrEmptyFileID), nil
	}
	if req.FileName == "" {
		req.FileName = path.Base(req.FileID)
	}

	ctx, span := telemetry.StartSpan(ctx, "ingest.file", telemetry.SpanAttributes{
		TenantID:  req.TenantID,
		FileID:    req.FileID,
		Operation: "ingest",
	})
	defer span.End()

	if req.Force {
		if err := s.purge(ctx, req.TenantID, req.FileID); err != nil {
			span.SetError(err)
			return nil, err
		}
	} else {
		done, err := s.processedRepo.IsCompleted(ctx, req.TenantID, req.FileID)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		if done {
			result.Status = domain.OutcomeSkipped
			result.Detail = "file already ingested"
			result.Duration = time.Since(started)
			return result, nil
		}
	}

	claimed, err := s.processedRepo.TryClaim(ctx, req.TenantID, req.FileID, req.FileName)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if !claimed {
		result.Status = domain.OutcomeSkipped
		result.Detail = "ingestion already in progress"
		result.Duration = time.Since(started)
		return result, nil
	}

	res, err := s.runPipeline(ctx, req)
	if err != nil {
		s.cleanup(req.TenantID, req.FileID)
		span.SetError(err)
		return s.failed(result, started, err), nil
	}

	result.Status = domain.OutcomeCompleted
	result.Chunks = res.chunks
	result.Images = res.images
	result.Duration = time.Since(started)
	log.Printf("ingest completed tenant=%s file=%s chunks=%d images=%d duration=%s",
		req.TenantID, req.FileID, result.Chunks, result.Images, result.Duration.Round(time.Millisecond))
	return result, nil
}

type pipelineResult struct {
	chunks int
	images int
}

func (s *IngestionService) runPipeline(ctx context.Context, req IngestRequest) (*pipelineResult, error) {
	logState := func(state domain.IngestState) {
		log.Printf("ingest state=%s tenant=%s file=%s", state, req.TenantID, req.FileID)
	}

	logState(domain.StateParsing)
	content, err := s.source.FetchObject(ctx, req.TenantID+"/"+req.FileID)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, domain.ErrFileNotFound
		}
		return nil, err
	}

	format, err := domain.DetectFormat(req.FileName, content)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{
		FileID:   req.FileID,
		TenantID: req.TenantID,
		Name:     req.FileName,
		Format:   format,
		Content:  content,
	}

	parsed, err := s.parsers.Parse(ctx, doc)
	if err != nil {
		return nil, err
	}

	logState(domain.StateExtractingImages)
	images := Dedupe(parsed.Units, parsed.Images)
	s.images.Upload(ctx, images)

	logState(domain.StateDescribing)
	if err := s.images.Describe(ctx, images); err != nil {
		return nil, err
	}

	logState(domain.StateChunking)
	segments := buildStream(parsed.Units, images)
	chunks := assembleChunks(segments, s.chunkCfg)
	now := time.Now().UTC()
	for i := range chunks {
		chunks[i].ID = s.uuidGen.NewString()
		chunks[i].TenantID = req.TenantID
		chunks[i].FileID = req.FileID
		chunks[i].FileName = req.FileName
		chunks[i].CreatedAt = now
	}

	logState(domain.StateEmbedding)
	if err := s.embedder.EmbedChunks(ctx, chunks); err != nil {
		return nil, err
	}

	logState(domain.StateWriting)
	if len(chunks) > 0 {
		if err := s.chunkRepo.InsertBatch(ctx, chunks); err != nil {
			return nil, domain.NewWriteError(err)
		}
	}
	if len(images) > 0 {
		if err := s.imageRepo.InsertBatch(ctx, images); err != nil {
			return nil, domain.NewWriteError(err)
		}
	}
	if err := s.processedRepo.MarkCompleted(ctx, req.TenantID, req.FileID); err != nil {
		return nil, domain.NewWriteError(err)
	}

	logState(domain.StateCompleted)
	return &pipelineResult{chunks: len(chunks), images: len(images)}, nil
}

// purge removes every trace of a prior ingestion in one transaction, so a
// forced rerun observes either the old state or none of it.
func (s *IngestionService) purge(ctx context.Context, tenantID, fileID string) error {
	return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().DeleteByFile(ctx, tenantID, fileID); err != nil {
			return err
		}
		if err := repos.Images().DeleteByFile(ctx, tenantID, fileID); err != nil {
			return err
		}
		return repos.ProcessedFiles().Delete(ctx, tenantID, fileID)
	})
}

// cleanup deletes partial rows and releases the claim after a failed run.
// It uses a fresh context so cancellation of the request does not leave a
// stale claim behind.
func (s *IngestionService) cleanup(tenantID, fileID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.chunkRepo.DeleteByFile(ctx, tenantID, fileID); err != nil {
		log.Printf("ingest cleanup: failed to delete chunks tenant=%s file=%s: %v", tenantID, fileID, err)
	}
	if err := s.imageRepo.DeleteByFile(ctx, tenantID, fileID); err != nil {
		log.Printf("ingest cleanup: failed to delete images tenant=%s file=%s: %v", tenantID, fileID, err)
	}
	if err := s.processedRepo.Release(ctx, tenantID, fileID); err != nil {
		log.Printf("ingest cleanup: failed to release claim tenant=%s file=%s: %v", tenantID, fileID, err)
	}
}

func (s *IngestionService) failed(result *IngestResult, started time.Time, err error) *IngestResult {
	result.Status = domain.OutcomeFailed
	result.Detail = err.Error()
	result.Duration = time.Since(started)
	log.Printf("ingest failed tenant=%s file=%s: %v", result.TenantID, result.FileID, err)
	return result
}

// IngestBatch runs the pipeline for several files with a bounded number in
// flight. Results keep request order; one file's failure never aborts the
// others.
func (s *IngestionService) IngestBatch(ctx context.Context, reqs []IngestRequest) ([]*IngestResult, error) {
	results := make([]*IngestResult, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := s.Ingest(ctx, req)
			if err != nil {
				// Infrastructure errors become failed results so the
				// rest of the batch continues.
				res = &IngestResult{
					TenantID: req.TenantID,
					FileID:   req.FileID,
					Status:   domain.OutcomeFailed,
					Detail:   err.Error(),
				}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
