package jobs

import (
	"context"
	"log"
	"strings"

	"github.com/memento-ai/mementod/internal/domain"
	"github.com/memento-ai/mementod/internal/service"
)

// SourceLister lists object keys in the source bucket. Keys follow the
// tenant/file layout; the first path element is the tenant ID.
type SourceLister interface {
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// CompletedFiles reports which files of a tenant have already been ingested.
type CompletedFiles interface {
	ListCompleted(ctx context.Context, tenantID string) ([]string, error)
}

// Ingester runs the pipeline for a batch of files.
type Ingester interface {
	IngestBatch(ctx context.Context, reqs []service.IngestRequest) ([]*service.IngestResult, error)
}

// ScanProcessor walks the source bucket on each poll and ingests every file
// that has no completed record yet. It implements JobProcessor, so the
// generic Worker drives it. Files already claimed by a concurrent request
// come back skipped, which the scan treats as done.
type ScanProcessor struct {
	source    SourceLister
	processed CompletedFiles
	ingester  Ingester
}

// NewScanProcessor creates a new ScanProcessor instance.
func NewScanProcessor(source SourceLister, processed CompletedFiles, ingester Ingester) *ScanProcessor {
	return &ScanProcessor{
		source:    source,
		processed: processed,
		ingester:  ingester,
	}
}

// ProcessJobs performs one scan pass.
func (p *ScanProcessor) ProcessJobs(ctx context.Context) error {
	keys, err := p.source.ListObjects(ctx, "")
	if err != nil {
		return err
	}

	byTenant := make(map[string][]string)
	for _, key := range keys {
		tenantID, fileID, ok := splitSourceKey(key)
		if !ok {
			continue
		}
		byTenant[tenantID] = append(byTenant[tenantID], fileID)
	}

	var reqs []service.IngestRequest
	for tenantID, fileIDs := range byTenant {
		completed, err := p.processed.ListCompleted(ctx, tenantID)
		if err != nil {
			return err
		}
		done := make(map[string]bool, len(completed))
		for _, id := range completed {
			done[id] = true
		}
		for _, fileID := range fileIDs {
			if done[fileID] {
				continue
			}
			reqs = append(reqs, service.IngestRequest{TenantID: tenantID, FileID: fileID})
		}
	}

	if len(reqs) == 0 {
		return nil
	}
	log.Printf("scan: found %d new files", len(reqs))

	results, err := p.ingester.IngestBatch(ctx, reqs)
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.Status == domain.OutcomeFailed {
			log.Printf("scan: ingest failed tenant=%s file=%s: %s", res.TenantID, res.FileID, res.Detail)
		}
	}
	return nil
}

// splitSourceKey splits "tenant/path/to/file" into tenant and file parts.
// Keys without a tenant prefix, and directory placeholders, are skipped.
func splitSourceKey(key string) (tenantID, fileID string, ok bool) {
	tenantID, fileID, found := strings.Cut(key, "/")
	if !found || tenantID == "" || fileID == "" || strings.HasSuffix(fileID, "/") {
		return "", "", false
	}
	return tenantID, fileID, true
}
