package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/memento-ai/mementod/internal/domain"
	"github.com/memento-ai/mementod/internal/retry"
)

// ImageStore uploads extracted image bytes and returns a URL the vision
// model can fetch.
type ImageStore interface {
	UploadObject(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ImageDescriber produces a text description of the image at a URL.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, imageURL string) (string, error)
}

// ImageService deduplicates extracted images, uploads them to asset storage
// and describes them with the vision model. Upload and description failures
// degrade the image (empty URL or description) instead of failing the file.
type ImageService struct {
	store       ImageStore
	describer   ImageDescriber
	retryPolicy retry.Policy
	concurrency int
}

// NewImageService creates a new ImageService instance.
func NewImageService(store ImageStore, describer ImageDescriber, retryable func(error) bool, concurrency int) *ImageService {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &ImageService{
		store:       store,
		describer:   describer,
		retryPolicy: retry.DefaultPolicy(retryable),
		concurrency: concurrency,
	}
}

// Dedupe collapses byte-identical images into one record per content hash,
// merging positions, and fills each unit's ImageIDs with the hashes of the
// images occurring on its page. Order is deterministic: records are sorted
// by first position.
func Dedupe(units []domain.ExtractedUnit, raw []domain.ExtractedImage) []*domain.ExtractedImage {
	byHash := make(map[string]*domain.ExtractedImage)
	var order []string
	for i := range raw {
		img := raw[i]
		sum := sha256.Sum256(img.Data)
		id := hex.EncodeToString(sum[:])
		if existing, ok := byHash[id]; ok {
			existing.Positions = append(existing.Positions, img.Positions...)
			continue
		}
		img.ID = id
		byHash[id] = &img
		order = append(order, id)
	}

	images := make([]*domain.ExtractedImage, 0, len(order))
	for _, id := range order {
		images = append(images, byHash[id])
	}
	sort.SliceStable(images, func(i, j int) bool {
		a, b := images[i].FirstPosition(), images[j].FirstPosition()
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		return a.Order < b.Order
	})

	pageImages := make(map[int][]string)
	for _, img := range images {
		seen := make(map[int]bool)
		for _, pos := range img.Positions {
			if pos.Page < 0 || seen[pos.Page] {
				continue
			}
			seen[pos.Page] = true
			pageImages[pos.Page] = append(pageImages[pos.Page], img.ID)
		}
	}
	for i := range units {
		units[i].ImageIDs = pageImages[units[i].Position]
	}

	return images
}

// Upload stores each image under tenant/file/hash and records the resulting
// URL on the record. A failed upload logs and leaves the URL empty; the
// image is then skipped by description.
func (s *ImageService) Upload(ctx context.Context, images []*domain.ExtractedImage) {
	for _, img := range images {
		key := fmt.Sprintf("%s/%s/%s.%s", img.TenantID, img.FileID, img.ID, img.Format)
		url, err := s.store.UploadObject(ctx, key, img.Data, imageContentType(img.Format))
		if err != nil {
			log.Printf("image upload failed tenant=%s file=%s image=%s: %v", img.TenantID, img.FileID, img.ID, err)
			continue
		}
		img.URL = url
	}
}

// Describe runs vision description for every uploaded image, bounded by the
// service concurrency. Each description is retried under the backoff policy;
// exhaustion leaves the description empty and the pipeline continues.
func (s *ImageService) Describe(ctx context.Context, images []*domain.ExtractedImage) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, img := range images {
		if img.URL == "" {
			continue
		}
		img := img
		g.Go(func() error {
			err := s.retryPolicy.Do(ctx, func() error {
				desc, err := s.describer.DescribeImage(ctx, img.URL)
				if err != nil {
					return err
				}
				img.Description = desc
				return nil
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("image description failed tenant=%s file=%s image=%s: %v", img.TenantID, img.FileID, img.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func imageContentType(format string) string {
	switch format {
	case "jpg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	default:
		return "image/png"
	}
}
