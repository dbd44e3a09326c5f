package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/canvas-alt-text-api/internal/models"
	"github.com/noah-isme/canvas-alt-text-api/internal/taskpool"
	appErrors "github.com/noah-isme/canvas-alt-text-api/pkg/errors"
)

// FileFetcher downloads raw image bytes from the LMS.
type FileFetcher interface {
	DownloadFile(ctx context.Context, fileURL string) ([]byte, error)
}

// ImageOptimizer normalizes a raw payload into a bounded JPEG.
type ImageOptimizer interface {
	Optimize(src []byte) ([]byte, error)
}

// CaptionGenerator produces alt text for a JPEG payload. ("", nil) means the
// model declined; only transport failures are errors.
type CaptionGenerator interface {
	Caption(ctx context.Context, imageData []byte) (string, error)
}

// ImageStore is the persistence surface the processor writes captions to.
type ImageStore interface {
	ListUncaptionedImages(ctx context.Context, courseID int64) ([]models.ImageItem, error)
	BulkUpdateAltText(ctx context.Context, captions map[int64]string) error
}

// ImageProcessorService captions a course's uncaptioned images with bounded
// concurrency. Failures are isolated per image: every caption that succeeds
// is persisted even when siblings fail, and the per-image errors come back
// collected in one batch error.
type ImageProcessorService struct {
	fetcher     FileFetcher
	optimizer   ImageOptimizer
	captioner   CaptionGenerator
	store       ImageStore
	metrics     *MetricsService
	concurrency int
	logger      *zap.Logger
}

// NewImageProcessorService constructs the processor.
func NewImageProcessorService(fetcher FileFetcher, optimizer ImageOptimizer, captioner CaptionGenerator, store ImageStore, metrics *MetricsService, concurrency int, logger *zap.Logger) *ImageProcessorService {
	if concurrency <= 0 {
		concurrency = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageProcessorService{
		fetcher:     fetcher,
		optimizer:   optimizer,
		captioner:   captioner,
		store:       store,
		metrics:     metrics,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ProcessCourse captions every image of the course that still lacks alt
// text. Captions that were generated are always written back; when one or
// more images failed, the write happens first and the batch error is
// returned after.
func (s *ImageProcessorService) ProcessCourse(ctx context.Context, courseID int64) error {
	images, err := s.store.ListUncaptionedImages(ctx, courseID)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return nil
	}

	results := taskpool.Gather(ctx, s.concurrency, images,
		func(ctx context.Context, img models.ImageItem) (string, error) {
			return s.captionOne(ctx, img)
		})

	captions := make(map[int64]string)
	var failures []error
	for i, res := range results {
		if res.Err != nil {
			failures = append(failures, fmt.Errorf("image %d: %w", images[i].ID, res.Err))
			s.metrics.CountImageStage("failed")
			continue
		}
		// An empty caption means the model had nothing to say; leave the
		// row untouched so a later run can retry it.
		if res.Value == "" {
			continue
		}
		captions[images[i].ID] = res.Value
	}

	if err := s.store.BulkUpdateAltText(ctx, captions); err != nil {
		failures = append(failures, err)
	}

	s.logger.Info("image processing finished",
		zap.Int64("course_id", courseID),
		zap.Int("images", len(images)),
		zap.Int("captioned", len(captions)),
		zap.Int("failed", len(failures)))

	if batch := appErrors.NewBatchError(failures); batch != nil {
		return batch
	}
	return nil
}

func (s *ImageProcessorService) captionOne(ctx context.Context, img models.ImageItem) (string, error) {
	raw, err := s.fetcher.DownloadFile(ctx, img.ImageURL)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	s.metrics.CountImageStage("fetched")

	optimized, err := s.optimizer.Optimize(raw)
	if err != nil {
		return "", fmt.Errorf("optimize: %w", err)
	}
	s.metrics.CountImageStage("optimized")

	start := time.Now()
	caption, err := s.captioner.Caption(ctx, optimized)
	s.metrics.ObserveCaption(time.Since(start))
	if err != nil {
		return "", fmt.Errorf("caption: %w", err)
	}
	if caption == "" {
		return "", nil
	}
	s.metrics.CountImageStage("captioned")

	// Bound is in characters, so cut on a rune boundary.
	if runes := []rune(caption); len(runes) > models.MaxAltTextLength {
		caption = string(runes[:models.MaxAltTextLength])
	}
	return caption, nil
}
