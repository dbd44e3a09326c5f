package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/canvas-alt-text-api/internal/dto"
	"github.com/noah-isme/canvas-alt-text-api/internal/models"
	"github.com/noah-isme/canvas-alt-text-api/internal/repository"
	"github.com/noah-isme/canvas-alt-text-api/pkg/jobs"
)

// JobTypeCourseScan names the scan job on the queue.
const JobTypeCourseScan = "course_scan"

const (
	scanStatusCacheTTL   = 30 * time.Second
	contentListCacheTTL  = 2 * time.Minute
	scanStatusCacheKey   = "alttext:course:%d:status"
	contentImagesCacheKey = "alttext:course:%d:content:%s"
)

// ScanStore is the persistence surface for scan lifecycle and snapshots.
type ScanStore interface {
	UpsertScan(ctx context.Context, courseID int64, taskHandle string) (*models.CourseScan, error)
	SetScanStatus(ctx context.Context, courseID int64, status models.ScanStatus) error
	GetScan(ctx context.Context, courseID int64) (*models.CourseScan, error)
	ListUnfinishedScans(ctx context.Context) ([]models.CourseScan, error)
	SaveScanResults(ctx context.Context, courseID int64, contents []models.ScannedContent) error
	ListContentItems(ctx context.Context, courseID int64, contentTypes []string) ([]models.ContentItem, error)
	ListImagesByContent(ctx context.Context, courseID int64) (map[int64][]models.ImageItem, error)
	ContentImageCounts(ctx context.Context, courseID int64) ([]repository.ContentImageCount, error)
}

// ScanEnqueuer is the queue surface the service pushes scan jobs onto.
type ScanEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// CourseEnumerator walks a course and returns its image-bearing content.
type CourseEnumerator interface {
	EnumerateCourse(ctx context.Context, courseID int64) ([]models.ScannedContent, error)
}

// CourseProcessor captions a course's uncaptioned images.
type CourseProcessor interface {
	ProcessCourse(ctx context.Context, courseID int64) error
}

// ScanService owns the scan lifecycle: it accepts scan requests, runs them
// on the job queue and serves the resulting snapshots.
type ScanService struct {
	store      ScanStore
	queue      ScanEnqueuer
	enumerator CourseEnumerator
	processor  CourseProcessor
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewScanService constructs the scan service. The queue is attached later
// through SetQueue because queue and handler reference each other.
func NewScanService(store ScanStore, enumerator CourseEnumerator, processor CourseProcessor, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanService{
		store:      store,
		enumerator: enumerator,
		processor:  processor,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
	}
}

// SetQueue attaches the job queue the service enqueues scans onto.
func (s *ScanService) SetQueue(queue ScanEnqueuer) {
	s.queue = queue
}

// StartScan records a scan request for the course and queues the work. A
// repeated request resets the existing record instead of creating a second
// one, so the returned task handle always reflects the latest request.
func (s *ScanService) StartScan(ctx context.Context, courseID int64) (*dto.ScanTriggerResponse, error) {
	taskHandle := uuid.NewString()
	scan, err := s.store.UpsertScan(ctx, courseID, taskHandle)
	if err != nil {
		return nil, err
	}

	if err := s.queue.Enqueue(jobs.Job{ID: taskHandle, Type: JobTypeCourseScan, Payload: courseID}); err != nil {
		return nil, fmt.Errorf("enqueue scan for course %d: %w", courseID, err)
	}

	s.logger.Info("scan queued", zap.Int64("course_id", courseID), zap.String("task_handle", taskHandle))
	return &dto.ScanTriggerResponse{
		CourseID:   scan.CourseID,
		ID:         scan.ID,
		TaskHandle: taskHandle,
		Status:     scan.Status,
	}, nil
}

// HandleScanJob is the queue handler: it runs one full course scan.
func (s *ScanService) HandleScanJob(ctx context.Context, job jobs.Job) error {
	courseID, ok := job.Payload.(int64)
	if !ok {
		return fmt.Errorf("scan job %s: unexpected payload %T", job.ID, job.Payload)
	}
	return s.runScan(ctx, courseID)
}

// runScan executes the scan pipeline: enumerate content, snapshot it, then
// caption the discovered images. Status writes are best-effort; a failed
// status update never aborts the scan itself.
func (s *ScanService) runScan(ctx context.Context, courseID int64) error {
	start := time.Now()
	s.setStatus(ctx, courseID, models.ScanStatusRunning)

	contents, err := s.enumerator.EnumerateCourse(ctx, courseID)
	if err != nil {
		s.finishScan(ctx, courseID, models.ScanStatusFailed, start)
		return fmt.Errorf("enumerate course %d: %w", courseID, err)
	}

	if err := s.store.SaveScanResults(ctx, courseID, contents); err != nil {
		s.finishScan(ctx, courseID, models.ScanStatusFailed, start)
		return err
	}

	if err := s.processor.ProcessCourse(ctx, courseID); err != nil {
		s.finishScan(ctx, courseID, models.ScanStatusFailed, start)
		return fmt.Errorf("process course %d: %w", courseID, err)
	}

	s.finishScan(ctx, courseID, models.ScanStatusCompleted, start)
	s.logger.Info("scan finished",
		zap.Int64("course_id", courseID),
		zap.Int("content_items", len(contents)),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (s *ScanService) finishScan(ctx context.Context, courseID int64, status models.ScanStatus, start time.Time) {
	s.setStatus(ctx, courseID, status)
	if s.metrics != nil {
		s.metrics.ObserveScan(string(status), time.Since(start))
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("alttext:course:%d:*", courseID))
	}
}

func (s *ScanService) setStatus(ctx context.Context, courseID int64, status models.ScanStatus) {
	if err := s.store.SetScanStatus(ctx, courseID, status); err != nil {
		s.logger.Warn("scan status update failed",
			zap.Int64("course_id", courseID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

// RecoverPendingScans requeues scans that were pending or running when the
// process last stopped.
func (s *ScanService) RecoverPendingScans(ctx context.Context) error {
	scans, err := s.store.ListUnfinishedScans(ctx)
	if err != nil {
		return err
	}
	for _, scan := range scans {
		handle := uuid.NewString()
		if scan.TaskHandle != nil && *scan.TaskHandle != "" {
			handle = *scan.TaskHandle
		}
		if err := s.queue.Enqueue(jobs.Job{ID: handle, Type: JobTypeCourseScan, Payload: scan.CourseID}); err != nil {
			return fmt.Errorf("requeue scan for course %d: %w", scan.CourseID, err)
		}
		s.logger.Info("scan requeued after restart", zap.Int64("course_id", scan.CourseID))
	}
	return nil
}

// GetScanStatus returns the course's scan record together with per-type
// content summaries. Found is false when the course has never been scanned.
func (s *ScanService) GetScanStatus(ctx context.Context, courseID int64) (*dto.ScanStatusResponse, error) {
	cacheKey := fmt.Sprintf(scanStatusCacheKey, courseID)
	var cached dto.ScanStatusResponse
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	scan, err := s.store.GetScan(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if scan == nil {
		return &dto.ScanStatusResponse{Found: false}, nil
	}

	counts, err := s.store.ContentImageCounts(ctx, courseID)
	if err != nil {
		return nil, err
	}

	content := dto.CourseContent{
		AssignmentList:   []dto.ContentSummary{},
		PageList:         []dto.ContentSummary{},
		QuizList:         []dto.ContentSummary{},
		QuizQuestionList: []dto.ContentSummary{},
	}
	for _, c := range counts {
		summary := dto.ContentSummary{
			ID:         c.ID,
			CanvasID:   c.CanvasID,
			ImageCount: c.ImageCount,
		}
		if c.CanvasName != nil {
			summary.CanvasName = *c.CanvasName
		}
		switch c.ContentType {
		case models.ContentTypeAssignment:
			content.AssignmentList = append(content.AssignmentList, summary)
		case models.ContentTypePage:
			content.PageList = append(content.PageList, summary)
		case models.ContentTypeQuiz:
			content.QuizList = append(content.QuizList, summary)
		case models.ContentTypeQuizQuestion:
			content.QuizQuestionList = append(content.QuizQuestionList, summary)
		}
	}

	resp := &dto.ScanStatusResponse{
		Found: true,
		ScanDetail: &dto.ScanDetail{
			ID:            scan.ID,
			CourseID:      scan.CourseID,
			Status:        scan.Status,
			CreatedAt:     scan.CreatedAt,
			UpdatedAt:     scan.UpdatedAt,
			CourseContent: content,
		},
	}
	_ = s.cache.Set(ctx, cacheKey, resp, scanStatusCacheTTL)
	return resp, nil
}

// GetContentImages returns the course's tracked content of the requested
// type with its images. Asking for quizzes includes quiz questions, since
// reviewers handle both together.
func (s *ScanService) GetContentImages(ctx context.Context, courseID int64, contentType string) (*dto.ContentImagesResponse, error) {
	cacheKey := fmt.Sprintf(contentImagesCacheKey, courseID, contentType)
	var cached dto.ContentImagesResponse
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	types := []string{contentType}
	if contentType == models.ContentTypeQuiz {
		types = append(types, models.ContentTypeQuizQuestion)
	}

	items, err := s.store.ListContentItems(ctx, courseID, types)
	if err != nil {
		return nil, err
	}
	imagesByContent, err := s.store.ListImagesByContent(ctx, courseID)
	if err != nil {
		return nil, err
	}

	resp := &dto.ContentImagesResponse{ContentItems: []dto.ContentWithImages{}}
	for _, item := range items {
		images := imagesByContent[item.ID]
		if len(images) == 0 {
			continue
		}
		entry := dto.ContentWithImages{
			ContentID:       item.ContentID,
			ContentName:     item.ContentName,
			ContentParentID: item.ContentParentID,
			ContentType:     item.ContentType,
			Images:          make([]dto.ImageInfo, 0, len(images)),
		}
		for _, img := range images {
			entry.Images = append(entry.Images, dto.ImageInfo{
				ImageURL:     img.ImageURL,
				ImageID:      img.ID,
				ImageAltText: img.ImageAltText,
			})
		}
		resp.ContentItems = append(resp.ContentItems, entry)
	}

	_ = s.cache.Set(ctx, cacheKey, resp, contentListCacheTTL)
	return resp, nil
}
