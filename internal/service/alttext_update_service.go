package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/canvas-alt-text-api/internal/canvas"
	"github.com/noah-isme/canvas-alt-text-api/internal/htmlscan"
	"github.com/noah-isme/canvas-alt-text-api/internal/models"
	"github.com/noah-isme/canvas-alt-text-api/internal/taskpool"
	appErrors "github.com/noah-isme/canvas-alt-text-api/pkg/errors"
)

// ContentEditor abstracts the LMS read/write calls the update engine needs.
// Reads always hit the LMS fresh so edits land on current HTML, never on the
// scan-time snapshot.
type ContentEditor interface {
	GetAssignment(ctx context.Context, courseID, assignmentID int64) (*canvas.Assignment, error)
	GetPage(ctx context.Context, courseID, pageID int64) (*canvas.Page, error)
	GetQuiz(ctx context.Context, courseID, quizID int64) (*canvas.Quiz, error)
	GetQuizQuestion(ctx context.Context, courseID, quizID, questionID int64) (*canvas.QuizQuestion, error)
	EditAssignment(ctx context.Context, courseID, assignmentID int64, description string) error
	EditPage(ctx context.Context, courseID, pageID int64, body string) error
	EditQuiz(ctx context.Context, courseID, quizID int64, description string) error
	EditQuizQuestion(ctx context.Context, courseID, quizID, questionID int64, text string) error
}

// ReviewStore is the persistence surface for post-review cleanup.
type ReviewStore interface {
	GetContentParent(ctx context.Context, courseID int64, contentType string, canvasID int64) (*int64, error)
	DeleteImages(ctx context.Context, ids []int64) error
	DeleteOrphanContentItems(ctx context.Context, courseID int64) (int64, error)
}

// AltTextUpdateService applies reviewer decisions to live LMS content. One
// submission updates a single content family: pages take precedence over
// assignments, which take precedence over quizzes and quiz questions.
// Content item failures are isolated; the annotated payload comes back as a
// report either way.
type AltTextUpdateService struct {
	editor      ContentEditor
	store       ReviewStore
	cache       *CacheService
	domain      string
	concurrency int
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewAltTextUpdateService constructs the update engine. domain is the LMS
// host; only images served from it get their URL rewritten during
// enrichment.
func NewAltTextUpdateService(editor ContentEditor, store ReviewStore, cache *CacheService, domain string, concurrency int, logger *zap.Logger) *AltTextUpdateService {
	if concurrency <= 0 {
		concurrency = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AltTextUpdateService{
		editor:      editor,
		store:       store,
		cache:       cache,
		domain:      domain,
		concurrency: concurrency,
		validate:    validator.New(),
		logger:      logger,
	}
}

// SubmitUpdate validates the reviewed payload, writes approved alt text back
// to the LMS and cleans up the reviewed snapshot rows. It returns ok=true
// when every write succeeded, and the annotated payload as the report. An
// error is returned only for invalid input, including an image URL that
// cannot be enriched; write failures are carried inside the report.
func (s *AltTextUpdateService) SubmitUpdate(ctx context.Context, courseID int64, items []models.ContentPayload) (bool, []models.ContentPayload, error) {
	for i := range items {
		if err := s.validate.Struct(&items[i]); err != nil {
			return false, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
		}
	}

	if err := s.enrichImageURLs(courseID, items); err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrBadContentURL.Code, appErrors.ErrBadContentURL.Status, appErrors.ErrBadContentURL.Message)
	}

	// Writes fan out across the items of the selected family, bounded by
	// the same cap the caption pipeline runs under.
	family := s.selectFamily(items)
	results := taskpool.Gather(ctx, s.concurrency, family,
		func(ctx context.Context, item models.ContentPayload) (struct{}, error) {
			if !item.HasApproved() {
				return struct{}{}, nil
			}
			return struct{}{}, s.updateContent(ctx, courseID, item)
		})
	for i, res := range results {
		item := family[i]
		if !item.HasApproved() {
			continue
		}
		if res.Err != nil {
			s.logger.Warn("content update failed",
				zap.Int64("course_id", courseID),
				zap.String("content_type", item.ContentType),
				zap.Int64("content_id", item.ContentID),
				zap.Error(res.Err))
			markApproved(item, false, res.Err.Error())
			continue
		}
		markApproved(item, true, "")
	}

	s.cleanup(ctx, courseID, items)

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("alttext:course:%d:*", courseID))
	}

	ok := true
	for i := range items {
		for j := range items[i].Images {
			if items[i].Images[j].Failed() {
				ok = false
			}
		}
	}
	return ok, items, nil
}

// enrichImageURLs computes, for every image, the src value the live HTML is
// expected to carry so the rewriter can find the right element. Only
// approved images hosted on the LMS domain get the preview transform;
// skipped and external images keep their original URL, which is what the
// live HTML embeds for them. A URL that cannot be parsed aborts the whole
// submission before any write is attempted.
func (s *AltTextUpdateService) enrichImageURLs(courseID int64, items []models.ContentPayload) error {
	for i := range items {
		for j := range items[i].Images {
			img := &items[i].Images[j]
			parsed, err := url.Parse(img.ImageURL)
			if err != nil {
				return fmt.Errorf("image %d: parse url: %w", img.ImageID, err)
			}
			if parsed.Host == s.domain && img.Action == models.ActionApprove {
				preview, err := htmlscan.PreviewURL(img.ImageURL, courseID)
				if err != nil {
					return fmt.Errorf("image %d: %w", img.ImageID, err)
				}
				img.UpdateURL = preview
				continue
			}
			img.UpdateURL = img.ImageURL
		}
	}
	return nil
}

// selectFamily picks the single content family this submission will write.
func (s *AltTextUpdateService) selectFamily(items []models.ContentPayload) []models.ContentPayload {
	byType := map[string][]models.ContentPayload{}
	for _, item := range items {
		byType[item.ContentType] = append(byType[item.ContentType], item)
	}
	if pages := byType[models.ContentTypePage]; len(pages) > 0 {
		return pages
	}
	if assignments := byType[models.ContentTypeAssignment]; len(assignments) > 0 {
		return assignments
	}
	return append(byType[models.ContentTypeQuiz], byType[models.ContentTypeQuizQuestion]...)
}

func (s *AltTextUpdateService) updateContent(ctx context.Context, courseID int64, item models.ContentPayload) error {
	switch item.ContentType {
	case models.ContentTypePage:
		page, err := s.editor.GetPage(ctx, courseID, item.ContentID)
		if err != nil {
			return err
		}
		updated, err := htmlscan.ApplyAltText(page.Body, item.Images)
		if err != nil {
			return err
		}
		return s.editor.EditPage(ctx, courseID, item.ContentID, updated)

	case models.ContentTypeAssignment:
		assignment, err := s.editor.GetAssignment(ctx, courseID, item.ContentID)
		if err != nil {
			return err
		}
		updated, err := htmlscan.ApplyAltText(assignment.Description, item.Images)
		if err != nil {
			return err
		}
		return s.editor.EditAssignment(ctx, courseID, item.ContentID, updated)

	case models.ContentTypeQuiz:
		quiz, err := s.editor.GetQuiz(ctx, courseID, item.ContentID)
		if err != nil {
			return err
		}
		updated, err := htmlscan.ApplyAltText(quiz.Description, item.Images)
		if err != nil {
			return err
		}
		return s.editor.EditQuiz(ctx, courseID, item.ContentID, updated)

	case models.ContentTypeQuizQuestion:
		quizID, err := s.resolveQuizID(ctx, courseID, item)
		if err != nil {
			return err
		}
		question, err := s.editor.GetQuizQuestion(ctx, courseID, quizID, item.ContentID)
		if err != nil {
			return err
		}
		updated, err := htmlscan.ApplyAltText(question.QuestionText, item.Images)
		if err != nil {
			return err
		}
		return s.editor.EditQuizQuestion(ctx, courseID, quizID, item.ContentID, updated)

	default:
		return fmt.Errorf("unsupported content type %q", item.ContentType)
	}
}

// resolveQuizID finds the quiz a question belongs to, preferring the parent
// id carried in the payload and falling back to the stored snapshot.
func (s *AltTextUpdateService) resolveQuizID(ctx context.Context, courseID int64, item models.ContentPayload) (int64, error) {
	if item.ContentParentID != nil {
		return *item.ContentParentID, nil
	}
	parent, err := s.store.GetContentParent(ctx, courseID, models.ContentTypeQuizQuestion, item.ContentID)
	if err != nil {
		return 0, err
	}
	if parent == nil {
		return 0, fmt.Errorf("quiz question %d: owning quiz unknown", item.ContentID)
	}
	return *parent, nil
}

// cleanup removes reviewed image rows that did not fail, then any content
// rows left with no images. DB errors here never sink the submission.
func (s *AltTextUpdateService) cleanup(ctx context.Context, courseID int64, items []models.ContentPayload) {
	var reviewed []int64
	for i := range items {
		for j := range items[i].Images {
			img := &items[i].Images[j]
			if img.Failed() {
				continue
			}
			if img.Action == models.ActionApprove || img.Action == models.ActionSkip {
				reviewed = append(reviewed, img.ImageID)
			}
		}
	}
	if err := s.store.DeleteImages(ctx, reviewed); err != nil {
		s.logger.Warn("reviewed image cleanup failed", zap.Int64("course_id", courseID), zap.Error(err))
		return
	}
	if _, err := s.store.DeleteOrphanContentItems(ctx, courseID); err != nil {
		s.logger.Warn("orphan content cleanup failed", zap.Int64("course_id", courseID), zap.Error(err))
	}
}

// markApproved annotates every approved image of the item with the write
// outcome. The item shares its Images backing array with the submitted
// payload, so annotations land in the caller's report.
func markApproved(item models.ContentPayload, updated bool, failure string) {
	for i := range item.Images {
		if item.Images[i].Action != models.ActionApprove {
			continue
		}
		flag := updated
		item.Images[i].Updated = &flag
		if failure != "" {
			msg := failure
			item.Images[i].FailureMessage = &msg
		}
	}
}
