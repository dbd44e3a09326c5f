package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/canvas-alt-text-api/internal/canvas"
	"github.com/noah-isme/canvas-alt-text-api/internal/htmlscan"
	"github.com/noah-isme/canvas-alt-text-api/internal/models"
	"github.com/noah-isme/canvas-alt-text-api/internal/taskpool"
)

// ContentLister abstracts the LMS listing calls the enumerator needs.
type ContentLister interface {
	ListAssignments(ctx context.Context, courseID int64) ([]canvas.Assignment, error)
	ListPages(ctx context.Context, courseID int64) ([]canvas.Page, error)
	ListQuizzes(ctx context.Context, courseID int64) ([]canvas.Quiz, error)
	ListQuizQuestions(ctx context.Context, courseID, quizID int64) ([]canvas.QuizQuestion, error)
}

// EnumeratorService walks a course's assignments, pages, quizzes and quiz
// questions, extracting image references from each HTML field. The three
// top-level listings run concurrently; any listing or extraction failure
// aborts the whole enumeration.
type EnumeratorService struct {
	lister      ContentLister
	concurrency int
	logger      *zap.Logger
}

// NewEnumeratorService constructs the enumerator. concurrency bounds the
// nested quiz-question listings.
func NewEnumeratorService(lister ContentLister, concurrency int, logger *zap.Logger) *EnumeratorService {
	if concurrency <= 0 {
		concurrency = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnumeratorService{lister: lister, concurrency: concurrency, logger: logger}
}

// EnumerateCourse returns every content object in the course that contains
// at least one image needing alt text. Content with no such images is
// dropped entirely.
func (s *EnumeratorService) EnumerateCourse(ctx context.Context, courseID int64) ([]models.ScannedContent, error) {
	kinds := []func(context.Context, int64) ([]models.ScannedContent, error){
		s.scanAssignments,
		s.scanPages,
		s.scanQuizzes,
	}

	results := taskpool.Gather(ctx, len(kinds), kinds,
		func(ctx context.Context, scan func(context.Context, int64) ([]models.ScannedContent, error)) ([]models.ScannedContent, error) {
			return scan(ctx, courseID)
		})

	var contents []models.ScannedContent
	for _, res := range results {
		if res.Err != nil {
			return nil, res.Err
		}
		contents = append(contents, res.Value...)
	}

	s.logger.Info("course enumeration finished",
		zap.Int64("course_id", courseID),
		zap.Int("content_items", len(contents)))
	return contents, nil
}

func (s *EnumeratorService) scanAssignments(ctx context.Context, courseID int64) ([]models.ScannedContent, error) {
	assignments, err := s.lister.ListAssignments(ctx, courseID)
	if err != nil {
		return nil, err
	}

	var contents []models.ScannedContent
	for _, assignment := range assignments {
		// Quiz-backed assignments surface again through the quiz listing;
		// counting them here would duplicate their images.
		if assignment.QuizID != nil {
			continue
		}
		images, err := htmlscan.ExtractImages(assignment.Description)
		if err != nil {
			return nil, fmt.Errorf("assignment %d: %w", assignment.ID, err)
		}
		if len(images) == 0 {
			continue
		}
		contents = append(contents, models.ScannedContent{
			ContentID:   assignment.ID,
			ContentName: assignment.Name,
			ContentType: models.ContentTypeAssignment,
			Images:      images,
		})
	}
	return contents, nil
}

func (s *EnumeratorService) scanPages(ctx context.Context, courseID int64) ([]models.ScannedContent, error) {
	pages, err := s.lister.ListPages(ctx, courseID)
	if err != nil {
		return nil, err
	}

	var contents []models.ScannedContent
	for _, page := range pages {
		images, err := htmlscan.ExtractImages(page.Body)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page.PageID, err)
		}
		if len(images) == 0 {
			continue
		}
		contents = append(contents, models.ScannedContent{
			ContentID:   page.PageID,
			ContentName: page.Title,
			ContentType: models.ContentTypePage,
			Images:      images,
		})
	}
	return contents, nil
}

func (s *EnumeratorService) scanQuizzes(ctx context.Context, courseID int64) ([]models.ScannedContent, error) {
	quizzes, err := s.lister.ListQuizzes(ctx, courseID)
	if err != nil {
		return nil, err
	}

	var contents []models.ScannedContent
	for _, quiz := range quizzes {
		images, err := htmlscan.ExtractImages(quiz.Description)
		if err != nil {
			return nil, fmt.Errorf("quiz %d: %w", quiz.ID, err)
		}
		if len(images) > 0 {
			contents = append(contents, models.ScannedContent{
				ContentID:   quiz.ID,
				ContentName: quiz.Title,
				ContentType: models.ContentTypeQuiz,
				Images:      images,
			})
		}
	}

	// Question listings are one call per quiz; bound them so a large course
	// does not open an unbounded number of connections.
	results := taskpool.Gather(ctx, s.concurrency, quizzes,
		func(ctx context.Context, quiz canvas.Quiz) ([]models.ScannedContent, error) {
			return s.scanQuizQuestions(ctx, courseID, quiz)
		})
	for _, res := range results {
		if res.Err != nil {
			return nil, res.Err
		}
		contents = append(contents, res.Value...)
	}
	return contents, nil
}

func (s *EnumeratorService) scanQuizQuestions(ctx context.Context, courseID int64, quiz canvas.Quiz) ([]models.ScannedContent, error) {
	questions, err := s.lister.ListQuizQuestions(ctx, courseID, quiz.ID)
	if err != nil {
		return nil, err
	}

	var contents []models.ScannedContent
	for _, question := range questions {
		images, err := htmlscan.ExtractImages(question.QuestionText)
		if err != nil {
			return nil, fmt.Errorf("quiz question %d: %w", question.ID, err)
		}
		if len(images) == 0 {
			continue
		}
		quizID := quiz.ID
		contents = append(contents, models.ScannedContent{
			ContentID:       question.ID,
			ContentName:     question.QuestionName,
			ContentType:     models.ContentTypeQuizQuestion,
			ContentParentID: &quizID,
			Images:          images,
		})
	}
	return contents, nil
}
