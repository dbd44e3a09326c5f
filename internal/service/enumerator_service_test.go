package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/canvas-alt-text-api/internal/canvas"
	"github.com/noah-isme/canvas-alt-text-api/internal/models"
)

type listerStub struct {
	assignments []canvas.Assignment
	pages       []canvas.Page
	quizzes     []canvas.Quiz
	questions   map[int64][]canvas.QuizQuestion

	assignmentsErr error
	pagesErr       error
	quizzesErr     error
	questionsErr   error
}

func (l *listerStub) ListAssignments(ctx context.Context, courseID int64) ([]canvas.Assignment, error) {
	return l.assignments, l.assignmentsErr
}

func (l *listerStub) ListPages(ctx context.Context, courseID int64) ([]canvas.Page, error) {
	return l.pages, l.pagesErr
}

func (l *listerStub) ListQuizzes(ctx context.Context, courseID int64) ([]canvas.Quiz, error) {
	return l.quizzes, l.quizzesErr
}

func (l *listerStub) ListQuizQuestions(ctx context.Context, courseID, quizID int64) ([]canvas.QuizQuestion, error) {
	if l.questionsErr != nil {
		return nil, l.questionsErr
	}
	return l.questions[quizID], nil
}

func TestEnumerateCourseCollectsAllTypes(t *testing.T) {
	backingQuiz := int64(300)
	lister := &listerStub{
		assignments: []canvas.Assignment{
			{ID: 10, Name: "HW 1", Description: `<img src="https://canvas.example.edu/files/101/download">`},
			{ID: 11, Name: "Quiz shell", Description: `<img src="https://canvas.example.edu/files/102/download">`, QuizID: &backingQuiz},
			{ID: 12, Name: "No images", Description: "<p>text only</p>"},
		},
		pages: []canvas.Page{
			{PageID: 20, Title: "Syllabus", Body: `<img src="https://canvas.example.edu/files/103/download">`},
		},
		quizzes: []canvas.Quiz{
			{ID: 300, Title: "Midterm", Description: `<img src="https://canvas.example.edu/files/104/download">`},
		},
		questions: map[int64][]canvas.QuizQuestion{
			300: {{ID: 31, QuizID: 300, QuestionName: "Q1", QuestionText: `<img src="https://canvas.example.edu/files/105/download">`}},
		},
	}

	svc := NewEnumeratorService(lister, 2, nil)
	contents, err := svc.EnumerateCourse(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, contents, 4)

	byType := map[string]models.ScannedContent{}
	for _, c := range contents {
		byType[c.ContentType] = c
	}
	assert.Equal(t, int64(10), byType[models.ContentTypeAssignment].ContentID)
	assert.Equal(t, int64(20), byType[models.ContentTypePage].ContentID)
	assert.Equal(t, int64(300), byType[models.ContentTypeQuiz].ContentID)

	question := byType[models.ContentTypeQuizQuestion]
	assert.Equal(t, int64(31), question.ContentID)
	require.NotNil(t, question.ContentParentID)
	assert.Equal(t, int64(300), *question.ContentParentID)
}

func TestEnumerateCourseSkipsQuizBackedAssignments(t *testing.T) {
	backingQuiz := int64(300)
	lister := &listerStub{
		assignments: []canvas.Assignment{
			{ID: 11, Name: "Quiz shell", Description: `<img src="https://canvas.example.edu/files/102/download">`, QuizID: &backingQuiz},
		},
	}

	svc := NewEnumeratorService(lister, 2, nil)
	contents, err := svc.EnumerateCourse(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, contents)
}

func TestEnumerateCourseFailsOnListingError(t *testing.T) {
	lister := &listerStub{pagesErr: errors.New("canvas unreachable")}
	svc := NewEnumeratorService(lister, 2, nil)

	_, err := svc.EnumerateCourse(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canvas unreachable")
}

func TestEnumerateCourseFailsOnUnresolvableImage(t *testing.T) {
	lister := &listerStub{
		pages: []canvas.Page{
			{PageID: 20, Title: "Broken", Body: `<img src="https://canvas.example.edu/not-a-file/path">`},
		},
	}
	svc := NewEnumeratorService(lister, 2, nil)

	_, err := svc.EnumerateCourse(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 20")
}

func TestEnumerateCourseFailsOnQuestionListingError(t *testing.T) {
	lister := &listerStub{
		quizzes:      []canvas.Quiz{{ID: 300, Title: "Midterm"}},
		questionsErr: errors.New("quiz locked"),
	}
	svc := NewEnumeratorService(lister, 2, nil)

	_, err := svc.EnumerateCourse(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quiz locked")
}
