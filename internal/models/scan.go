package models

import "time"

// ScanStatus tracks the lifecycle of a course scan.
type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "pending"
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// Content types a scan can discover images in.
const (
	ContentTypeAssignment   = "assignment"
	ContentTypePage         = "page"
	ContentTypeQuiz         = "quiz"
	ContentTypeQuizQuestion = "quiz_question"
)

// MaxAltTextLength bounds generated and approved alt text.
const MaxAltTextLength = 2000

// ValidContentType reports whether t is one of the four scannable types.
func ValidContentType(t string) bool {
	switch t {
	case ContentTypeAssignment, ContentTypePage, ContentTypeQuiz, ContentTypeQuizQuestion:
		return true
	default:
		return false
	}
}

// CourseScan is the one-per-course scan record. It is only ever upserted;
// the pipeline never deletes it.
type CourseScan struct {
	ID         int64      `db:"id" json:"id"`
	CourseID   int64      `db:"course_id" json:"course_id"`
	TaskHandle *string    `db:"task_handle" json:"task_handle,omitempty"`
	Status     ScanStatus `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// ContentItem is one LMS content object captured by a scan snapshot.
// ContentParentID is set only for quiz questions and points at the owning
// quiz's content id within the same course.
type ContentItem struct {
	ID              int64   `db:"id" json:"id"`
	CourseID        int64   `db:"course_id" json:"course_id"`
	ContentType     string  `db:"content_type" json:"content_type"`
	ContentID       int64   `db:"content_id" json:"content_id"`
	ContentName     *string `db:"content_name" json:"content_name,omitempty"`
	ContentParentID *int64  `db:"content_parent_id" json:"content_parent_id,omitempty"`
}

// ImageItem is one discovered image instance, owned by exactly one
// ContentItem. ImageID is the Canvas file id when the extractor could
// resolve one.
type ImageItem struct {
	ID            int64   `db:"id" json:"id"`
	CourseID      int64   `db:"course_id" json:"course_id"`
	ContentItemID int64   `db:"content_id" json:"content_item_id"`
	ImageID       *int64  `db:"image_id" json:"image_id,omitempty"`
	ImageURL      string  `db:"image_url" json:"image_url"`
	ImageAltText  *string `db:"image_alt_text" json:"image_alt_text,omitempty"`
}

// ScannedContent pairs an enumerated content object with its extracted
// images before persistence.
type ScannedContent struct {
	ContentID       int64
	ContentName     string
	ContentType     string
	ContentParentID *int64
	Images          []ExtractedImage
}

// ExtractedImage is an image reference resolved out of a content item's HTML.
type ExtractedImage struct {
	// ImageID is the Canvas file id parsed from the src path, when present.
	ImageID *int64
	// DownloadURL is the synthesized authenticated raw-download URL.
	DownloadURL string
	// AltText carries any pre-existing alt attribute (not a generated caption).
	AltText *string
}
