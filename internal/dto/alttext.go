package dto

import (
	"time"

	"github.com/noah-isme/canvas-alt-text-api/internal/models"
)

// ScanTriggerResponse is returned when a scan job has been accepted.
type ScanTriggerResponse struct {
	CourseID   int64             `json:"course_id"`
	ID         int64             `json:"id"`
	TaskHandle string            `json:"task_handle"`
	Status     models.ScanStatus `json:"status"`
}

// ScanStatusResponse wraps the status query: Found is false when the course
// has never been scanned, in which case ScanDetail is omitted.
type ScanStatusResponse struct {
	Found      bool        `json:"found"`
	ScanDetail *ScanDetail `json:"scan_detail,omitempty"`
}

// ScanDetail is the persisted scan plus per-type content summaries.
type ScanDetail struct {
	ID            int64             `json:"id"`
	CourseID      int64             `json:"course_id"`
	Status        models.ScanStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	CourseContent CourseContent     `json:"course_content"`
}

// CourseContent lists scanned content grouped by type.
type CourseContent struct {
	AssignmentList   []ContentSummary `json:"assignment_list"`
	PageList         []ContentSummary `json:"page_list"`
	QuizList         []ContentSummary `json:"quiz_list"`
	QuizQuestionList []ContentSummary `json:"quiz_question_list"`
}

// ContentSummary is one content item with its tracked image count.
type ContentSummary struct {
	ID         int64  `json:"id"`
	CanvasID   int64  `json:"canvas_id"`
	CanvasName string `json:"canvas_name"`
	ImageCount int    `json:"image_count"`
}

// ContentImagesResponse returns persisted content items with their images
// for reviewer consumption.
type ContentImagesResponse struct {
	ContentItems []ContentWithImages `json:"content_items"`
}

// ContentWithImages is one content item and its tracked images.
type ContentWithImages struct {
	ContentID       int64       `json:"content_id"`
	ContentName     *string     `json:"content_name"`
	ContentParentID *int64      `json:"content_parent_id"`
	ContentType     string      `json:"content_type"`
	Images          []ImageInfo `json:"images"`
}

// ImageInfo exposes one tracked image. ImageID is the database row id; the
// review payload round-trips it so the update engine can delete fulfilled
// rows.
type ImageInfo struct {
	ImageURL     string  `json:"image_url"`
	ImageID      int64   `json:"image_id"`
	ImageAltText *string `json:"image_alt_text"`
}

// UpdateSubmission is the reviewer's decision set for one content family.
type UpdateSubmission struct {
	ContentItems []models.ContentPayload `json:"content_items" binding:"required"`
}
