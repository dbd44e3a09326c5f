package models

// Reviewer decision actions.
const (
	ActionApprove = "approve"
	ActionSkip    = "skip"
)

// ImagePayload is one reviewer decision for a single image. UpdateURL is
// computed during enrichment: the src value the live HTML is expected to
// contain for this image. Updated/FailureMessage are filled in while the
// update runs; Updated stays nil when nothing went wrong.
type ImagePayload struct {
	ImageURL        string  `json:"image_url" validate:"required,url"`
	ImageID         int64   `json:"image_id" validate:"required"`
	Action          string  `json:"action" validate:"required,oneof=approve skip"`
	ApprovedAltText string  `json:"approved_alt_text" validate:"max=2000"`
	UpdateURL       string  `json:"image_url_for_update,omitempty"`
	Updated         *bool   `json:"is_alt_text_updated,omitempty"`
	FailureMessage  *string `json:"alt_text_failed_error_message,omitempty"`
}

// Failed reports whether this image's write-back is known to have failed.
func (p *ImagePayload) Failed() bool {
	return (p.Updated != nil && !*p.Updated) || p.FailureMessage != nil
}

// ContentPayload groups reviewer decisions under one content item.
type ContentPayload struct {
	ContentID       int64          `json:"content_id" validate:"required"`
	ContentName     string         `json:"content_name"`
	ContentParentID *int64         `json:"content_parent_id,omitempty"`
	ContentType     string         `json:"content_type" validate:"required,oneof=assignment page quiz quiz_question"`
	Images          []ImagePayload `json:"images" validate:"required,dive"`
}

// HasApproved reports whether at least one image decision is an approval.
func (c *ContentPayload) HasApproved() bool {
	for i := range c.Images {
		if c.Images[i].Action == ActionApprove {
			return true
		}
	}
	return false
}
