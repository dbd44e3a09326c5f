package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/canvas-alt-text-api/internal/dto"
	"github.com/noah-isme/canvas-alt-text-api/internal/models"
	appErrors "github.com/noah-isme/canvas-alt-text-api/pkg/errors"
	"github.com/noah-isme/canvas-alt-text-api/pkg/response"
)

type scanService interface {
	StartScan(ctx context.Context, courseID int64) (*dto.ScanTriggerResponse, error)
	GetScanStatus(ctx context.Context, courseID int64) (*dto.ScanStatusResponse, error)
	GetContentImages(ctx context.Context, courseID int64, contentType string) (*dto.ContentImagesResponse, error)
}

type updateService interface {
	SubmitUpdate(ctx context.Context, courseID int64, items []models.ContentPayload) (bool, []models.ContentPayload, error)
}

// AltTextHandler exposes the scan and review endpoints.
type AltTextHandler struct {
	scans   scanService
	updates updateService
}

// NewAltTextHandler builds a new handler.
func NewAltTextHandler(scans scanService, updates updateService) *AltTextHandler {
	return &AltTextHandler{scans: scans, updates: updates}
}

func courseIDParam(c *gin.Context) (int64, bool) {
	courseID, err := strconv.ParseInt(c.Param("courseId"), 10, 64)
	if err != nil || courseID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courseId must be a positive integer"))
		return 0, false
	}
	return courseID, true
}

// StartScan godoc
// @Summary Trigger a course content scan
// @Tags AltText
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 202 {object} response.Envelope
// @Router /alt-text/courses/{courseId}/scan [post]
func (h *AltTextHandler) StartScan(c *gin.Context) {
	courseID, ok := courseIDParam(c)
	if !ok {
		return
	}
	resp, err := h.scans.StartScan(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, resp, nil)
}

// ScanStatus godoc
// @Summary Get scan status with per-type content summaries
// @Tags AltText
// @Produce json
// @Param courseId path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /alt-text/courses/{courseId}/scan [get]
func (h *AltTextHandler) ScanStatus(c *gin.Context) {
	courseID, ok := courseIDParam(c)
	if !ok {
		return
	}
	resp, err := h.scans.GetScanStatus(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// ContentImages godoc
// @Summary List tracked content with images for review
// @Tags AltText
// @Produce json
// @Param courseId path int true "Course ID"
// @Param content_type query string true "Content type (assignment, page, quiz, quiz_question)"
// @Success 200 {object} response.Envelope
// @Router /alt-text/courses/{courseId}/content-images [get]
func (h *AltTextHandler) ContentImages(c *gin.Context) {
	courseID, ok := courseIDParam(c)
	if !ok {
		return
	}
	contentType := c.Query("content_type")
	if !models.ValidContentType(contentType) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "content_type must be one of assignment, page, quiz, quiz_question"))
		return
	}
	resp, err := h.scans.GetContentImages(c.Request.Context(), courseID, contentType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// SubmitUpdate godoc
// @Summary Apply reviewed alt text back to course content
// @Tags AltText
// @Accept json
// @Produce json
// @Param courseId path int true "Course ID"
// @Param payload body dto.UpdateSubmission true "Reviewer decisions"
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /alt-text/courses/{courseId}/content-images [put]
func (h *AltTextHandler) SubmitUpdate(c *gin.Context) {
	courseID, ok := courseIDParam(c)
	if !ok {
		return
	}
	var req dto.UpdateSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	allOK, report, err := h.updates.SubmitUpdate(c.Request.Context(), courseID, req.ContentItems)
	if err != nil {
		response.Error(c, err)
		return
	}

	// Partial failure still returns the full annotated report so the
	// reviewer can see which images need another pass.
	status := http.StatusOK
	if !allOK {
		status = http.StatusInternalServerError
	}
	response.JSON(c, status, dto.UpdateSubmission{ContentItems: report}, nil)
}
