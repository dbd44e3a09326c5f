package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/canvas-alt-text-api/internal/models"
)

// ContentImageCount is a per-content-item aggregate used by the scan status
// endpoint.
type ContentImageCount struct {
	ID          int64   `db:"id"`
	CanvasID    int64   `db:"content_id"`
	CanvasName  *string `db:"content_name"`
	ContentType string  `db:"content_type"`
	ImageCount  int     `db:"image_count"`
}

// ScanRepository persists course scans and their content/image snapshots.
type ScanRepository struct {
	db *sqlx.DB
}

// NewScanRepository creates the repository.
func NewScanRepository(db *sqlx.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// UpsertScan records a scan request for the course, keyed by course id.
// Repeated calls overwrite the task handle and reset the status; the row
// itself is never duplicated.
func (r *ScanRepository) UpsertScan(ctx context.Context, courseID int64, taskHandle string) (*models.CourseScan, error) {
	const query = `INSERT INTO course_scans (course_id, task_handle, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (course_id) DO UPDATE SET task_handle = EXCLUDED.task_handle, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
RETURNING id, course_id, task_handle, status, created_at, updated_at`
	var scan models.CourseScan
	if err := r.db.GetContext(ctx, &scan, query, courseID, taskHandle, models.ScanStatusPending, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("upsert scan for course %d: %w", courseID, err)
	}
	return &scan, nil
}

// SetScanStatus moves the course's scan to a new lifecycle state.
func (r *ScanRepository) SetScanStatus(ctx context.Context, courseID int64, status models.ScanStatus) error {
	const query = `UPDATE course_scans SET status = $1, updated_at = $2 WHERE course_id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), courseID); err != nil {
		return fmt.Errorf("set scan status for course %d: %w", courseID, err)
	}
	return nil
}

// GetScan returns the course's scan record, or nil when the course has never
// been scanned.
func (r *ScanRepository) GetScan(ctx context.Context, courseID int64) (*models.CourseScan, error) {
	const query = `SELECT id, course_id, task_handle, status, created_at, updated_at
FROM course_scans WHERE course_id = $1`
	var scan models.CourseScan
	if err := r.db.GetContext(ctx, &scan, query, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get scan for course %d: %w", courseID, err)
	}
	return &scan, nil
}

// ListUnfinishedScans returns scans stuck in pending or running, used to
// requeue work after a restart.
func (r *ScanRepository) ListUnfinishedScans(ctx context.Context) ([]models.CourseScan, error) {
	const query = `SELECT id, course_id, task_handle, status, created_at, updated_at
FROM course_scans WHERE status = ANY($1) ORDER BY updated_at ASC`
	var scans []models.CourseScan
	statuses := []string{string(models.ScanStatusPending), string(models.ScanStatusRunning)}
	if err := r.db.SelectContext(ctx, &scans, query, pq.Array(statuses)); err != nil {
		return nil, fmt.Errorf("list unfinished scans: %w", err)
	}
	return scans, nil
}

// SaveScanResults atomically replaces the course's snapshot with the freshly
// enumerated contents. A failure mid-write rolls back to the previous
// snapshot.
func (r *ScanRepository) SaveScanResults(ctx context.Context, courseID int64, contents []models.ScannedContent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin scan snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM image_items WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("clear image snapshot for course %d: %w", courseID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM content_items WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("clear content snapshot for course %d: %w", courseID, err)
	}

	const insertContent = `INSERT INTO content_items (course_id, content_type, content_id, content_name, content_parent_id)
VALUES ($1, $2, $3, $4, $5) RETURNING id`
	const insertImage = `INSERT INTO image_items (course_id, content_id, image_id, image_url, image_alt_text)
VALUES ($1, $2, $3, $4, $5)`

	for i := range contents {
		content := &contents[i]
		var contentRowID int64
		err := tx.GetContext(ctx, &contentRowID, insertContent,
			courseID, content.ContentType, content.ContentID, content.ContentName, content.ContentParentID)
		if err != nil {
			return fmt.Errorf("insert content %s/%d: %w", content.ContentType, content.ContentID, err)
		}
		for j := range content.Images {
			img := &content.Images[j]
			if _, err := tx.ExecContext(ctx, insertImage, courseID, contentRowID, img.ImageID, img.DownloadURL, img.AltText); err != nil {
				return fmt.Errorf("insert image for content %s/%d: %w", content.ContentType, content.ContentID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scan snapshot for course %d: %w", courseID, err)
	}
	return nil
}

// ListUncaptionedImages returns the course's images that still lack alt text,
// ordered by row id so processing output is deterministic.
func (r *ScanRepository) ListUncaptionedImages(ctx context.Context, courseID int64) ([]models.ImageItem, error) {
	const query = `SELECT id, course_id, content_id, image_id, image_url, image_alt_text
FROM image_items WHERE course_id = $1 AND image_alt_text IS NULL ORDER BY id ASC`
	var images []models.ImageItem
	if err := r.db.SelectContext(ctx, &images, query, courseID); err != nil {
		return nil, fmt.Errorf("list uncaptioned images for course %d: %w", courseID, err)
	}
	return images, nil
}

// BulkUpdateAltText writes generated captions back to their rows in one
// transaction.
func (r *ScanRepository) BulkUpdateAltText(ctx context.Context, captions map[int64]string) error {
	if len(captions) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin caption update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `UPDATE image_items SET image_alt_text = $1 WHERE id = $2`
	for id, caption := range captions {
		if _, err := tx.ExecContext(ctx, query, caption, id); err != nil {
			return fmt.Errorf("update alt text for image %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit caption update: %w", err)
	}
	return nil
}

// ListContentItems returns the course's snapshot rows for the given content
// types, oldest first.
func (r *ScanRepository) ListContentItems(ctx context.Context, courseID int64, contentTypes []string) ([]models.ContentItem, error) {
	const query = `SELECT id, course_id, content_type, content_id, content_name, content_parent_id
FROM content_items WHERE course_id = $1 AND content_type = ANY($2) ORDER BY id ASC`
	var items []models.ContentItem
	if err := r.db.SelectContext(ctx, &items, query, courseID, pq.Array(contentTypes)); err != nil {
		return nil, fmt.Errorf("list content items for course %d: %w", courseID, err)
	}
	return items, nil
}

// ListImagesByContent returns all of the course's images grouped by owning
// content row id.
func (r *ScanRepository) ListImagesByContent(ctx context.Context, courseID int64) (map[int64][]models.ImageItem, error) {
	const query = `SELECT id, course_id, content_id, image_id, image_url, image_alt_text
FROM image_items WHERE course_id = $1 ORDER BY id ASC`
	var images []models.ImageItem
	if err := r.db.SelectContext(ctx, &images, query, courseID); err != nil {
		return nil, fmt.Errorf("list images for course %d: %w", courseID, err)
	}
	grouped := make(map[int64][]models.ImageItem, len(images))
	for _, img := range images {
		grouped[img.ContentItemID] = append(grouped[img.ContentItemID], img)
	}
	return grouped, nil
}

// ContentImageCounts aggregates image counts per content item that still has
// at least one image.
func (r *ScanRepository) ContentImageCounts(ctx context.Context, courseID int64) ([]ContentImageCount, error) {
	const query = `SELECT c.id, c.content_id, c.content_name, c.content_type, COUNT(i.id) AS image_count
FROM content_items c
JOIN image_items i ON i.content_id = c.id
WHERE c.course_id = $1
GROUP BY c.id, c.content_id, c.content_name, c.content_type
ORDER BY c.id ASC`
	var counts []ContentImageCount
	if err := r.db.SelectContext(ctx, &counts, query, courseID); err != nil {
		return nil, fmt.Errorf("count content images for course %d: %w", courseID, err)
	}
	return counts, nil
}

// GetContentParent resolves the parent canvas id recorded for one content
// object, used to find the quiz a question belongs to.
func (r *ScanRepository) GetContentParent(ctx context.Context, courseID int64, contentType string, canvasID int64) (*int64, error) {
	const query = `SELECT content_parent_id FROM content_items
WHERE course_id = $1 AND content_type = $2 AND content_id = $3`
	var parent *int64
	if err := r.db.GetContext(ctx, &parent, query, courseID, contentType, canvasID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get content parent for %s/%d: %w", contentType, canvasID, err)
	}
	return parent, nil
}

// DeleteImages removes reviewed image rows by row id.
func (r *ScanRepository) DeleteImages(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM image_items WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("delete images: %w", err)
	}
	return nil
}

// DeleteOrphanContentItems removes content rows left without any images
// after review cleanup. Returns the number of rows removed.
func (r *ScanRepository) DeleteOrphanContentItems(ctx context.Context, courseID int64) (int64, error) {
	const query = `DELETE FROM content_items
WHERE course_id = $1 AND NOT EXISTS (SELECT 1 FROM image_items i WHERE i.content_id = content_items.id)`
	result, err := r.db.ExecContext(ctx, query, courseID)
	if err != nil {
		return 0, fmt.Errorf("delete orphan content items for course %d: %w", courseID, err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return removed, nil
}
