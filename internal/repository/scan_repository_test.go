package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/canvas-alt-text-api/internal/models"
)

func newScanRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestScanRepositoryUpsertScan(t *testing.T) {
	db, mock, cleanup := newScanRepoMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "course_id", "task_handle", "status", "created_at", "updated_at"}).
		AddRow(int64(1), int64(403334), "job-abc", "pending", now, now)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO course_scans")).
		WithArgs(int64(403334), "job-abc", models.ScanStatusPending, sqlmock.AnyArg()).
		WillReturnRows(rows)

	scan, err := repo.UpsertScan(context.Background(), 403334, "job-abc")
	require.NoError(t, err)
	assert.Equal(t, int64(403334), scan.CourseID)
	require.NotNil(t, scan.TaskHandle)
	assert.Equal(t, "job-abc", *scan.TaskHandle)
	assert.Equal(t, models.ScanStatusPending, scan.Status)
}

func TestScanRepositoryGetScanNone(t *testing.T) {
	db, mock, cleanup := newScanRepoMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, task_handle, status, created_at, updated_at")).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	scan, err := repo.GetScan(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, scan)
}

func TestScanRepositorySaveScanResults(t *testing.T) {
	db, mock, cleanup := newScanRepoMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	quizID := int64(500)
	contents := []models.ScannedContent{
		{
			ContentID:   10,
			ContentName: "Syllabus",
			ContentType: models.ContentTypePage,
			Images: []models.ExtractedImage{
				{DownloadURL: "https://canvas.example.edu/files/1/download?download_frd=1"},
				{DownloadURL: "https://canvas.example.edu/files/2/download?download_frd=1"},
			},
		},
		{
			ContentID:       700,
			ContentName:     "Q1",
			ContentType:     models.ContentTypeQuizQuestion,
			ContentParentID: &quizID,
			Images: []models.ExtractedImage{
				{DownloadURL: "https://canvas.example.edu/files/3/download?download_frd=1"},
			},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM image_items WHERE course_id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM content_items WHERE course_id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO content_items")).
		WithArgs(int64(7), models.ContentTypePage, int64(10), "Syllabus", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(101)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO image_items")).
		WithArgs(int64(7), int64(101), nil, "https://canvas.example.edu/files/1/download?download_frd=1", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO image_items")).
		WithArgs(int64(7), int64(101), nil, "https://canvas.example.edu/files/2/download?download_frd=1", nil).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO content_items")).
		WithArgs(int64(7), models.ContentTypeQuizQuestion, int64(700), "Q1", int64(500)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(102)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO image_items")).
		WithArgs(int64(7), int64(102), nil, "https://canvas.example.edu/files/3/download?download_frd=1", nil).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	err := repo.SaveScanResults(context.Background(), 7, contents)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepositorySaveScanResultsRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newScanRepoMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	contents := []models.ScannedContent{{
		ContentID:   10,
		ContentName: "Syllabus",
		ContentType: models.ContentTypePage,
		Images:      []models.ExtractedImage{{DownloadURL: "https://canvas.example.edu/files/1/download"}},
	}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM image_items")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM content_items")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO content_items")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.SaveScanResults(context.Background(), 7, contents)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert content page/10")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepositoryBulkUpdateAltText(t *testing.T) {
	db, mock, cleanup := newScanRepoMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE image_items SET image_alt_text = $1 WHERE id = $2")).
		WithArgs("A bar chart", int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.BulkUpdateAltText(context.Background(), map[int64]string{11: "A bar chart"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepositoryBulkUpdateAltTextEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := newScanRepoMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	err := repo.BulkUpdateAltText(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepositoryListUncaptionedImages(t *testing.T) {
	db, mock, cleanup := newScanRepoMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_id", "content_id", "image_id", "image_url", "image_alt_text"}).
		AddRow(int64(1), int64(7), int64(101), sql.NullInt64{Int64: 42, Valid: true}, "https://canvas.example.edu/files/42/download", nil).
		AddRow(int64(2), int64(7), int64(101), sql.NullInt64{Valid: false}, "https://canvas.example.edu/files/43/download", nil)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE course_id = $1 AND image_alt_text IS NULL")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	images, err := repo.ListUncaptionedImages(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, images, 2)
	require.NotNil(t, images[0].ImageID)
	assert.Equal(t, int64(42), *images[0].ImageID)
	assert.Nil(t, images[1].ImageID)
}

func TestScanRepositoryContentImageCounts(t *testing.T) {
	db, mock, cleanup := newScanRepoMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	rows := sqlmock.NewRows([]string{"id", "content_id", "content_name", "content_type", "image_count"}).
		AddRow(int64(101), int64(10), "Syllabus", "page", 2).
		AddRow(int64(102), int64(20), "HW 1", "assignment", 1)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN image_items i ON i.content_id = c.id")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	counts, err := repo.ContentImageCounts(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, 2, counts[0].ImageCount)
	assert.Equal(t, "assignment", counts[1].ContentType)
}

func TestScanRepositoryDeleteImagesEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := newScanRepoMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	err := repo.DeleteImages(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepositoryDeleteOrphanContentItems(t *testing.T) {
	db, mock, cleanup := newScanRepoMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM content_items")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := repo.DeleteOrphanContentItems(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}
