package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var jobColumnList = []string{
	"id", "user_id", "original_text", "humanized_text", "status", "attempts",
	"error_message", "word_count", "created_at", "updated_at", "completed_at",
}

func newMock(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateInsertsPendingJob(t *testing.T) {
	repo, mock := newMock(t)

	job := Job{
		ID:           "job-1",
		UserID:       "user-1",
		OriginalText: "hello world",
		Status:       StatusPending,
		WordCount:    2,
	}

	mock.ExpectExec("INSERT INTO humanization_jobs").
		WithArgs(job.ID, job.UserID, job.OriginalText, job.Status, job.Attempts, job.WordCount).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoClaimNextReturnsClaimedJob(t *testing.T) {
	repo, mock := newMock(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(jobColumnList).
		AddRow("job-1", "user-1", "hello world", nil, StatusProcessing, 1, nil, 2, now, now, nil)

	mock.ExpectQuery("UPDATE humanization_jobs").WillReturnRows(rows)

	job, err := repo.ClaimNext(context.Background())
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if job.ID != "job-1" {
		t.Fatalf("expected job-1, got %s", job.ID)
	}
	if job.Status != StatusProcessing {
		t.Fatalf("expected processing, got %s", job.Status)
	}
	if job.Attempts != 1 {
		t.Fatalf("expected attempts 1, got %d", job.Attempts)
	}
	if job.HumanizedText != nil || job.ErrorMessage != nil || job.CompletedAt != nil {
		t.Fatalf("expected null optional columns on fresh claim")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoClaimNextEmptyQueue(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("UPDATE humanization_jobs").
		WillReturnRows(sqlmock.NewRows(jobColumnList))

	if _, err := repo.ClaimNext(context.Background()); !errors.Is(err, ErrNoPending) {
		t.Fatalf("expected ErrNoPending, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDScopesToOwner(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT id, user_id, original_text").
		WithArgs("job-1", "user-2").
		WillReturnRows(sqlmock.NewRows(jobColumnList))

	if _, err := repo.GetByID(context.Background(), "user-2", "job-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkCompletedUnknownJob(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("UPDATE humanization_jobs").
		WithArgs("missing", "result").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkCompleted(context.Background(), "missing", "result"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoRetryGuardsStatusUnderLock(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM humanization_jobs").
		WithArgs("job-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusCompleted))
	mock.ExpectRollback()

	if _, err := repo.Retry(context.Background(), "user-1", "job-1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoRetryMovesFailedJobToPending(t *testing.T) {
	repo, mock := newMock(t)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM humanization_jobs").
		WithArgs("job-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusFailed))
	mock.ExpectQuery("UPDATE humanization_jobs").
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(jobColumnList).
			AddRow("job-1", "user-1", "hello world", nil, StatusPending, 3, nil, 2, now, now, nil))
	mock.ExpectCommit()

	job, err := repo.Retry(context.Background(), "user-1", "job-1")
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if job.Status != StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if job.Attempts != 3 {
		t.Fatalf("expected attempts preserved at 3, got %d", job.Attempts)
	}
	if job.ErrorMessage != nil {
		t.Fatalf("expected cleared error message")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoStatsAggregatesByStatus(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT status, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count", "avg"}).
			AddRow(StatusPending, 2, 0.0).
			AddRow(StatusCompleted, 5, 3.25).
			AddRow(StatusFailed, 1, 12.5))

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 8 {
		t.Fatalf("expected total 8, got %d", stats.Total)
	}
	if got := stats.ByStatus[StatusCompleted]; got.Count != 5 || got.AvgSeconds != 3.25 {
		t.Fatalf("unexpected completed stats: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
