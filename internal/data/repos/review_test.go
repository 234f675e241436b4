package repos

import (
	"context"
	"testing"
	"time"

	"github.com/reai/reai-backend/internal/data/repos/testutil"
	pkgerr "github.com/reai/reai-backend/internal/pkg/errors"
	"github.com/reai/reai-backend/internal/types"
	"github.com/reai/reai-backend/internal/platform/dbctx"
)

func TestReviewRepoCRUD(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewReviewRepo(db, testutil.Logger(t))

	company := testutil.SeedCompany(t, ctx, db, "com.kb.star")

	review, err := repo.Create(dbc, &types.Review{
		CompanyID:  company.ID,
		Content:    "이체가 너무 느려요",
		Rating:     2,
		Platform:   types.PlatformPlayStore,
		ReviewDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if review.ID == 0 {
		t.Fatal("Create did not assign an id")
	}
	if review.State != types.ReviewStateUnprocessed {
		t.Fatalf("Create state = %q, want unprocessed", review.State)
	}

	got, err := repo.GetByID(dbc, review.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Content != review.Content {
		t.Fatalf("GetByID content = %q, want %q", got.Content, review.Content)
	}

	if _, err := repo.GetByID(dbc, 99999); err != pkgerr.ErrNotFound {
		t.Fatalf("GetByID missing = %v, want ErrNotFound", err)
	}

	rows, err := repo.List(dbc, ReviewListFilter{CompanyID: company.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("List by company: err=%v len=%d", err, len(rows))
	}
	rows, err = repo.List(dbc, ReviewListFilter{State: types.ReviewStateProcessed})
	if err != nil || len(rows) != 0 {
		t.Fatalf("List processed: err=%v len=%d", err, len(rows))
	}

	if err := repo.Delete(dbc, review.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(dbc, review.ID); err != pkgerr.ErrNotFound {
		t.Fatalf("GetByID after Delete = %v, want ErrNotFound", err)
	}
}

func TestReviewRepoMarkClassified(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewReviewRepo(db, testutil.Logger(t))

	company := testutil.SeedCompany(t, ctx, db, "com.shinhan.sol")
	dept := testutil.SeedDepartment(t, ctx, db, "UX팀", []string{"UX", "화면", "디자인"})
	review := testutil.SeedReview(t, ctx, db, company.ID, "앱이 정말 편리해요")

	applied, err := repo.MarkClassified(dbc, review.ID, types.SentimentPositive, 0.92, dept.ID)
	if err != nil {
		t.Fatalf("MarkClassified: %v", err)
	}
	if !applied {
		t.Fatal("MarkClassified did not apply on an unprocessed review")
	}

	got, err := repo.GetByID(dbc, review.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.State != types.ReviewStateProcessed || !got.Processed {
		t.Fatalf("state = %q processed = %v, want processed/true", got.State, got.Processed)
	}
	if got.Sentiment == nil || *got.Sentiment != types.SentimentPositive {
		t.Fatalf("sentiment = %v, want positive", got.Sentiment)
	}
	if got.SentimentScore == nil || *got.SentimentScore != 0.92 {
		t.Fatalf("sentiment_score = %v, want 0.92", got.SentimentScore)
	}
	if got.DepartmentID == nil || *got.DepartmentID != dept.ID {
		t.Fatalf("department_id = %v, want %d", got.DepartmentID, dept.ID)
	}

	// A second transition must lose: the review is already processed.
	applied, err = repo.MarkClassified(dbc, review.ID, types.SentimentNegative, 0.1, dept.ID)
	if err != nil {
		t.Fatalf("MarkClassified second: %v", err)
	}
	if applied {
		t.Fatal("MarkClassified applied twice on the same review")
	}
	got, _ = repo.GetByID(dbc, review.ID)
	if *got.Sentiment != types.SentimentPositive {
		t.Fatalf("sentiment overwritten to %q by losing attempt", *got.Sentiment)
	}
}

func TestReviewRepoMarkFailed(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewReviewRepo(db, testutil.Logger(t))

	company := testutil.SeedCompany(t, ctx, db, "com.hana.one")
	dept := testutil.SeedDepartment(t, ctx, db, "고객지원팀", []string{"문의"})
	review := testutil.SeedReview(t, ctx, db, company.ID, "로그인이 안돼요")

	for i := 1; i <= 2; i++ {
		applied, err := repo.MarkFailed(dbc, review.ID, "provider timeout")
		if err != nil || !applied {
			t.Fatalf("MarkFailed #%d: applied=%v err=%v", i, applied, err)
		}
	}

	got, err := repo.GetByID(dbc, review.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.State != types.ReviewStateFailed {
		t.Fatalf("state = %q, want failed", got.State)
	}
	if got.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", got.Attempts)
	}
	if got.LastError != "provider timeout" || got.LastErrorAt == nil {
		t.Fatalf("last_error = %q last_error_at = %v", got.LastError, got.LastErrorAt)
	}
	if got.Sentiment != nil || got.DepartmentID != nil {
		t.Fatal("failed review must keep classification fields unset")
	}

	// Once processed, MarkFailed must not regress the state.
	if _, err := repo.MarkClassified(dbc, review.ID, types.SentimentNegative, 0.8, dept.ID); err != nil {
		t.Fatalf("MarkClassified: %v", err)
	}
	applied, err := repo.MarkFailed(dbc, review.ID, "late failure")
	if err != nil {
		t.Fatalf("MarkFailed after processed: %v", err)
	}
	if applied {
		t.Fatal("MarkFailed regressed a processed review")
	}
}

func TestReviewRepoClaimNextPending(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewReviewRepo(db, testutil.Logger(t))

	company := testutil.SeedCompany(t, ctx, db, "com.woori.won")
	first := testutil.SeedReview(t, ctx, db, company.ID, "첫번째 리뷰")
	testutil.SeedReview(t, ctx, db, company.ID, "두번째 리뷰")

	claimed, err := repo.ClaimNextPending(ctx, 5, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("claimed = %+v, want oldest review %d", claimed, first.ID)
	}
	if claimed.State != types.ReviewStateProcessing {
		t.Fatalf("claimed state = %q, want processing", claimed.State)
	}

	second, err := repo.ClaimNextPending(ctx, 5, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextPending second: %v", err)
	}
	if second == nil || second.ID == first.ID {
		t.Fatalf("second claim = %+v, want the remaining review", second)
	}

	// Nothing runnable: the two claims are in-flight, not stale.
	third, err := repo.ClaimNextPending(ctx, 5, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("ClaimNextPending third: %v", err)
	}
	if third != nil {
		t.Fatalf("third claim = %+v, want nil", third)
	}

	// A failed review under the attempt budget becomes runnable only after the
	// retry delay has passed.
	if _, err := repo.MarkFailed(dbc, first.ID, "transient"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if got, err := repo.ClaimNextPending(ctx, 5, time.Minute, time.Hour); err != nil || got != nil {
		t.Fatalf("claim before retry delay: got=%+v err=%v", got, err)
	}
	if got, err := repo.ClaimNextPending(ctx, 5, 0, time.Hour); err != nil || got == nil || got.ID != first.ID {
		t.Fatalf("claim after retry delay: got=%+v err=%v", got, err)
	}

	// Exhausted attempt budget keeps a failed review out of the claim set.
	if _, err := repo.MarkFailed(dbc, first.ID, "transient"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if got, err := repo.ClaimNextPending(ctx, 2, 0, time.Hour); err != nil || got != nil {
		t.Fatalf("claim over attempt budget: got=%+v err=%v", got, err)
	}
}
