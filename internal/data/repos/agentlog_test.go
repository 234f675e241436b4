package repos

import (
	"context"
	"testing"

	"github.com/reai/reai-backend/internal/data/repos/testutil"
	"github.com/reai/reai-backend/internal/platform/dbctx"
	"github.com/reai/reai-backend/internal/types"
)

func TestAgentLogRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewAgentLogRepo(db, testutil.Logger(t))

	company := testutil.SeedCompany(t, ctx, db, "com.kakaobank.channel")
	review := testutil.SeedReview(t, ctx, db, company.ID, "이체 수수료가 아까워요")

	for _, action := range []string{"classify", "classify"} {
		if _, err := repo.Create(dbc, &types.AgentLog{
			ReviewID:       review.ID,
			AgentType:      "sentiment",
			Action:         action,
			Result:         "negative",
			ProcessingTime: 0.42,
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	rows, err := repo.ListByReviewID(dbc, review.ID)
	if err != nil {
		t.Fatalf("ListByReviewID: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].ID >= rows[1].ID {
		t.Fatal("entries not ordered by id")
	}

	rows, err = repo.ListByReviewID(dbc, 404)
	if err != nil || len(rows) != 0 {
		t.Fatalf("ListByReviewID missing: err=%v len=%d", err, len(rows))
	}
}
