package repos

import (
	"context"
	"testing"

	"github.com/reai/reai-backend/internal/data/repos/testutil"
	pkgerr "github.com/reai/reai-backend/internal/pkg/errors"
	"github.com/reai/reai-backend/internal/platform/dbctx"
	"github.com/reai/reai-backend/internal/types"
)

func TestCompanyRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewCompanyRepo(db, testutil.Logger(t))

	c, err := repo.Create(dbc, &types.FinancialCompany{
		Name:     "토스",
		AppID:    "viva.republica.toss",
		Category: "fintech",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(dbc, c.ID)
	if err != nil || got.Name != "토스" {
		t.Fatalf("GetByID: got=%+v err=%v", got, err)
	}

	byApp, err := repo.GetByAppID(dbc, "viva.republica.toss")
	if err != nil || byApp.ID != c.ID {
		t.Fatalf("GetByAppID: got=%+v err=%v", byApp, err)
	}
	if _, err := repo.GetByAppID(dbc, "unknown.app"); err != pkgerr.ErrNotFound {
		t.Fatalf("GetByAppID missing = %v, want ErrNotFound", err)
	}

	rows, err := repo.List(dbc)
	if err != nil || len(rows) != 1 {
		t.Fatalf("List: err=%v len=%d", err, len(rows))
	}
}
