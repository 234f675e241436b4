package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reai/reai-backend/internal/app"
	"github.com/reai/reai-backend/internal/data/repos"
	"github.com/reai/reai-backend/internal/data/repos/testutil"
	"github.com/reai/reai-backend/internal/platform/dbctx"
)

func newTestRouter(t *testing.T) (*Router, dbctx.Context) {
	t.Helper()
	log := testutil.Logger(t)
	gdb := testutil.DB(t)

	ctx := context.Background()
	testutil.SeedDepartment(t, ctx, gdb, "UX팀", []string{"UX", "편리", "디자인"})
	testutil.SeedDepartment(t, ctx, gdb, "대출심사팀", []string{"대출", "심사"})
	testutil.SeedDepartment(t, ctx, gdb, "결제팀", []string{"결제", "이체", "송금"})

	router := NewRouter(repos.NewDepartmentRepo(gdb, log), app.RouterConfig{
		MinKeywordScore:   1,
		DefaultDepartment: "미배정",
	}, log)
	return router, dbctx.Context{Ctx: ctx}
}

func TestRouterResolveExactName(t *testing.T) {
	router, dbc := newTestRouter(t)

	d, err := router.Resolve(dbc, "UX팀")
	require.NoError(t, err)
	assert.Equal(t, "UX팀", d.Name)

	// Name matching ignores case and surrounding whitespace.
	d, err = router.Resolve(dbc, "  ux팀 ")
	require.NoError(t, err)
	assert.Equal(t, "UX팀", d.Name)
}

func TestRouterResolveByKeyword(t *testing.T) {
	router, dbc := newTestRouter(t)

	d, err := router.Resolve(dbc, "UX")
	require.NoError(t, err)
	assert.Equal(t, "UX팀", d.Name)

	d, err = router.Resolve(dbc, "대출 심사 지연")
	require.NoError(t, err)
	assert.Equal(t, "대출심사팀", d.Name)

	d, err = router.Resolve(dbc, "송금")
	require.NoError(t, err)
	assert.Equal(t, "결제팀", d.Name)
}

func TestRouterResolveDeterministic(t *testing.T) {
	router, dbc := newTestRouter(t)

	first, err := router.Resolve(dbc, "이체 오류")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := router.Resolve(dbc, "이체 오류")
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	}
}

func TestRouterResolveFallsBackToDefault(t *testing.T) {
	router, dbc := newTestRouter(t)

	d, err := router.Resolve(dbc, "해당 없음")
	require.NoError(t, err)
	assert.Equal(t, "미배정", d.Name)

	// Empty and whitespace-only signals also land in the default.
	d, err = router.Resolve(dbc, "")
	require.NoError(t, err)
	assert.Equal(t, "미배정", d.Name)

	d2, err := router.Resolve(dbc, "   ")
	require.NoError(t, err)
	assert.Equal(t, d.ID, d2.ID, "default department is created once")
}
