package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/cache"
	"chitieu/internal/core"
	"chitieu/internal/remote/memory"
)

func activeEngine(t *testing.T) (*Engine, *memory.Store, *cache.Memory) {
	t.Helper()
	rs := newStore(t)
	lc := cache.NewMemory()
	e := newEngine(t, rs, lc)
	_, err := e.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	e.Wait()
	return e, rs, lc
}

func TestLedgerRequiresSession(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, memory.New(), cache.NewMemory())

	_, _, err := e.AddExpense(ctx, core.NewExpense{Category: "khac", Amount: "1k", Date: core.Today()})
	assert.ErrorIs(t, err, core.ErrNotLoggedIn)
	_, err = e.DeleteCategory(ctx, "khac")
	assert.ErrorIs(t, err, core.ErrNotLoggedIn)
	_, err = e.Summary()
	assert.ErrorIs(t, err, core.ErrNotLoggedIn)
}

func TestExpenseLifecycle(t *testing.T) {
	ctx := context.Background()
	e, rs, _ := activeEngine(t)
	date := core.NewDate(2024, 3, 15)

	first, p, err := e.AddExpense(ctx, core.NewExpense{Category: "an_uong", Amount: "1.500k", Date: date})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSynced, p.Outcome)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(1_500_000), first.Amount)
	assert.Equal(t, "Ăn uống", first.CategoryName)
	assert.NotEmpty(t, first.UID)

	second, _, err := e.AddExpense(ctx, core.NewExpense{Category: "di_chuyen", Amount: "2tr", Date: date})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)

	_, _, err = e.AddExpense(ctx, core.NewExpense{Category: "an_uong", Amount: "abc", Date: date})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	_, _, err = e.AddExpense(ctx, core.NewExpense{Category: "nope", Amount: "5k", Date: date})
	assert.ErrorIs(t, err, core.ErrCategoryNotFound)

	edited, _, err := e.EditExpense(ctx, first.UID, "50k")
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), edited.Amount)
	_, _, err = e.EditExpense(ctx, "2", "0")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = e.DeleteExpense(ctx, "1")
	require.NoError(t, err)
	_, err = e.DeleteExpense(ctx, "1")
	assert.ErrorIs(t, err, core.ErrExpenseNotFound)

	stored, err := rs.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, stored.Expenses, 1)
	assert.Equal(t, second.UID, stored.Expenses[0].UID)

	next, _, err := e.AddExpense(ctx, core.NewExpense{Category: "khac", Amount: "1k", Date: date})
	require.NoError(t, err)
	assert.Equal(t, int64(3), next.ID)
}

func TestCategoryRules(t *testing.T) {
	ctx := context.Background()
	e, _, lc := activeEngine(t)

	require.NoError(t, e.SelectIcon("fa-coffee"))
	assert.Error(t, e.SelectIcon("fa-unknown"))

	c, _, err := e.AddCategory(ctx, "Cà phê Sáng")
	require.NoError(t, err)
	assert.Equal(t, "c_ph_sng", c.ID)
	assert.Equal(t, "fa-coffee", c.Icon)
	assert.Equal(t, core.DefaultIcon, e.SelectedIcon())

	_, _, err = e.AddCategory(ctx, "cà  phê sáng")
	assert.ErrorIs(t, err, core.ErrDuplicateCategory)
	_, _, err = e.AddCategory(ctx, "   ")
	assert.ErrorIs(t, err, core.ErrInvalidCategory)

	_, _, err = e.AddExpense(ctx, core.NewExpense{Category: c.ID, Amount: "25k", Date: core.Today()})
	require.NoError(t, err)

	before, _ := e.Snapshot()
	_, err = e.DeleteCategory(ctx, c.ID)
	assert.ErrorIs(t, err, core.ErrCategoryInUse)
	after, _ := e.Snapshot()
	assert.Equal(t, before.Categories, after.Categories)
	assert.Equal(t, before.Expenses, after.Expenses)

	_, err = e.DeleteCategory(ctx, "giai_tri")
	require.NoError(t, err)
	_, err = e.DeleteCategory(ctx, "giai_tri")
	assert.ErrorIs(t, err, core.ErrCategoryNotFound)

	cached, err := lc.Load(ctx, after.ID)
	require.NoError(t, err)
	assert.Len(t, cached.Categories, 8)
}

func TestSetLimit(t *testing.T) {
	ctx := context.Background()
	e, _, _ := activeEngine(t)

	limit, _, err := e.SetLimit(ctx, "5tr")
	require.NoError(t, err)
	assert.Equal(t, int64(5_000_000), limit)

	limit, _, err = e.SetLimit(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, limit)

	_, _, err = e.SetLimit(ctx, "-3k")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestTheme(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, memory.New(), cache.NewMemory())
	require.NoError(t, e.SaveTheme(ctx, []byte(`{"mode":"dark"}`)))
	got, err := e.LoadTheme(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":"dark"}`, string(got))
}
