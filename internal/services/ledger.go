package services

import (
	"context"
	"errors"

	"chitieu/internal/core"
	"chitieu/internal/events"
	"chitieu/internal/log"
)

// Outcome describes what happened to a snapshot write.
type Outcome string

const (
	OutcomeSynced  Outcome = "synced"
	OutcomeOffline Outcome = "offline"
	OutcomeFailed  Outcome = "failed"
)

// Persistence is returned next to every accepted mutation. A failed or
// offline outcome never undoes the mutation; the local cache always has it.
type Persistence struct {
	Outcome Outcome
	Err     error
}

// Degraded reports whether the remote copy is behind the local one.
func (p Persistence) Degraded() bool {
	return p.Outcome != OutcomeSynced
}

// AddExpense records a new expense for the active user.
func (e *Engine) AddExpense(ctx context.Context, in core.NewExpense) (core.Expense, Persistence, error) {
	var added core.Expense
	u, err := e.session.Mutate(func(u *core.User) error {
		exps, exp, err := core.AddExpense(u.Expenses, u.Categories, in)
		if err != nil {
			return err
		}
		u.Expenses = exps
		added = exp
		return nil
	})
	if err != nil {
		return core.Expense{}, Persistence{}, err
	}
	e.logger.InfoContext(ctx, "Expense added",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, u.ID,
		log.FieldExpenseID, added.ID,
		log.FieldCategory, added.Category,
		log.FieldAmount, added.Amount)
	return added, e.persist(ctx), nil
}

// EditExpense changes the amount of the expense referenced by uid or id.
func (e *Engine) EditExpense(ctx context.Context, ref, amount string) (core.Expense, Persistence, error) {
	var edited core.Expense
	u, err := e.session.Mutate(func(u *core.User) error {
		exps, exp, err := core.EditExpenseAmount(u.Expenses, ref, amount)
		if err != nil {
			return err
		}
		u.Expenses = exps
		edited = exp
		return nil
	})
	if err != nil {
		return core.Expense{}, Persistence{}, err
	}
	e.logger.InfoContext(ctx, "Expense updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldUserID, u.ID,
		log.FieldExpenseID, edited.ID,
		log.FieldAmount, edited.Amount)
	return edited, e.persist(ctx), nil
}

func (e *Engine) DeleteExpense(ctx context.Context, ref string) (Persistence, error) {
	u, err := e.session.Mutate(func(u *core.User) error {
		exps, err := core.RemoveExpense(u.Expenses, ref)
		if err != nil {
			return err
		}
		u.Expenses = exps
		return nil
	})
	if err != nil {
		return Persistence{}, err
	}
	e.logger.InfoContext(ctx, "Expense deleted", log.FieldOperation, log.OpDelete, log.FieldUserID, u.ID, "ref", ref)
	return e.persist(ctx), nil
}

// AddCategory creates a category with the selected icon. The selection goes
// back to the default icon after a successful add.
func (e *Engine) AddCategory(ctx context.Context, name string) (core.Category, Persistence, error) {
	icon := e.SelectedIcon()
	var added core.Category
	u, err := e.session.Mutate(func(u *core.User) error {
		cats, c, err := core.AddCategory(u.Categories, name, icon)
		if err != nil {
			return err
		}
		u.Categories = cats
		added = c
		return nil
	})
	if err != nil {
		return core.Category{}, Persistence{}, err
	}
	e.setIcon(core.DefaultIcon)
	e.logger.InfoContext(ctx, "Category added",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, u.ID,
		log.FieldCategory, added.ID)
	return added, e.persist(ctx), nil
}

func (e *Engine) DeleteCategory(ctx context.Context, id string) (Persistence, error) {
	u, err := e.session.Mutate(func(u *core.User) error {
		cats, err := core.RemoveCategory(u.Categories, u.Expenses, id)
		if err != nil {
			return err
		}
		u.Categories = cats
		return nil
	})
	if err != nil {
		return Persistence{}, err
	}
	e.logger.InfoContext(ctx, "Category deleted", log.FieldOperation, log.OpDelete, log.FieldUserID, u.ID, log.FieldCategory, id)
	return e.persist(ctx), nil
}

// SetLimit parses input as the new monthly limit. Empty input clears it.
func (e *Engine) SetLimit(ctx context.Context, input string) (int64, Persistence, error) {
	limit, err := core.ParseLimit(input)
	if err != nil {
		return 0, Persistence{}, err
	}
	u, err := e.session.Mutate(func(u *core.User) error {
		u.MonthlyLimit = limit
		return nil
	})
	if err != nil {
		return 0, Persistence{}, err
	}
	e.logger.InfoContext(ctx, "Monthly limit changed", log.FieldOperation, log.OpUpdate, log.FieldUserID, u.ID, log.FieldAmount, limit)
	return limit, e.persist(ctx), nil
}

// SelectIcon picks the icon used by the next AddCategory.
func (e *Engine) SelectIcon(icon string) error {
	if !core.IsKnownIcon(icon) {
		return core.NewError(core.KindInvalidCategory, "unknown icon "+icon)
	}
	e.setIcon(icon)
	return nil
}

func (e *Engine) SelectedIcon() string {
	e.iconMu.Lock()
	defer e.iconMu.Unlock()
	return e.selectedIcon
}

func (e *Engine) setIcon(icon string) {
	e.iconMu.Lock()
	e.selectedIcon = icon
	e.iconMu.Unlock()
}

// Summary totals the active user's spending.
func (e *Engine) Summary() (core.Summary, error) {
	u, ok := e.session.Snapshot()
	if !ok {
		return core.Summary{}, core.ErrNotLoggedIn
	}
	return core.Summarize(u), nil
}

func (e *Engine) SaveTheme(ctx context.Context, theme []byte) error {
	return e.cache.SaveTheme(ctx, theme)
}

func (e *Engine) LoadTheme(ctx context.Context) ([]byte, error) {
	return e.cache.LoadTheme(ctx)
}

// persist writes the current snapshot to the remote store and then to the
// local cache. Writes are serialized so an older snapshot never lands after
// a newer one.
func (e *Engine) persist(ctx context.Context) Persistence {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	u, ok := e.session.Snapshot()
	if !ok {
		return Persistence{Outcome: OutcomeFailed, Err: core.ErrNotLoggedIn}
	}

	p := Persistence{Outcome: OutcomeSynced}
	res, err := e.remote.SaveSnapshot(ctx, u)
	switch {
	case err != nil:
		p = Persistence{Outcome: OutcomeFailed, Err: core.WrapError(core.KindPersistenceDegraded, core.ErrPersistence.Message, err)}
	case res.Offline:
		p = Persistence{Outcome: OutcomeOffline}
	}

	if cerr := e.cache.Save(ctx, u.ID, u); cerr != nil {
		e.logger.ErrorContext(ctx, "Failed to cache snapshot",
			log.FieldOperation, log.OpPersist,
			log.FieldUserID, u.ID,
			log.FieldError, cerr)
		if p.Err == nil {
			p.Err = cerr
		} else {
			p.Err = errors.Join(p.Err, cerr)
		}
	}

	if p.Outcome == OutcomeFailed {
		e.logger.WarnContext(ctx, "Snapshot saved locally only",
			log.FieldOperation, log.OpPersist,
			log.FieldUserID, u.ID,
			log.FieldError, err)
	} else {
		e.logger.DebugContext(ctx, "Snapshot persisted",
			log.FieldOperation, log.OpPersist,
			log.FieldUserID, u.ID,
			log.FieldOutcome, p.Outcome)
	}
	e.publish(ctx, events.SnapshotSaved, u.ID, map[string]any{"outcome": string(p.Outcome)})
	return p
}
