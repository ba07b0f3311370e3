package core

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// newUID is swapped in tests.
var newUID = uuid.NewString

// DeriveCategoryID lower-cases name, joins whitespace runs with "_" and drops
// every character outside [a-z0-9_].
func DeriveCategoryID(name string) string {
	slug := strings.Join(strings.Fields(strings.ToLower(name)), "_")
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return -1
	}, slug)
}

// AddCategory returns cats with a new category appended. The name is rejected
// when its derived id or the raw name is already taken. Names that derive to
// an empty id (no ASCII letters or digits) get a generated id.
func AddCategory(cats []Category, name, icon string) ([]Category, Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return cats, Category{}, ErrInvalidCategory
	}
	id := DeriveCategoryID(name)
	for _, c := range cats {
		if c.Name == name || (id != "" && c.ID == id) {
			return cats, Category{}, ErrDuplicateCategory
		}
	}
	if id == "" {
		id = "c_" + strings.ReplaceAll(newUID(), "-", "")[:8]
	}
	if icon == "" {
		icon = DefaultIcon
	}
	c := Category{ID: id, Name: name, Icon: icon}
	out := make([]Category, 0, len(cats)+1)
	out = append(out, cats...)
	return append(out, c), c, nil
}

// RemoveCategory deletes the category with the given id unless an expense
// still references it.
func RemoveCategory(cats []Category, exps []Expense, id string) ([]Category, error) {
	if _, ok := FindCategory(cats, id); !ok {
		return cats, ErrCategoryNotFound
	}
	for _, e := range exps {
		if e.Category == id {
			return cats, ErrCategoryInUse
		}
	}
	out := make([]Category, 0, len(cats)-1)
	for _, c := range cats {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out, nil
}

// NextExpenseID is max(existing ids)+1, or 1 for an empty list. Gaps are
// never reused.
func NextExpenseID(exps []Expense) int64 {
	var highest int64
	for _, e := range exps {
		if e.ID > highest {
			highest = e.ID
		}
	}
	return highest + 1
}

// NewExpense is the user input for creating an expense.
type NewExpense struct {
	Category string
	Amount   string
	Date     Date
}

// AddExpense validates in against cats and returns exps with the new expense
// appended.
func AddExpense(exps []Expense, cats []Category, in NewExpense) ([]Expense, Expense, error) {
	amount := ParseAmount(in.Amount)
	if amount <= 0 {
		return exps, Expense{}, ErrInvalidAmount
	}
	if in.Date.IsZero() {
		return exps, Expense{}, ErrInvalidDate
	}
	cat, ok := FindCategory(cats, in.Category)
	if !ok {
		return exps, Expense{}, ErrCategoryNotFound
	}
	e := Expense{
		ID:           NextExpenseID(exps),
		UID:          newUID(),
		Category:     cat.ID,
		CategoryName: cat.Name,
		Amount:       amount,
		Date:         in.Date,
	}
	out := make([]Expense, 0, len(exps)+1)
	out = append(out, exps...)
	return append(out, e), e, nil
}

// FindExpense locates an expense by uid, falling back to the numeric id.
func FindExpense(exps []Expense, ref string) (int, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1, false
	}
	for i, e := range exps {
		if e.UID != "" && e.UID == ref {
			return i, true
		}
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return -1, false
	}
	for i, e := range exps {
		if e.ID == id {
			return i, true
		}
	}
	return -1, false
}

// EditExpenseAmount replaces the amount of the referenced expense. Amount is
// the only field that can change after creation.
func EditExpenseAmount(exps []Expense, ref, amountInput string) ([]Expense, Expense, error) {
	i, ok := FindExpense(exps, ref)
	if !ok {
		return exps, Expense{}, ErrExpenseNotFound
	}
	amount := ParseAmount(amountInput)
	if amount <= 0 {
		return exps, Expense{}, ErrInvalidAmount
	}
	out := append([]Expense(nil), exps...)
	out[i].Amount = amount
	return out, out[i], nil
}

// RemoveExpense deletes the referenced expense.
func RemoveExpense(exps []Expense, ref string) ([]Expense, error) {
	i, ok := FindExpense(exps, ref)
	if !ok {
		return exps, ErrExpenseNotFound
	}
	out := make([]Expense, 0, len(exps)-1)
	out = append(out, exps[:i]...)
	return append(out, exps[i+1:]...), nil
}

// ParseLimit reads a monthly limit. Empty or unparseable input clears the
// limit to 0; negative amounts are rejected.
func ParseLimit(input string) (int64, error) {
	limit := ParseAmount(input)
	if limit < 0 {
		return 0, ErrInvalidAmount
	}
	return limit, nil
}
