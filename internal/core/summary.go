package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID string
	Name       string
	Amount     int64
}

// Summary is the spending overview of one snapshot.
type Summary struct {
	Limit      int64
	Spent      int64
	Remaining  int64 // negative when over the limit
	Count      int
	ByCategory []CategoryAmount
}

// OverLimit reports whether spending exceeds a non-zero limit.
func (s Summary) OverLimit() bool {
	return s.Limit > 0 && s.Spent > s.Limit
}

// Summarize totals the expenses of u. Category names come from the current
// category set, falling back to the name captured on the expense.
func Summarize(u User) Summary {
	s := Summary{Limit: u.MonthlyLimit, Count: len(u.Expenses)}
	index := map[string]int{}
	for _, e := range u.Expenses {
		s.Spent += e.Amount
		i, ok := index[e.Category]
		if !ok {
			name := e.CategoryName
			if c, found := FindCategory(u.Categories, e.Category); found {
				name = c.Name
			}
			i = len(s.ByCategory)
			index[e.Category] = i
			s.ByCategory = append(s.ByCategory, CategoryAmount{CategoryID: e.Category, Name: name})
		}
		s.ByCategory[i].Amount += e.Amount
	}
	s.Remaining = s.Limit - s.Spent
	return s
}
