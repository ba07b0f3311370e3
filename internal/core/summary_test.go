package core

import "testing"

func TestSummarize(t *testing.T) {
	u := User{
		MonthlyLimit: 100_000,
		Categories:   []Category{{ID: "an_uong", Name: "Food"}},
		Expenses: []Expense{
			{ID: 1, Category: "an_uong", CategoryName: "Ăn uống", Amount: 40_000},
			{ID: 2, Category: "old", CategoryName: "Old", Amount: 70_000},
			{ID: 3, Category: "an_uong", Amount: 10_000},
		},
	}
	s := Summarize(u)
	if s.Spent != 120_000 || s.Remaining != -20_000 || s.Count != 3 {
		t.Fatalf("unexpected totals %+v", s)
	}
	if !s.OverLimit() {
		t.Fatalf("expected over limit")
	}
	if len(s.ByCategory) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(s.ByCategory))
	}
	if s.ByCategory[0].Name != "Food" || s.ByCategory[0].Amount != 50_000 {
		t.Fatalf("unexpected first group %+v", s.ByCategory[0])
	}
	if s.ByCategory[1].Name != "Old" {
		t.Fatalf("expected captured name fallback, got %+v", s.ByCategory[1])
	}
}

func TestSummarizeNoLimit(t *testing.T) {
	s := Summarize(User{Expenses: []Expense{{Amount: 5}}})
	if s.OverLimit() {
		t.Fatalf("zero limit is never exceeded")
	}
}
