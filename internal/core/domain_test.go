package core

import (
	"encoding/json"
	"testing"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2025-01-15", NewDate(2025, 1, 15), true},
		{" 2025-12-31 ", NewDate(2025, 12, 31), true},
		{"2025-03-04T10:20:30Z", NewDate(2025, 3, 4), true},
		{"2025-13-01", Date{}, false},
		{"15/01/2025", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("ParseDate(%q) unexpected error: %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("ParseDate(%q) expected error", tc.in)
			}
			continue
		}
		if !got.Equal(tc.want.Time) {
			t.Fatalf("ParseDate(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2025, 2, 3))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-02-03"` {
		t.Fatalf("unexpected json %s", b)
	}

	var d Date
	if err := json.Unmarshal([]byte(`"2024-11-30"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.String() != "2024-11-30" {
		t.Fatalf("unexpected date %s", d)
	}
	if err := json.Unmarshal([]byte(`""`), &d); err != nil || !d.IsZero() {
		t.Fatalf("empty string should give zero date, got %v %v", d, err)
	}
	if err := json.Unmarshal([]byte(`"nope"`), &d); err == nil {
		t.Fatalf("expected error for bad date")
	}
}

func TestUserSnapshotJSON(t *testing.T) {
	raw := `{"id":"u1","name":"Lan","email":"lan@example.com","username":"lan","monthlyLimit":5000000,
		"expenses":[{"id":1,"category":"an_uong","categoryName":"Ăn uống","amount":50000,"date":"2025-05-01"}],
		"categories":[{"id":"an_uong","name":"Ăn uống","icon":"fa-utensils"}]}`
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.MonthlyLimit != 5_000_000 || len(u.Expenses) != 1 || len(u.Categories) != 1 {
		t.Fatalf("unexpected snapshot %+v", u)
	}
	if u.Expenses[0].UID != "" || u.Expenses[0].Date.String() != "2025-05-01" {
		t.Fatalf("unexpected expense %+v", u.Expenses[0])
	}
}

func TestUserClone(t *testing.T) {
	u := User{
		ID:         "u1",
		Expenses:   []Expense{{ID: 1, Amount: 10}},
		Categories: []Category{{ID: "a", Name: "A"}},
	}
	c := u.Clone()
	c.Expenses[0].Amount = 99
	c.Categories[0].Name = "B"
	if u.Expenses[0].Amount != 10 || u.Categories[0].Name != "A" {
		t.Fatalf("clone shares backing arrays with the original")
	}
}

func TestUserInitials(t *testing.T) {
	cases := map[string]string{
		"":                "NG",
		"   ":             "NG",
		"lan":             "L",
		"nguyen van an":   "NV",
		"Đỗ Thị Hồng Anh": "ĐT",
	}
	for name, want := range cases {
		if got := (User{Name: name}).Initials(); got != want {
			t.Fatalf("Initials(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestUserDisplayName(t *testing.T) {
	if got := (User{Name: "Lan", Username: "lan", Email: "l@x"}).DisplayName(); got != "Lan" {
		t.Fatalf("got %q", got)
	}
	if got := (User{Username: "lan", Email: "l@x"}).DisplayName(); got != "lan" {
		t.Fatalf("got %q", got)
	}
	if got := (User{Email: "l@x"}).DisplayName(); got != "l@x" {
		t.Fatalf("got %q", got)
	}
}
