package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type (
	// Date is a calendar date without time of day.
	Date struct {
		time.Time
	}

	Category struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Icon string `json:"icon"`
	}

	// Expense is one spending record. ID is the dense per-user counter shown
	// to the user; UID is the cross-device identity.
	Expense struct {
		ID           int64  `json:"id"`
		UID          string `json:"uid,omitempty"`
		Category     string `json:"category"`
		CategoryName string `json:"categoryName"`
		Amount       int64  `json:"amount"`
		Date         Date   `json:"date"`
	}

	// User is the full snapshot persisted remotely and in the local cache.
	User struct {
		ID           string     `json:"id"`
		Name         string     `json:"name"`
		Email        string     `json:"email"`
		Username     string     `json:"username"`
		Avatar       string     `json:"avatar,omitempty"`
		MonthlyLimit int64      `json:"monthlyLimit"`
		Expenses     []Expense  `json:"expenses"`
		Categories   []Category `json:"categories"`
	}

	// Profile is the data supplied at registration.
	Profile struct {
		Name     string `json:"name"`
		Username string `json:"username"`
	}

	// ProfileUpdate carries the editable personal fields.
	ProfileUpdate struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
)

var ErrInvalidDateFormat = errors.New("invalid date format")

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return NewDate(y, int(m), d), nil
	}
	return Date{}, ErrInvalidDateFormat
}

// Today returns the current local calendar date.
func Today() Date {
	y, m, d := time.Now().Date()
	return NewDate(y, int(m), d)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Clone returns a deep copy so callers can mutate slices freely.
func (u User) Clone() User {
	out := u
	if u.Expenses != nil {
		out.Expenses = append([]Expense(nil), u.Expenses...)
	}
	if u.Categories != nil {
		out.Categories = append([]Category(nil), u.Categories...)
	}
	return out
}

// DisplayName falls back to the username, then the email.
func (u User) DisplayName() string {
	switch {
	case strings.TrimSpace(u.Name) != "":
		return u.Name
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// Initials returns up to two upper-case initials of the name, used when no
// avatar is set.
func (u User) Initials() string {
	parts := strings.Fields(u.Name)
	if len(parts) == 0 {
		return "NG"
	}
	var out []rune
	for _, part := range parts {
		out = append(out, []rune(part)[0])
		if len(out) == 2 {
			break
		}
	}
	return strings.ToUpper(string(out))
}

// FindCategory returns the category with the given id.
func FindCategory(cats []Category, id string) (Category, bool) {
	for _, c := range cats {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
