package logs

import (
	"encoding/json"
	"time"
)

// Date is a calendar date written as "YYYY-MM-DD".
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// FilterPreference is a named filter preset saved by a user. Names are unique
// per user.
type FilterPreference struct {
	ID        int64     `json:"id,omitempty"`
	User      int64     `json:"user,omitempty"`
	Name      string    `json:"name"`
	Severity  Severity  `json:"severity"`
	Source    string    `json:"source"`
	DateFrom  *Date     `json:"date_from"`
	DateTo    *Date     `json:"date_to"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

const MaxPreferenceNameLength = 100

// Filter converts the preset to a log filter. DateTo covers the whole day.
func (p FilterPreference) Filter() Filter {
	f := Filter{Severity: p.Severity, Source: p.Source}
	if p.DateFrom != nil {
		f.DateFrom = p.DateFrom.Time
	}
	if p.DateTo != nil {
		f.DateTo = p.DateTo.AddDate(0, 0, 1).Add(-time.Second)
	}
	return f
}
