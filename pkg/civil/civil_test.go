package civil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestDate_DayOfWeek(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2026-10-19", 0}, // Monday
		{"2026-10-20", 1},
		{"2026-10-24", 5},
		{"2026-10-25", 6}, // Sunday
	}
	for _, tt := range tests {
		d, err := ParseDate(tt.date)
		if err != nil {
			t.Fatalf("ParseDate(%s): %v", tt.date, err)
		}
		if got := d.DayOfWeek(); got != tt.want {
			t.Errorf("%s.DayOfWeek() = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestDate_Comparisons(t *testing.T) {
	a := Date{2026, time.October, 18}
	b := a.AddDays(1)
	if !a.Before(b) || b.Before(a) {
		t.Error("expected a before b")
	}
	if !b.After(a) {
		t.Error("expected b after a")
	}
	if !a.Within(a, b) || !b.Within(a, b) {
		t.Error("expected inclusive range")
	}
	if a.AddDays(-1).Within(a, b) {
		t.Error("expected day before range to be outside")
	}
}

func TestDate_AddDaysAcrossMonth(t *testing.T) {
	d := Date{2026, time.October, 31}
	if got := d.AddDays(1).String(); got != "2026-11-01" {
		t.Errorf("expected 2026-11-01, got %s", got)
	}
}

func TestToday_UsesLocation(t *testing.T) {
	now := time.Date(2026, time.October, 18, 22, 30, 0, 0, time.UTC)
	nairobi := time.FixedZone("EAT", 3*3600)
	if got := Today(now, nairobi).String(); got != "2026-10-19" {
		t.Errorf("expected 2026-10-19 in EAT, got %s", got)
	}
	if got := Today(now, nil).String(); got != "2026-10-18" {
		t.Errorf("expected 2026-10-18 in UTC, got %s", got)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	if _, err := ParseDate("18/10/2026"); err == nil {
		t.Error("expected error for wrong layout")
	}
}

func TestDate_JSON(t *testing.T) {
	var v struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2026-10-19"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.D != (Date{2026, time.October, 19}) {
		t.Errorf("unexpected date %v", v.D)
	}
	out, _ := json.Marshal(v)
	if string(out) != `{"d":"2026-10-19"}` {
		t.Errorf("unexpected json %s", out)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", 9 * 3600, false},
		{"13:45:30", 13*3600 + 45*60 + 30, false},
		{"24:00", 0, true},
		{"9am", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimeOfDay(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTimeOfDay_InRangeIsHalfOpen(t *testing.T) {
	start, end := MustTime(9, 0), MustTime(12, 0)
	if !MustTime(9, 0).InRange(start, end) {
		t.Error("start should be inside")
	}
	if !MustTime(11, 59).InRange(start, end) {
		t.Error("11:59 should be inside")
	}
	if MustTime(12, 0).InRange(start, end) {
		t.Error("end should be outside")
	}
	if MustTime(8, 59).InRange(start, end) {
		t.Error("8:59 should be outside")
	}
}

func TestTimeOfDay_PGRoundTrip(t *testing.T) {
	tod := MustTime(10, 30)
	if got := TimeFromPG(tod.PG()); got != tod {
		t.Errorf("expected %s, got %s", tod, got)
	}
}

func TestTimeOfDay_String(t *testing.T) {
	if got := MustTime(7, 5).String(); got != "07:05" {
		t.Errorf("expected 07:05, got %s", got)
	}
	tod, _ := NewTimeOfDay(7, 5, 9)
	if got := tod.String(); got != "07:05:09" {
		t.Errorf("expected 07:05:09, got %s", got)
	}
}

func TestCombine(t *testing.T) {
	got := Combine(Date{2026, time.October, 19}, MustTime(10, 0), time.UTC)
	want := time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestDate_PG(t *testing.T) {
	if (Date{}).PG().Valid {
		t.Error("zero date should be NULL")
	}
	d := Date{2026, time.October, 19}
	if got := DateFromPG(d.PG()); got != d {
		t.Errorf("expected %s, got %s", d, got)
	}
	if !DateFromPG(pgtype.Date{}).IsZero() {
		t.Error("NULL should become the zero date")
	}
}
