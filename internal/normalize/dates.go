package normalize

import (
	"regexp"
	"strings"
	"time"
)

const (
	StorageDateLayout = "2006-01-02"
	DisplayDateLayout = "02/01/2006"
	FileDateLayout    = "02-01-2006"
)

var (
	isoDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	brDateRe  = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
)

// ToStorageDate canonicalizes a date-like value to YYYY-MM-DD. Records carry
// dates as ISO strings, BR display strings, timestamps and the occasional
// free-form value; anything unparseable comes back as the empty string,
// never a panic.
func ToStorageDate(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case time.Time:
		if d.IsZero() {
			return ""
		}
		return d.Format(StorageDateLayout)
	case *time.Time:
		if d == nil || d.IsZero() {
			return ""
		}
		return d.Format(StorageDateLayout)
	case string:
		return storageDateFromString(d)
	default:
		return ""
	}
}

func storageDateFromString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		candidate := m[1] + "-" + m[2] + "-" + m[3]
		if _, err := time.Parse(StorageDateLayout, candidate); err == nil {
			return candidate
		}
		return ""
	}
	if m := brDateRe.FindStringSubmatch(s); m != nil {
		candidate := m[3] + "-" + m[2] + "-" + m[1]
		if _, err := time.Parse(StorageDateLayout, candidate); err == nil {
			return candidate
		}
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2/1/2006", "02/01/06"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(StorageDateLayout)
		}
	}
	return ""
}

// FormatDisplayDate renders a date-like value as DD/MM/YYYY. Values already in
// display form pass through; unparseable non-empty input comes back unchanged
// so a bad record never blanks a report cell.
func FormatDisplayDate(v any) string {
	switch d := v.(type) {
	case time.Time:
		if d.IsZero() {
			return ""
		}
		return d.Format(DisplayDateLayout)
	case *time.Time:
		if d == nil || d.IsZero() {
			return ""
		}
		return d.Format(DisplayDateLayout)
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return ""
		}
		if brDateRe.MatchString(s) {
			return s
		}
		if iso := storageDateFromString(s); iso != "" {
			t, _ := time.Parse(StorageDateLayout, iso)
			return t.Format(DisplayDateLayout)
		}
		return s
	case nil:
		return ""
	default:
		return ""
	}
}

// FormatFileDate renders a canonical date as DD-MM-YYYY for filenames.
func FormatFileDate(storageDate string) string {
	t, err := time.Parse(StorageDateLayout, storageDate)
	if err != nil {
		return storageDate
	}
	return t.Format(FileDateLayout)
}

// Period is an inclusive calendar-date range in storage form.
type Period struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// NormalizePeriod canonicalizes both bounds and validates their ordering.
func NormalizePeriod(start, end any) (Period, bool) {
	s := ToStorageDate(start)
	e := ToStorageDate(end)
	if s == "" || e == "" || s > e {
		return Period{}, false
	}
	return Period{StartDate: s, EndDate: e}, true
}
