package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToStorageDate(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		in   any
		want string
	}{
		{"time.Time", ts, "2024-03-15"},
		{"*time.Time", &ts, "2024-03-15"},
		{"nil *time.Time", (*time.Time)(nil), ""},
		{"iso string", "2024-03-15", "2024-03-15"},
		{"iso timestamp", "2024-03-15T10:30:00Z", "2024-03-15"},
		{"br display", "15/03/2024", "2024-03-15"},
		{"sql timestamp", "2024-03-15 10:30:00", "2024-03-15"},
		{"short br", "5/3/2024", "2024-03-05"},
		{"nil", nil, ""},
		{"empty", "", ""},
		{"garbage", "não é data", ""},
		{"invalid month", "2024-13-01", ""},
		{"number", 42, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ToStorageDate(tc.in))
		})
	}
}

func TestDisplayRoundTripStability(t *testing.T) {
	// toStorage(display(toStorage(x))) == toStorage(x) for every valid input.
	inputs := []any{
		"2024-01-31",
		"31/01/2024",
		"2023-06-01T00:00:00Z",
		time.Date(2022, 12, 25, 0, 0, 0, 0, time.UTC),
	}
	for _, in := range inputs {
		canonical := ToStorageDate(in)
		require.NotEmpty(t, canonical)
		assert.Equal(t, canonical, ToStorageDate(FormatDisplayDate(canonical)))
	}
}

func TestFormatDisplayDate(t *testing.T) {
	assert.Equal(t, "15/03/2024", FormatDisplayDate("2024-03-15"))
	assert.Equal(t, "15/03/2024", FormatDisplayDate("15/03/2024"))
	assert.Equal(t, "", FormatDisplayDate(nil))
	// Unparseable non-empty input passes through unchanged.
	assert.Equal(t, "pendente", FormatDisplayDate("pendente"))
}

func TestFormatFileDate(t *testing.T) {
	assert.Equal(t, "15-03-2024", FormatFileDate("2024-03-15"))
	assert.Equal(t, "inválido", FormatFileDate("inválido"))
}

func TestNormalizePeriod(t *testing.T) {
	p, ok := NormalizePeriod("01/01/2024", "2024-01-31")
	require.True(t, ok)
	assert.Equal(t, Period{StartDate: "2024-01-01", EndDate: "2024-01-31"}, p)

	// Single-day periods are valid.
	_, ok = NormalizePeriod("2024-01-01", "2024-01-01")
	assert.True(t, ok)

	_, ok = NormalizePeriod("2024-02-01", "2024-01-01")
	assert.False(t, ok, "inverted period must be rejected")

	_, ok = NormalizePeriod(nil, "2024-01-31")
	assert.False(t, ok)
}
