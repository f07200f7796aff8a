package utils

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatINR(t *testing.T) {
	cases := map[int64]string{
		0:        "Rs. 0",
		999:      "Rs. 999",
		1000:     "Rs. 1,000",
		12500:    "Rs. 12,500",
		1234567:  "Rs. 12,34,567",
		-250000:  "-Rs. 2,50,000",
		10000000: "Rs. 1,00,00,000",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatINR(in), "amount %d", in)
	}
}

func TestParseRupees(t *testing.T) {
	v, err := ParseRupees("Rs. 12,500")
	require.NoError(t, err)
	assert.Equal(t, int64(12500), v)

	v, err = ParseRupees("₹ 1,00,000")
	require.NoError(t, err)
	assert.Equal(t, int64(100000), v)

	_, err = ParseRupees("rs.")
	assert.Error(t, err)
	_, err = ParseRupees("twelve")
	assert.Error(t, err)

	assert.Equal(t, int64(1250000), ToPaise(12500))
}

func TestRupeesUnmarshal(t *testing.T) {
	var in struct {
		Fee Rupees `json:"fee"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"fee":"Rs. 12,500"}`), &in))
	assert.Equal(t, Rupees(12500), in.Fee)
	require.NoError(t, json.Unmarshal([]byte(`{"fee":9000}`), &in))
	assert.Equal(t, Rupees(9000), in.Fee)
	assert.Error(t, json.Unmarshal([]byte(`{"fee":"twelve"}`), &in))
	assert.Error(t, json.Unmarshal([]byte(`{"fee":12.5}`), &in))
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("9876543210"))
	assert.True(t, ValidPhone("+91 98765-43210"))
	assert.False(t, ValidPhone("1234567890"))
	assert.False(t, ValidPhone("98765"))
}

func TestStringHelpers(t *testing.T) {
	assert.Equal(t, "Route 12 Erode", NormalizeSpace("  Route\t12   Erode \n"))
	assert.Equal(t, "priya@jkkn.ac.in", NormalizeEmail(" Priya@JKKN.ac.in "))
	assert.True(t, ValidEmail("priya@jkkn.ac.in"))
	assert.False(t, ValidEmail("priya@jkkn"))
	assert.Equal(t, "வணக்", Truncate("வணக்கம்", 4))
	assert.Equal(t, "bus", Truncate("bus", 10))
}

func TestCombineDateClock(t *testing.T) {
	day := time.Date(2025, 3, 12, 15, 30, 0, 0, time.Local)

	got, err := CombineDateClock(day, "07:45")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 12, 7, 45, 0, 0, time.Local), got)

	got, err = CombineDateClock(day, "18:05:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 12, 18, 5, 30, 0, time.Local), got)

	for _, bad := range []string{"", "7:45", "24:00", "07:60", "ab:cd"} {
		_, err := CombineDateClock(day, bad)
		assert.Error(t, err, "clock %q", bad)
	}
}

func TestDateHelpers(t *testing.T) {
	d, err := ParseDate(" 2025-03-12 ")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-12", FormatDate(d))

	_, err = ParseDate("12/03/2025")
	assert.Error(t, err)

	at := time.Date(2025, 3, 12, 21, 4, 5, 0, time.Local)
	assert.Equal(t, "2025-03-12 21:04:05", FormatDateTime(at))
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.Local), StartOfDay(at))
}
