package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FormatINR renders a rupee amount with Indian digit grouping (12,34,567).
func FormatINR(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%sRs. %s", sign, groupIndian(amount))
}

// ToPaise converts whole rupees to the gateway's minor unit.
func ToPaise(rupees int64) int64 {
	return rupees * 100
}

// ParseRupees parses "Rs. 12,500" or "12500" into whole rupees.
func ParseRupees(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "rs.")
	s = strings.TrimPrefix(s, "rs")
	s = strings.TrimPrefix(s, "₹")
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	if s == "" {
		return 0, fmt.Errorf("invalid rupee amount")
	}
	return strconv.ParseInt(s, 10, 64)
}

// Rupees is a whole-rupee amount that decodes from a JSON number or a formatted string.
type Rupees int64

func (r *Rupees) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		v, err := ParseRupees(str)
		if err != nil {
			return fmt.Errorf("invalid rupee amount %q", str)
		}
		*r = Rupees(v)
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid rupee amount %s", raw)
	}
	*r = Rupees(v)
	return nil
}

func groupIndian(n int64) string {
	str := strconv.FormatInt(n, 10)
	if len(str) <= 3 {
		return str
	}
	head, tail := str[:len(str)-3], str[len(str)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
