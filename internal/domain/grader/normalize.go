package grader

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Normalize rewrites a line holding a leading number as that number's
// canonical form ("3.0" -> "3", "1e3" -> "1000"). Lines that do not start
// with a number are returned unchanged.
func Normalize(line string) string {
	f, ok := parseLeadingFloat(line)
	if !ok {
		return line
	}
	return FormatNumber(f)
}

// parseLeadingFloat parses the longest prefix of s (after leading space)
// that forms a decimal literal or Infinity, so "12abc" yields 12.
func parseLeadingFloat(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t\n\v\f\r\u00a0\ufeff")
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		if s[0] == '-' {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	end := i

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			end = k
		}
	}

	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		// Out-of-range literals saturate to ±Inf, which ParseFloat also returns.
		if errors.Is(err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}
	return f, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// FormatNumber renders f the way a JavaScript number prints: the shortest
// round-tripping digits, plain notation for 1e-6 <= |f| < 1e21 and exponent
// notation otherwise.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		n, _ := strconv.Atoi(exp)
		if n >= 0 {
			return mant + "e+" + strconv.Itoa(n)
		}
		return mant + "e" + strconv.Itoa(n)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
