// Package validation holds the pure field predicates used by the registration
// and check-in workflows. None of them panic and none touch the network.
package validation

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"kiosk/internal/domain"
)

const (
	MinAge = 5
	MaxAge = 120

	MinCodeLength = 4
	MaxCodeLength = 8
)

var (
	nameRe  = regexp.MustCompile(`^[a-zA-ZáéíóúÁÉÍÓÚñÑ\s]+$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^(\+1-?)?8(09|29|49)-?\d{3}-?\d{4}$`)
	codeRe  = regexp.MustCompile(`^[A-Z0-9]{4,8}$`)

	whitespace = regexp.MustCompile(`\s+`)
	nonDigit   = regexp.MustCompile(`\D`)
)

// IsValidName accepts letters (accented vowels and ñ included) and spaces, with at
// least two characters once trimmed.
func IsValidName(s string) bool {
	return nameRe.MatchString(s) && utf8.RuneCountInString(strings.TrimSpace(s)) >= 2
}

// IsValidEmail checks the local@domain.tld shape only.
func IsValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// IsValidDominicanPhone accepts 809, 829 and 849 numbers with an optional +1 prefix
// and optional hyphens in the 3-3-4 grouping. Whitespace is ignored.
func IsValidDominicanPhone(s string) bool {
	return phoneRe.MatchString(whitespace.ReplaceAllString(s, ""))
}

func IsValidAge(n int) bool {
	return n >= MinAge && n <= MaxAge
}

// ParseAge reads the leading integer of s, ignoring surrounding whitespace and any
// trailing garbage ("30 años" parses as 30).
func ParseAge(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for i, r := range s {
		if (r == '-' || r == '+') && i == 0 {
			end = i + 1
			continue
		}
		if r < '0' || r > '9' {
			break
		}
		end = i + 1
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsValidAgeString parses s and applies IsValidAge.
func IsValidAgeString(s string) bool {
	n, ok := ParseAge(s)
	return ok && IsValidAge(n)
}

// IsValidConfirmationCode accepts 4 to 8 letters or digits, case-insensitively.
func IsValidConfirmationCode(s string) bool {
	return codeRe.MatchString(strings.ToUpper(s))
}

func IsValidGender(s string) bool {
	return domain.Gender(s).Valid()
}

// NormalizeCode mirrors what the check-in field does as the visitor types:
// upper-case, drop anything that is not A-Z or 0-9, keep at most eight characters.
func NormalizeCode(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == MaxCodeLength {
				break
			}
		}
	}
	return b.String()
}

// FormatPhone renders a ten digit Dominican number as XXX-XXX-XXXX. Anything else
// is returned unchanged.
func FormatPhone(phone string) string {
	digits := nonDigit.ReplaceAllString(phone, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) == 10 && digits[0] == '8' {
		return digits[:3] + "-" + digits[3:6] + "-" + digits[6:]
	}
	return phone
}

// FormatName collapses inner whitespace and title-cases every word.
func FormatName(name string) string {
	fields := strings.FieldsFunc(name, unicode.IsSpace)
	// Casers keep state, so each call gets its own.
	return cases.Title(language.Spanish).String(strings.Join(fields, " "))
}
