package security

import (
	"strings"
	"unicode"
)

const specialCharacters = `!@#$%^&*(),.?":{}|<>`

// StrengthReport is the outcome of password strength validation. Each of the
// five checks is worth 20 points; a password is valid only at 100.
type StrengthReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
	Score  int      `json:"score"`
}

// ValidatePasswordStrength applies the five checks: minimum length 8, at
// least one uppercase letter, one lowercase letter, one digit and one
// special character.
func ValidatePasswordStrength(password string) StrengthReport {
	var report StrengthReport

	if len([]rune(password)) < 8 {
		report.Errors = append(report.Errors, "password must be at least 8 characters long")
	} else {
		report.Score += 20
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	hasSpecial := false
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		case strings.ContainsRune(specialCharacters, char):
			hasSpecial = true
		}
	}

	if hasUpper {
		report.Score += 20
	} else {
		report.Errors = append(report.Errors, "password must contain at least one uppercase letter")
	}
	if hasLower {
		report.Score += 20
	} else {
		report.Errors = append(report.Errors, "password must contain at least one lowercase letter")
	}
	if hasDigit {
		report.Score += 20
	} else {
		report.Errors = append(report.Errors, "password must contain at least one digit")
	}
	if hasSpecial {
		report.Score += 20
	} else {
		report.Errors = append(report.Errors, "password must contain at least one special character (!@#$%^&*)")
	}

	report.Valid = len(report.Errors) == 0
	return report
}
