package password

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMinLength is the minimum number of characters a password must contain.
const DefaultMinLength = 8

// Violation codes reported by Policy.Validate.
const (
	CodeRequired         = "required"
	CodeTooShort         = "too_short"
	CodeWhitespace       = "whitespace"
	CodeMissingUpper     = "missing_upper"
	CodeMissingLower     = "missing_lower"
	CodeMissingDigit     = "missing_digit"
	CodeContainsUsername = "contains_username"
	CodeContainsEmail    = "contains_email"
)

// Violation is one broken password rule.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Policy holds the password strength rules. The zero value uses DefaultMinLength.
type Policy struct {
	MinLength int
}

// Validate checks password against every rule and returns all violations, in rule
// order. An empty result means the password is acceptable. An empty password yields
// only the CodeRequired violation.
//
// username and email are optional hints; when non-empty the password must not contain
// the username or the local part of the email, compared case-insensitively.
func (p Policy) Validate(password, username, email string) []Violation {
	if password == "" {
		return []Violation{{Code: CodeRequired, Message: "Password must be a non-empty string."}}
	}

	minLength := p.MinLength
	if minLength <= 0 {
		minLength = DefaultMinLength
	}

	var (
		violations                             []Violation
		hasUpper, hasLower, hasDigit, hasSpace bool
	)
	for _, r := range password {
		switch {
		case unicode.IsSpace(r):
			hasSpace = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if utf8.RuneCountInString(password) < minLength {
		violations = append(violations, Violation{Code: CodeTooShort, Message: "Password must be at least " + strconv.Itoa(minLength) + " characters long."})
	}
	if hasSpace {
		violations = append(violations, Violation{Code: CodeWhitespace, Message: "Password must not contain spaces."})
	}
	if !hasUpper {
		violations = append(violations, Violation{Code: CodeMissingUpper, Message: "Password must contain at least one uppercase letter."})
	}
	if !hasLower {
		violations = append(violations, Violation{Code: CodeMissingLower, Message: "Password must contain at least one lowercase letter."})
	}
	if !hasDigit {
		violations = append(violations, Violation{Code: CodeMissingDigit, Message: "Password must contain at least one digit."})
	}

	lowered := strings.ToLower(password)
	if username = strings.TrimSpace(username); username != "" && strings.Contains(lowered, strings.ToLower(username)) {
		violations = append(violations, Violation{Code: CodeContainsUsername, Message: "Password must not contain the username."})
	}
	if local := emailLocalPart(email); local != "" && strings.Contains(lowered, strings.ToLower(local)) {
		violations = append(violations, Violation{Code: CodeContainsEmail, Message: "Password must not contain the email address."})
	}

	return violations
}

// Validate checks password with the default policy.
func Validate(password, username, email string) []Violation {
	return Policy{}.Validate(password, username, email)
}

func emailLocalPart(email string) string {
	email = strings.TrimSpace(email)
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
