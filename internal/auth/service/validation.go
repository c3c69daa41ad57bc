package service

import (
	"unicode"
	"unicode/utf8"
)

const (
	minUsernameLen    = 4
	maxUsernameLen    = 20
	minPasswordLen    = 8
	maxPasswordLen    = 20
	maxDisplayNameLen = 30
)

// SignupRequest is the input of a password signup.
type SignupRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// Validate returns a *ValidationError naming every bad field, or nil.
func (r SignupRequest) Validate() error {
	fields := map[string]string{}

	if n := len(r.Username); n < minUsernameLen || n > maxUsernameLen || !isASCIIAlnum(r.Username) {
		fields["username"] = "must be 4 to 20 letters or digits"
	}

	if !validPassword(r.Password) {
		fields["password"] = "must be 8 to 20 characters with at least one letter and one digit"
	}

	if n := utf8.RuneCountInString(r.DisplayName); n < 1 || n > maxDisplayNameLen || isBlank(r.DisplayName) {
		fields["displayName"] = "must be 1 to 30 characters"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func isASCIIAlnum(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

func validPassword(p string) bool {
	n := utf8.RuneCountInString(p)
	if n < minPasswordLen || n > maxPasswordLen {
		return false
	}

	var letter, digit bool
	for _, r := range p {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

func isBlank(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
