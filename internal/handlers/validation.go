package handlers

import "regexp"

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

const (
	minUsernameLength = 3
	minPasswordLength = 8
)

// validUsername reports whether a username is at least three characters of
// letters, digits and underscores.
func validUsername(username string) bool {
	return len(username) >= minUsernameLength && usernamePattern.MatchString(username)
}

// validEmail reports whether the string looks like an email address.
func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// validPassword reports whether the password meets the minimum length.
func validPassword(password string) bool {
	return len(password) >= minPasswordLength
}
