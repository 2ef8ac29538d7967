package domain

import "regexp"

// phonePattern matches the 11-digit local mobile format: 0, then 9, then nine
// more digits (e.g. 09121234567).
var phonePattern = regexp.MustCompile(`^09\d{9}$`)

// ValidPhone reports whether the given string is a well-formed mobile number.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
