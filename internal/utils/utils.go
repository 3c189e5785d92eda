package utils

import (
	"crypto/rand"
	"encoding/base64"
	"regexp"
)

var usernameRegexp = regexp.MustCompile(`^\w+$`)

// ValidateUsername accepts word characters only, 1 to 50 runes.
func ValidateUsername(name string) bool {
	if len(name) == 0 || len(name) > 50 {
		return false
	}
	return usernameRegexp.MatchString(name)
}

func GenToken(byteLen int) string {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
