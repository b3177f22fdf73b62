package logger

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	kvPasswordRegex = regexp.MustCompile(`(?i)(password|pwd)=([^;&\s]+)`)
	urlUserRegex    = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://[^:/@\s]+):([^@\s]+)@`)
)

// RedactDSN masks the password of a database connection string.
// "postgres://rfm:secret@db:5432/rfm" → "postgres://rfm:***@db:5432/rfm"
// "user=rfm password=secret host=db" → "user=rfm password=*** host=db"
func RedactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
			return strings.Replace(u.String(), "%2A%2A%2A", "***", 1)
		}
	}
	return kvPasswordRegex.ReplaceAllString(dsn, "$1=***")
}

func redactValue(key, val string) string {
	key = strings.ToLower(key)
	if strings.Contains(key, "password") || strings.Contains(key, "secret") {
		return "***"
	}
	if strings.Contains(key, "dsn") || strings.Contains(key, "url") {
		return RedactDSN(val)
	}
	// Catch credentials embedded in free-form values (error strings etc.)
	val = urlUserRegex.ReplaceAllString(val, "$1:***@")
	return kvPasswordRegex.ReplaceAllString(val, "$1=***")
}
