// Package dbutil holds small database helpers shared by the server and the
// batch tools.
package dbutil

import "strings"

// IsUniqueViolation reports whether err is a unique-constraint violation.
// GORM surfaces Postgres errors as plain strings, so this matches on the
// driver's wording.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}
