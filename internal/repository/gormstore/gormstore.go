// Package gormstore provides the gorm/Postgres implementations of the
// domain repository interfaces.
package gormstore

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// The driver message is stable enough when error translation is off.
	return strings.Contains(err.Error(), "duplicate key value")
}
