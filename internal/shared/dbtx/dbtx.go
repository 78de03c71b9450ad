package dbtx

import (
	"database/sql"

	"gorm.io/gorm"
)

// Bind returns a gorm handle that executes on tx, so repositories share the
// caller's unit of work. A nil tx returns db unchanged.
func Bind(db *gorm.DB, tx *sql.Tx) *gorm.DB {
	if tx == nil || db == nil {
		return db
	}
	bound := db.Session(&gorm.Session{NewDB: true})
	bound.Statement.ConnPool = tx
	return bound
}
