package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect covers the few places where SQLite and MySQL disagree.
type Dialect interface {
	Name() string
	Schema() []string
	IsUniqueViolation(err error) bool
	IsForeignKeyViolation(err error) bool
	UpsertSettingSQL() string
	// DayExpr renders a timestamp column as YYYY-MM-DD.
	DayExpr(col string) string
}

const DefaultSQLiteDSN = "file:estate.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"

// Open opens the database for driver ("sqlite" or "mysql") and returns the matching dialect.
func Open(driver, dsn string) (*sql.DB, Dialect, error) {
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = DefaultSQLiteDSN
		}
		db, err := sql.Open("sqlite", withForeignKeys(dsn))
		if err != nil {
			return nil, nil, err
		}
		// one writer at a time; the driver serializes access
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("enable foreign keys: %w", err)
		}
		return db, SQLite{}, nil
	case "mysql":
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, MySQL{}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

// withForeignKeys adds the foreign_keys pragma unless the DSN sets it, so
// every pooled connection enforces ON DELETE rules.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

type SQLite struct{}

func (SQLite) Name() string     { return "sqlite" }
func (SQLite) Schema() []string { return sqliteSchema }

func (SQLite) IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (SQLite) IsForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func (SQLite) UpsertSettingSQL() string {
	return `INSERT INTO settings (setting_key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(setting_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
}

func (SQLite) DayExpr(col string) string { return "substr(" + col + ", 1, 10)" }

type MySQL struct{}

func (MySQL) Name() string     { return "mysql" }
func (MySQL) Schema() []string { return mysqlSchema }

func (MySQL) IsUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func (MySQL) IsForeignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && (me.Number == 1452 || me.Number == 1451)
}

func (MySQL) UpsertSettingSQL() string {
	return `INSERT INTO settings (setting_key, value, updated_at) VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)`
}

func (MySQL) DayExpr(col string) string { return "DATE_FORMAT(" + col + ", '%Y-%m-%d')" }
