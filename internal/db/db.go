package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Import the libSQL driver; it registers "libsql" with database/sql.
	// Handles remote URLs (libsql://, https://, wss://).
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	// Import the pure-Go SQLite driver for local file: URLs.
	// libsql-client-go delegates file: URLs to this driver.
	_ "modernc.org/sqlite"
)

// driverName is the database/sql driver to use; tests may swap it.
var driverName = "libsql"

// sqlOpen is sql.Open; tests replace it to see the DSN Connect builds.
var sqlOpen = sql.Open

// Connect opens the launch-history database and verifies it with a ping.
// A bare filesystem path is treated as a local file.
//
// Supported URL forms:
//
//	Local file:   "file:path/to/history.db" or "path/to/history.db"
//	Remote Turso: "libsql://[db-name].turso.io?authToken=[token]"
//
// Windows paths such as `C:\data\history.db` are bare paths, not URLs.
func Connect(ctx context.Context, dbURL string) (*sql.DB, error) {
	dbURL = strings.TrimSpace(dbURL)
	if dbURL == "" {
		return nil, fmt.Errorf("database URL must not be empty")
	}
	if !hasScheme(dbURL) {
		dbURL = "file:" + dbURL
	}

	db, err := sqlOpen(driverName, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// hasScheme reports whether s starts with a URL scheme. A single letter
// before the colon is a Windows drive, not a scheme.
func hasScheme(s string) bool {
	i := strings.IndexByte(s, ':')
	if i < 2 {
		return false
	}
	for j := 0; j < i; j++ {
		c := s[j]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case j > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}
