package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Options struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // SQLite database file
}

// Dialect carries the per-driver differences the repository cares about.
type Dialect struct {
	Driver     string
	PostsTable string
}

var placeholderRe = regexp.MustCompile(`\$\d+`)

// Rebind rewrites $n placeholders for drivers that only take positional "?".
// Placeholders must appear once each, in order.
func (d Dialect) Rebind(query string) string {
	if d.Driver == DriverSQLite {
		return placeholderRe.ReplaceAllString(query, "?")
	}
	return query
}

// DB wraps the connection pool with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

func NewConnection(opts Options) (*DB, error) {
	var (
		dsn     string
		dialect Dialect
	)

	switch opts.Driver {
	case DriverPostgres, "":
		sslMode := opts.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			opts.Host, opts.Port, opts.User, opts.Password, opts.Name, sslMode)
		dialect = Dialect{Driver: DriverPostgres, PostsTable: "social_media_schema.social_posts"}
	case DriverSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite database path is required")
		}
		dsn = opts.Path + "?_pragma=busy_timeout(5000)"
		dialect = Dialect{Driver: DriverSQLite, PostsTable: "social_posts"}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}

	sqlDB, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect.Driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: sqlDB, Dialect: dialect}, nil
}
