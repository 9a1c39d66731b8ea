package gen

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/syssam/cqrsgen/compiler/load"
)

// Storage is a database driver a model can be introspected from.
type Storage struct {
	Name    string // database/sql driver name.
	Dialect string // introspection dialect.
}

// drivers holds the supported storage drivers. The driver packages are
// registered by the binary.
var drivers = []*Storage{
	{Name: "postgres", Dialect: load.DialectPostgres},
	{Name: "pgx", Dialect: load.DialectPostgres},
	{Name: "mysql", Dialect: load.DialectMySQL},
	{Name: "sqlite", Dialect: load.DialectSQLite},
}

// NewStorage returns the storage driver type from the given string.
// It fails if the provided string is not a valid option.
func NewStorage(s string) (*Storage, error) {
	for _, d := range drivers {
		if s == d.Name {
			return d, nil
		}
	}
	return nil, NewConfigError("Driver", s, "invalid storage driver; use postgres, pgx, mysql or sqlite")
}

// StorageNames returns the names of the supported drivers.
func StorageNames() []string {
	names := make([]string, len(drivers))
	for i, d := range drivers {
		names[i] = d.Name
	}
	return names
}

// String implements the fmt.Stringer interface.
func (s *Storage) String() string { return s.Name }

// SQLSource is a schema provider backed by an open database.
type SQLSource struct {
	*load.SQLProvider
	db *sql.DB
}

// Close closes the database.
func (s *SQLSource) Close() error { return s.db.Close() }

// Open connects to dsn and returns a provider introspecting the database.
// The connection is checked before returning.
func (s *Storage) Open(ctx context.Context, dsn string, opts ...load.SQLOption) (*SQLSource, error) {
	db, err := sql.Open(s.Name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", s.Name, err)
	}
	p, err := load.NewSQLProvider(db, s.Dialect, opts...)
	if err != nil {
		db.Close()
		return nil, NewConfigError("Driver", s.Name, err.Error())
	}
	return &SQLSource{SQLProvider: p, db: db}, nil
}
