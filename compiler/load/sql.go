package load

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Supported SQL dialects.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

// DefaultAuditColumns are the audit-stamp columns that mark a table as
// auditable, in their PascalCase property form.
var DefaultAuditColumns = []string{"Created", "CreatedBy", "LastModified", "LastModifiedBy"}

// SQLProvider derives entities from a live database. Tables become entities,
// columns become properties in ordinal order.
type SQLProvider struct {
	db      *sql.DB
	dialect string
	schema  string
	opts    sqlOptions
}

type sqlOptions struct {
	namespace    string
	base         string
	auditColumns []string
}

// SQLOption configures a SQLProvider.
type SQLOption func(*SQLProvider)

// WithSchemaName sets the database schema to introspect. For MySQL this is
// the database name. Postgres defaults to "public".
func WithSchemaName(name string) SQLOption {
	return func(p *SQLProvider) { p.schema = name }
}

// WithEntityNamespace sets the namespace recorded on every entity.
func WithEntityNamespace(ns string) SQLOption {
	return func(p *SQLProvider) { p.opts.namespace = ns }
}

// WithAuditable sets the base classification recorded on tables that carry
// every audit column.
func WithAuditable(base string, columns ...string) SQLOption {
	return func(p *SQLProvider) {
		p.opts.base = base
		if len(columns) > 0 {
			p.opts.auditColumns = columns
		}
	}
}

// NewSQLProvider returns a provider reading db with the given dialect.
func NewSQLProvider(db *sql.DB, dialect string, opts ...SQLOption) (*SQLProvider, error) {
	p := &SQLProvider{
		db:      db,
		dialect: dialect,
		opts: sqlOptions{
			base:         "AuditableEntity",
			auditColumns: DefaultAuditColumns,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	switch dialect {
	case DialectPostgres:
		if p.schema == "" {
			p.schema = "public"
		}
	case DialectMySQL:
		if p.schema == "" {
			return nil, fmt.Errorf("mysql: a schema (database) name is required")
		}
	case DialectSQLite:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	return p, nil
}

// Entities implements SchemaProvider.
func (p *SQLProvider) Entities(ctx context.Context) ([]*Entity, error) {
	tables, err := p.tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	entities := make([]*Entity, 0, len(tables))
	for _, table := range tables {
		e, err := p.entity(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", table, err)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// column is one row of column metadata, common to all dialects.
type column struct {
	name      string
	dataType  string
	nullable  bool
	dflt      sql.NullString
	maxLength sql.NullInt64
	extra     string
	pk        int
}

func (p *SQLProvider) entity(ctx context.Context, table string) (*Entity, error) {
	cols, err := p.columns(ctx, table)
	if err != nil {
		return nil, err
	}
	keys, err := p.primaryKey(ctx, table, cols)
	if err != nil {
		return nil, err
	}
	e := &Entity{
		Name:      pascal(rules.Singularize(table)),
		Namespace: p.opts.namespace,
	}
	for _, k := range keys {
		e.PrimaryKey = append(e.PrimaryKey, pascal(k))
	}
	for i, c := range cols {
		e.Properties = append(e.Properties, p.property(c, i, len(keys) == 1 && keys[0] == c.name))
	}
	if p.auditable(e) {
		e.Base = p.opts.base
	}
	return e, nil
}

func (p *SQLProvider) auditable(e *Entity) bool {
	if len(p.opts.auditColumns) == 0 {
		return false
	}
	for _, name := range p.opts.auditColumns {
		if !slices.ContainsFunc(e.Properties, func(prop *Property) bool { return prop.Name == name }) {
			return false
		}
	}
	return true
}

func (p *SQLProvider) property(c column, order int, soleKey bool) *Property {
	prop := &Property{
		Name:     pascal(c.name),
		Nullable: c.nullable,
		Order:    order,
	}
	info := sqlTypeOf(c.dataType)
	prop.Type = info.typ
	if c.nullable && prop.Type.ValueType {
		prop.Type = Nullable(prop.Type)
	}
	size := info.size
	if c.maxLength.Valid && c.maxLength.Int64 > 0 {
		size = int(c.maxLength.Int64)
	}
	if info.sized && size > 0 {
		prop.FixedLength = info.fixed
		prop.MaxLength = &size
	}
	prop.ValueGenerated = p.generated(c, soleKey)
	return prop
}

func (p *SQLProvider) generated(c column, soleKey bool) ValueGenerated {
	switch p.dialect {
	case DialectPostgres:
		if c.extra == "YES" || (c.dflt.Valid && strings.HasPrefix(c.dflt.String, "nextval(")) {
			return ValueOnAdd
		}
	case DialectMySQL:
		extra := strings.ToLower(c.extra)
		if strings.Contains(extra, "auto_increment") {
			return ValueOnAdd
		}
		if strings.Contains(extra, "on update") {
			return ValueOnUpdate
		}
	case DialectSQLite:
		// An INTEGER primary key aliases the rowid.
		if soleKey && strings.EqualFold(strings.TrimSpace(c.dataType), "integer") {
			return ValueOnAdd
		}
	}
	return ValueNever
}

const (
	pgTables = `SELECT table_name FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`
	pgColumns = `SELECT column_name, data_type, is_nullable, column_default, character_maximum_length, is_identity
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`
	pgPrimaryKey = `SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema AND tc.table_name = kcu.table_name
WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = $1 AND tc.table_name = $2
ORDER BY kcu.ordinal_position`

	myTables = `SELECT table_name FROM information_schema.tables
WHERE table_schema = ? AND table_type = 'BASE TABLE'
ORDER BY table_name`
	myColumns = `SELECT column_name, column_type, is_nullable, column_default, character_maximum_length, extra
FROM information_schema.columns
WHERE table_schema = ? AND table_name = ?
ORDER BY ordinal_position`
	myPrimaryKey = `SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema AND tc.table_name = kcu.table_name
WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = ? AND tc.table_name = ?
ORDER BY kcu.ordinal_position`

	liteTables = `SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`
	liteColumns = `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`
)

func (p *SQLProvider) tables(ctx context.Context) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	switch p.dialect {
	case DialectPostgres:
		rows, err = p.db.QueryContext(ctx, pgTables, p.schema)
	case DialectMySQL:
		rows, err = p.db.QueryContext(ctx, myTables, p.schema)
	default:
		rows, err = p.db.QueryContext(ctx, liteTables)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (p *SQLProvider) columns(ctx context.Context, table string) ([]column, error) {
	var (
		rows *sql.Rows
		err  error
	)
	switch p.dialect {
	case DialectPostgres:
		rows, err = p.db.QueryContext(ctx, pgColumns, p.schema, table)
	case DialectMySQL:
		rows, err = p.db.QueryContext(ctx, myColumns, p.schema, table)
	default:
		rows, err = p.db.QueryContext(ctx, liteColumns, table)
	}
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()
	var cols []column
	for rows.Next() {
		var (
			c        column
			nullable string
			extra    sql.NullString
			notNull  int
		)
		switch p.dialect {
		case DialectSQLite:
			err = rows.Scan(&c.name, &c.dataType, &notNull, &c.dflt, &c.pk)
			c.nullable = notNull == 0 && c.pk == 0
		default:
			err = rows.Scan(&c.name, &c.dataType, &nullable, &c.dflt, &c.maxLength, &extra)
			c.nullable = nullable == "YES"
			c.extra = extra.String
		}
		if err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (p *SQLProvider) primaryKey(ctx context.Context, table string, cols []column) ([]string, error) {
	if p.dialect == DialectSQLite {
		keyed := slices.DeleteFunc(slices.Clone(cols), func(c column) bool { return c.pk == 0 })
		slices.SortStableFunc(keyed, func(a, b column) int { return a.pk - b.pk })
		keys := make([]string, len(keyed))
		for i, c := range keyed {
			keys[i] = c.name
		}
		return keys, nil
	}
	query := pgPrimaryKey
	if p.dialect == DialectMySQL {
		query = myPrimaryKey
	}
	rows, err := p.db.QueryContext(ctx, query, p.schema, table)
	if err != nil {
		return nil, fmt.Errorf("list primary key: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		keys = append(keys, name)
	}
	return keys, rows.Err()
}

// sqlType is the host type a column type maps to.
type sqlType struct {
	typ   *TypeRef
	sized bool // length facets apply
	fixed bool // fixed-length character type
	size  int  // length declared in the type itself, e.g. varchar(200)
}

var typeSize = regexp.MustCompile(`^\s*([a-zA-Z ]+?)\s*(?:\(\s*(\d+)\s*(?:,\s*\d+\s*)?\))?\s*(unsigned)?\s*$`)

// sqlTypeOf maps a column type to its host type. Unknown column types map
// to System.String.
func sqlTypeOf(dataType string) sqlType {
	base, size := strings.ToLower(strings.TrimSpace(dataType)), 0
	if m := typeSize.FindStringSubmatch(base); m != nil {
		base = m[1]
		if m[2] != "" {
			size, _ = strconv.Atoi(m[2])
		}
	}
	switch base {
	case "smallint", "int2", "smallserial":
		return sqlType{typ: Type("System.Int16")}
	case "integer", "int", "int4", "mediumint", "serial":
		return sqlType{typ: Type("System.Int32")}
	case "bigint", "int8", "bigserial":
		return sqlType{typ: Type("System.Int64")}
	case "tinyint":
		if size == 1 {
			return sqlType{typ: Type("System.Boolean")}
		}
		return sqlType{typ: Type("System.Byte")}
	case "boolean", "bool", "bit":
		return sqlType{typ: Type("System.Boolean")}
	case "real", "float4", "float":
		return sqlType{typ: Type("System.Single")}
	case "double precision", "double", "float8":
		return sqlType{typ: Type("System.Double")}
	case "numeric", "decimal", "money":
		return sqlType{typ: Type("System.Decimal")}
	case "character", "char", "nchar", "bpchar":
		return sqlType{typ: Type("System.String"), sized: true, fixed: true, size: size}
	case "character varying", "varchar", "nvarchar", "varchar2":
		return sqlType{typ: Type("System.String"), sized: true, size: size}
	case "uuid", "uniqueidentifier":
		return sqlType{typ: Type("System.Guid")}
	case "date", "timestamp", "timestamp without time zone", "datetime", "datetime2":
		return sqlType{typ: Type("System.DateTime")}
	case "timestamptz", "timestamp with time zone", "datetimeoffset":
		return sqlType{typ: Type("System.DateTimeOffset")}
	case "time", "time without time zone", "interval":
		return sqlType{typ: Type("System.TimeSpan")}
	case "bytea", "blob", "binary", "varbinary", "longblob", "mediumblob":
		return sqlType{typ: Type("System.Byte[]")}
	default:
		return sqlType{typ: Type("System.String")}
	}
}

var rules = inflect.NewDefaultRuleset()

// pascal converts a snake_case identifier to PascalCase, e.g.
// "last_modified_by" to "LastModifiedBy".
func pascal(s string) string {
	var (
		b     strings.Builder
		title = cases.Title(language.English, cases.NoLower)
	)
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' }) {
		b.WriteString(title.String(part))
	}
	return b.String()
}
