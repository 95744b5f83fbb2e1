package factory

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// mysqlFactory opens one dedicated *sql.DB per RawConnection, pinned to a
// single physical connection with SetMaxOpenConns(1): database/sql is
// itself a pool, and letting two pools multiplex the same handle would
// defeat this package's own accounting.
type mysqlFactory struct {
	dsn string
}

// NewMySQL builds a ConnectionFactory backed by go-sql-driver/mysql.
func NewMySQL(dsn string) ConnectionFactory {
	return &mysqlFactory{dsn: dsn}
}

func (f *mysqlFactory) Open(ctx context.Context) (RawConnection, error) {
	db, err := sql.Open("mysql", f.dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: conn: %w", err)
	}
	return &mysqlConnection{db: db, conn: conn}, nil
}

type mysqlConnection struct {
	db   *sql.DB
	conn *sql.Conn
}

func (c *mysqlConnection) Prepare(ctx context.Context, query string) (Statement, error) {
	stmt, err := c.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("mysql: prepare liveness statement: %w", err)
	}
	return &mysqlStatement{stmt: stmt}, nil
}

func (c *mysqlConnection) Tables(ctx context.Context, pattern string) error {
	rows, err := c.conn.QueryContext(ctx, "SHOW TABLES LIKE ?", pattern)
	if err != nil {
		return fmt.Errorf("mysql: metadata lookup: %w", err)
	}
	defer rows.Close()
	rows.Next()
	return rows.Err()
}

func (c *mysqlConnection) Close() error {
	connErr := c.conn.Close()
	dbErr := c.db.Close()
	if connErr != nil {
		return connErr
	}
	return dbErr
}

type mysqlStatement struct {
	stmt *sql.Stmt
}

func (s *mysqlStatement) Execute(ctx context.Context) error {
	_, err := s.stmt.ExecContext(ctx)
	return err
}

func (s *mysqlStatement) Close() error {
	return s.stmt.Close()
}
