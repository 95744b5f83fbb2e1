package factory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// postgresFactory opens connections through pgx directly rather than
// through pgxpool.Pool: multiplexing is this module's job, and stacking
// pool-on-pool would just hide the accounting this package exists to get
// right.
type postgresFactory struct {
	dsn string
}

// NewPostgres builds a ConnectionFactory backed by a single pgx.Conn per
// RawConnection.
func NewPostgres(dsn string) ConnectionFactory {
	return &postgresFactory{dsn: dsn}
}

func (f *postgresFactory) Open(ctx context.Context) (RawConnection, error) {
	conn, err := pgx.Connect(ctx, f.dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	return &postgresConnection{conn: conn}, nil
}

type postgresConnection struct {
	conn *pgx.Conn
}

const livenessStatementName = "connpool_liveness"

func (c *postgresConnection) Prepare(ctx context.Context, query string) (Statement, error) {
	if _, err := c.conn.Prepare(ctx, livenessStatementName, query); err != nil {
		return nil, fmt.Errorf("postgres: prepare liveness statement: %w", err)
	}
	return &postgresStatement{conn: c.conn}, nil
}

func (c *postgresConnection) Tables(ctx context.Context, pattern string) error {
	rows, err := c.conn.Query(ctx, "select table_name from information_schema.tables where table_name = $1", pattern)
	if err != nil {
		return fmt.Errorf("postgres: metadata lookup: %w", err)
	}
	defer rows.Close()
	rows.Next() // presence is irrelevant; only the round trip matters
	return rows.Err()
}

func (c *postgresConnection) Close() error {
	return c.conn.Close(context.Background())
}

type postgresStatement struct {
	conn *pgx.Conn
}

func (s *postgresStatement) Execute(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, livenessStatementName)
	return err
}

func (s *postgresStatement) Close() error {
	_, err := s.conn.Exec(context.Background(), fmt.Sprintf("DEALLOCATE %s", livenessStatementName))
	return err
}
