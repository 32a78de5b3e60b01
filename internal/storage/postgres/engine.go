// Package postgres implements the persistence engine: a single PostgreSQL
// connection that auto-commits every statement and is reopened after any
// failed statement.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/JakeFAU/newslinker/internal/metrics"
)

// ErrNoConnection is returned when no live connection could be established.
var ErrNoConnection = errors.New("no database connection")

// psql builds statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Config holds the stored credentials used to (re)open the connection.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	ConnectTimeout time.Duration
	// ReadRetries bounds how many times a failed read is retried after the
	// connection has been reset. Writes are never retried.
	ReadRetries int
}

// Validate checks that the credentials are complete.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("database port %d out of range", c.Port)
	}
	if c.ReadRetries < 0 {
		return fmt.Errorf("read retries must be >= 0")
	}
	return nil
}

// ConnString renders the credentials as a postgres URL.
func (c Config) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	if c.ConnectTimeout > 0 {
		q := url.Values{}
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Conn is the subset of *pgx.Conn used by the engine.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// DialFunc opens a fresh connection.
type DialFunc func(ctx context.Context) (Conn, error)

// PgxDialer returns a DialFunc opening a dedicated pgx connection with cfg.
func PgxDialer(cfg Config) DialFunc {
	return func(ctx context.Context) (Conn, error) {
		connCfg, err := pgx.ParseConfig(cfg.ConnString())
		if err != nil {
			return nil, fmt.Errorf("parse postgres config: %w", err)
		}
		conn, err := pgx.ConnectConfig(ctx, connCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return conn, nil
	}
}

// Engine owns one live connection. It is not safe for concurrent use; each
// component that talks to the database creates its own Engine.
type Engine struct {
	dial        DialFunc
	conn        Conn
	readRetries int
	logger      *zap.Logger
}

// New validates cfg and opens the initial connection.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	return NewWithDialer(ctx, PgxDialer(cfg), cfg.ReadRetries, logger)
}

// NewWithDialer opens the initial connection through dial (primarily for testing).
func NewWithDialer(ctx context.Context, dial DialFunc, readRetries int, logger *zap.Logger) (*Engine, error) {
	if dial == nil {
		return nil, fmt.Errorf("dialer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if readRetries < 0 {
		readRetries = 0
	}
	conn, err := dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}
	return &Engine{
		dial:        dial,
		conn:        conn,
		readRetries: readRetries,
		logger:      logger,
	}, nil
}

// Ping checks the current connection.
func (e *Engine) Ping(ctx context.Context) error {
	conn, err := e.connection(ctx)
	if err != nil {
		return err
	}
	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the connection.
func (e *Engine) Close(ctx context.Context) error {
	if e == nil || e.conn == nil {
		return nil
	}
	conn := e.conn
	e.conn = nil
	if err := conn.Close(ctx); err != nil {
		return fmt.Errorf("close postgres connection: %w", err)
	}
	return nil
}

// ResetConnection closes the current connection and opens a new one with
// the stored credentials.
func (e *Engine) ResetConnection(ctx context.Context) error {
	metrics.ObserveDBReset()
	if e.conn != nil {
		if err := e.conn.Close(ctx); err != nil {
			e.logger.Debug("close before reset failed", zap.Error(err))
		}
		e.conn = nil
	}
	conn, err := e.dial(ctx)
	if err != nil {
		e.logger.Error("database reconnect failed", zap.Error(err))
		return fmt.Errorf("reset connection: %w", err)
	}
	e.conn = conn
	e.logger.Info("database connection reset")
	return nil
}

func (e *Engine) connection(ctx context.Context) (Conn, error) {
	if e.conn != nil {
		return e.conn, nil
	}
	conn, err := e.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoConnection, err)
	}
	e.conn = conn
	return conn, nil
}

// write runs a single auto-committed statement. A failure resets the
// connection and is returned without replaying the statement.
func (e *Engine) write(ctx context.Context, op string, fn func(Conn) error) error {
	conn, err := e.connection(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := fn(conn); err != nil {
		e.logger.Warn("write failed, resetting connection", zap.String("op", op), zap.Error(err))
		_ = e.ResetConnection(ctx)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// read runs a lookup, resetting the connection and retrying up to
// readRetries times on failure.
func (e *Engine) read(ctx context.Context, op string, fn func(Conn) error) error {
	var err error
	for attempt := 0; attempt <= e.readRetries; attempt++ {
		if attempt > 0 {
			e.logger.Debug("retrying read", zap.String("op", op), zap.Int("attempt", attempt))
		}
		var conn Conn
		if conn, err = e.connection(ctx); err != nil {
			continue
		}
		if err = fn(conn); err == nil {
			return nil
		}
		e.logger.Warn("read failed, resetting connection", zap.String("op", op), zap.Error(err))
		_ = e.ResetConnection(ctx)
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// queryIDs runs a built SELECT returning a single id column.
func (e *Engine) queryIDs(ctx context.Context, op string, b sq.SelectBuilder) ([]int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}
	var ids []int64
	err = e.read(ctx, op, func(conn Conn) error {
		rows, qErr := conn.Query(ctx, query, args...)
		if qErr != nil {
			return qErr
		}
		ids, qErr = pgx.CollectRows(rows, pgx.RowTo[int64])
		return qErr
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
