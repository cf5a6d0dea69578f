// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     mariadb
// Description: Single-session MariaDB connection with connect-with-retry
// Author:      Mike Stoffels
// Created:     2026-01-14
// License:     MIT
// ============================================================================

package mariadb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/msto63/englishquery/pkg/core/logging"
	"github.com/msto63/englishquery/pkg/core/metrics"
)

// querier is implemented by *sql.Conn and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Connection owns one database session. All operations are serialized;
// an open Stream holds the session until it is closed or exhausted.
type Connection struct {
	cfg    ConnectionConfig
	opener Opener
	logger *logging.Logger

	mu   sync.Mutex
	db   *sql.DB
	conn *sql.Conn
	tx   *sql.Tx
}

// Option configures a Connection
type Option func(*Connection)

// WithOpener replaces the driver used to open sessions
func WithOpener(o Opener) Option {
	return func(c *Connection) {
		c.opener = o
	}
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(c *Connection) {
		c.logger = l
	}
}

// New creates an unconnected Connection
func New(cfg ConnectionConfig, opts ...Option) *Connection {
	if cfg.ReconnectAttempts < 0 {
		cfg.ReconnectAttempts = 0
	}
	c := &Connection{
		cfg:    cfg,
		opener: OpenMySQL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.New("mariadb")
	}
	return c
}

// Config returns a copy of the connection parameters
func (c *Connection) Config() ConnectionConfig {
	return c.cfg
}

// Connected reports whether a session is open
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Ping checks that the session is still alive
func (c *Connection) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.PingContext(ctx); err != nil {
		return ErrConnectionFailed.WithOp("ping").WithCause(err)
	}
	return nil
}

// Connect opens the session. A live session is reused. Otherwise up to
// ReconnectAttempts+1 attempts are made with ReconnectDelay between them;
// exhausting them returns an error matching ErrConnectionFailed.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		if err := c.conn.PingContext(ctx); err == nil {
			return nil
		}
		c.logger.Warn("Session lost, reconnecting", "target", c.cfg.String())
		c.closeLocked()
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.ReconnectAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.cfg.ReconnectDelay); err != nil {
				return ErrConnectionFailed.WithOp("connect").WithCause(err)
			}
		}

		lastErr = c.openLocked(ctx)
		metrics.IncConnectAttempt(lastErr == nil)
		if lastErr == nil {
			c.logger.Info("Connected to database", "target", c.cfg.String(), "attempt", attempt+1)
			return nil
		}
		c.logger.Warn("Connection attempt failed",
			"target", c.cfg.String(),
			"attempt", attempt+1,
			"max_attempts", c.cfg.ReconnectAttempts+1,
			"error", lastErr)
	}

	c.logger.Error("Giving up on database connection", "target", c.cfg.String(), "error", lastErr)
	return ErrConnectionFailed.WithOp("connect").WithCause(
		fmt.Errorf("after %d attempts: %w", c.cfg.ReconnectAttempts+1, lastErr))
}

// openLocked opens one session. Anything it opened is released on failure.
func (c *Connection) openLocked(ctx context.Context) error {
	db, err := c.opener(c.cfg)
	if err != nil {
		return err
	}

	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return err
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return err
	}

	c.db = db
	c.conn = conn
	return nil
}

// Execute runs one statement and returns its rows. Statements without a
// result set return an empty Result. On failure an open transaction is
// rolled back.
func (c *Connection) Execute(ctx context.Context, query string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyStatement.WithOp("execute")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	q, err := c.querierLocked(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		c.rollbackLocked()
		return nil, ErrQueryExecution.WithOp("execute").WithCause(err)
	}
	defer rows.Close()

	res, err := scanAll(rows)
	if err != nil {
		c.rollbackLocked()
		return nil, ErrQueryExecution.WithOp("execute").WithCause(err)
	}

	c.logger.Debug("Statement executed", "rows", res.Len(), "duration", time.Since(start))
	return res, nil
}

// ExecuteModify runs a data-modifying statement, commits and returns the
// number of affected rows.
func (c *Connection) ExecuteModify(ctx context.Context, query string) (int64, error) {
	if strings.TrimSpace(query) == "" {
		return 0, ErrEmptyStatement.WithOp("execute_modify")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	q, err := c.querierLocked(ctx)
	if err != nil {
		return 0, err
	}

	res, err := q.ExecContext(ctx, query)
	if err != nil {
		c.rollbackLocked()
		return 0, ErrQueryExecution.WithOp("execute_modify").WithCause(err)
	}

	if c.tx != nil {
		tx := c.tx
		c.tx = nil
		if err := tx.Commit(); err != nil {
			return 0, ErrQueryExecution.WithOp("commit").WithCause(err)
		}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, ErrQueryExecution.WithOp("execute_modify").WithCause(err)
	}
	c.logger.Debug("Modification committed", "affected", affected)
	return affected, nil
}

// querierLocked returns the session, or with autocommit off the current
// transaction, starting one if needed.
func (c *Connection) querierLocked(ctx context.Context) (querier, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	if c.cfg.Autocommit {
		return c.conn, nil
	}
	if c.tx == nil {
		// The transaction outlives this call, so it must not be bound
		// to the caller's cancellation.
		tx, err := c.conn.BeginTx(context.WithoutCancel(ctx), nil)
		if err != nil {
			return nil, ErrQueryExecution.WithOp("begin").WithCause(err)
		}
		c.tx = tx
	}
	return c.tx, nil
}

func (c *Connection) rollbackLocked() {
	if c.tx == nil {
		return
	}
	if err := c.tx.Rollback(); err != nil {
		c.logger.Warn("Rollback failed", "error", err)
	}
	c.tx = nil
}

// Close releases the session. Calling Close more than once is harmless.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.closeLocked()
	c.logger.Info("Database connection closed", "target", c.cfg.String())
	return err
}

func (c *Connection) closeLocked() error {
	c.rollbackLocked()
	var firstErr error
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			firstErr = err
		}
		c.conn = nil
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.db = nil
	}
	return firstErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
