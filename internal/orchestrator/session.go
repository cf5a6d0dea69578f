// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     orchestrator
// Description: Question to SQL to result grid pipeline
// Author:      Mike Stoffels
// Created:     2026-01-19
// License:     MIT
// ============================================================================

// Package orchestrator turns a typed or spoken question into SQL through
// a Translator, runs it on the database session and keeps the grid the
// user interface renders.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/msto63/englishquery/internal/mariadb"
	"github.com/msto63/englishquery/internal/translator"
	"github.com/msto63/englishquery/pkg/core/apperr"
	"github.com/msto63/englishquery/pkg/core/logging"
	"github.com/msto63/englishquery/pkg/core/metrics"
)

// ErrBlankInput is returned by Submit for empty or whitespace-only text
var ErrBlankInput = apperr.New(apperr.CodeBlankInput, "please enter some text before submitting")

// Executor runs one SQL statement
type Executor interface {
	Execute(ctx context.Context, query string) (*mariadb.Result, error)
}

// SchemaSource describes the tables of the connected database
type SchemaSource interface {
	DescribeSchema(ctx context.Context) ([]mariadb.TableSchema, error)
}

// Guard vets a statement before it reaches the database
type Guard interface {
	Check(sql string) error
}

// Submission is the record of one successful Submit
type Submission struct {
	Input    string
	Reply    string // raw translator reply before cleanup
	SQL      string
	Result   *mariadb.Result
	Rendered bool // false when the result was empty and the grid kept its state
	Elapsed  time.Duration
}

// Session is the single owner of the query workflow state
type Session struct {
	mu         sync.Mutex
	translator translator.Translator
	executor   Executor
	guard      Guard
	grid       Grid
	visible    bool
	lastInput  string
	last       *Submission
	logger     *logging.Logger
}

// Option configures a Session
type Option func(*Session)

// WithGuard installs a statement guard
func WithGuard(g Guard) Option {
	return func(s *Session) { s.guard = g }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a session. The executor may be nil until SetConnection.
func New(tr translator.Translator, executor Executor, opts ...Option) *Session {
	s := &Session{
		translator: tr,
		executor:   executor,
		logger:     logging.New("orchestrator"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetConnection replaces the executor
func (s *Session) SetConnection(executor Executor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executor = executor
}

// LoadSchema hands the database layout to a translator that can use it
func (s *Session) LoadSchema(ctx context.Context, src SchemaSource) error {
	aware, ok := s.translator.(translator.SchemaAware)
	if !ok {
		return nil
	}
	tables, err := src.DescribeSchema(ctx)
	if err != nil {
		return err
	}
	aware.SetSchema(mariadb.FormatSchema(tables))
	s.logger.Debug("Schema loaded for translator", "tables", len(tables))
	return nil
}

// Submit translates text to SQL, executes it and renders the result.
// Blank text fails with ErrBlankInput and leaves the session untouched.
func (s *Session) Submit(ctx context.Context, text string) (*Submission, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrBlankInput.WithOp("submit")
	}

	s.mu.Lock()
	executor := s.executor
	s.lastInput = text
	s.mu.Unlock()

	if executor == nil {
		metrics.ObserveQuery("not_connected", 0)
		return nil, mariadb.ErrNotConnected.WithOp("submit")
	}

	s.logger.Info("User message", "text", text)
	reply, err := s.translator.Translate(ctx, text)
	if err != nil {
		metrics.ObserveQuery("translation_error", 0)
		return nil, err
	}
	s.logger.Debug("Assistant raw reply", "reply", reply)

	query := translator.CleanSQL(reply)
	if s.guard != nil {
		if err := s.guard.Check(query); err != nil {
			metrics.ObserveQuery("rejected", 0)
			s.logger.Warn("Statement rejected", "sql", query, "error", err)
			return s.remember(&Submission{Input: text, Reply: reply, SQL: query}), err
		}
	}

	s.logger.Info("Executing SQL", "sql", query)
	start := time.Now()
	result, err := executor.Execute(ctx, query)
	elapsed := time.Since(start)
	if err != nil {
		outcome := "execution_error"
		if errors.Is(err, mariadb.ErrEmptyStatement) {
			outcome = "empty_statement"
		}
		metrics.ObserveQuery(outcome, elapsed)
		return s.remember(&Submission{Input: text, Reply: reply, SQL: query, Elapsed: elapsed}), err
	}
	metrics.ObserveQuery("ok", elapsed)

	sub := &Submission{Input: text, Reply: reply, SQL: query, Result: result, Elapsed: elapsed}
	if !result.Empty() {
		s.mu.Lock()
		s.grid = Render(result)
		s.visible = true
		s.mu.Unlock()
		sub.Rendered = true
	}
	return s.remember(sub), nil
}

func (s *Session) remember(sub *Submission) *Submission {
	s.mu.Lock()
	s.last = sub
	s.mu.Unlock()
	return sub
}

// Last returns the most recent submission that reached the translator,
// or nil
func (s *Session) Last() *Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Clear discards the last input and hides the grid
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastInput = ""
	s.visible = false
}

// Grid returns the current grid and whether it is shown
func (s *Session) Grid() (Grid, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid, s.visible
}

// LastInput returns the most recently submitted text
func (s *Session) LastInput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInput
}
