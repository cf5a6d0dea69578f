package mariadb

import (
	"context"
	"database/sql"
	"iter"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/msto63/englishquery/pkg/core/metrics"
)

// DefaultChunkSize is the number of rows fetched per batch by StreamQuery
const DefaultChunkSize = 1000

// Stream is a single-pass cursor over a large result. The owning
// Connection is busy until the stream is exhausted or closed.
type Stream struct {
	conn      *Connection
	rows      *sql.Rows
	scanner   *rowScanner
	scan      func(*sql.Rows) (Row, error)
	chunkSize int

	consumed  atomic.Bool
	failed    bool
	delivered int
	closeOnce sync.Once
}

// StreamQuery runs query and returns a Stream fetching chunkSize rows at a
// time. A chunkSize below one selects DefaultChunkSize.
func (c *Connection) StreamQuery(ctx context.Context, query string, chunkSize int) (*Stream, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyStatement.WithOp("stream_query")
	}
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}

	c.mu.Lock()
	q, err := c.querierLocked(ctx)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		c.rollbackLocked()
		c.mu.Unlock()
		return nil, ErrQueryExecution.WithOp("stream_query").WithCause(err)
	}
	scanner, err := newRowScanner(rows)
	if err != nil {
		_ = rows.Close()
		c.rollbackLocked()
		c.mu.Unlock()
		return nil, ErrQueryExecution.WithOp("stream_query").WithCause(err)
	}

	return &Stream{
		conn:      c,
		rows:      rows,
		scanner:   scanner,
		scan:      scanner.scan,
		chunkSize: chunkSize,
	}, nil
}

// Columns returns the result columns in driver order
func (s *Stream) Columns() []string {
	return s.scanner.columns
}

// All yields every row once. Iterating a second time yields
// ErrStreamConsumed. Breaking out of the loop closes the stream.
func (s *Stream) All() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		if !s.consumed.CompareAndSwap(false, true) {
			yield(nil, ErrStreamConsumed.WithOp("stream"))
			return
		}
		defer s.Close()

		buf := make([]Row, 0, s.chunkSize)
		for {
			buf = buf[:0]
			var scanErr error
			for len(buf) < s.chunkSize && s.rows.Next() {
				row, err := s.scan(s.rows)
				if err != nil {
					scanErr = err
					break
				}
				buf = append(buf, row)
			}
			// Rows scanned before a failure are still delivered
			for _, row := range buf {
				s.delivered++
				if !yield(row, nil) {
					return
				}
			}
			if scanErr != nil {
				s.failed = true
				yield(nil, ErrQueryExecution.WithOp("stream").WithCause(scanErr))
				return
			}
			if len(buf) < s.chunkSize {
				break
			}
		}

		if err := s.rows.Err(); err != nil {
			s.failed = true
			yield(nil, ErrQueryExecution.WithOp("stream").WithCause(err))
		}
	}
}

// Close releases the cursor and the session. It is safe to call more
// than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.consumed.Store(true)
		err = s.rows.Close()
		if s.failed {
			s.conn.rollbackLocked()
		}
		metrics.AddStreamedRows(s.delivered)
		s.conn.mu.Unlock()
	})
	return err
}
