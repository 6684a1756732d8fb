package session

import (
	"context"
	"database/sql"

	"github.com/koustreak/sqlstage/internal/database"
	"github.com/koustreak/sqlstage/internal/errs"
)

// link is the connection shared by every holder pushed on top of the one
// that acquired or attached it. tx is replaced as transactions end, so
// links are shared by pointer.
type link struct {
	conn *sql.Conn
	exec database.Executor
	tx   *sql.Tx
	auto bool
}

// executor returns the transaction when one is open. An owned connection
// outside auto-commit mode starts the next transaction on first use after
// a commit or rollback.
func (l *link) executor(ctx context.Context) (database.Executor, error) {
	if l.tx != nil {
		return l.tx, nil
	}
	if l.conn != nil && !l.auto {
		tx, err := l.conn.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		l.tx = tx
		return tx, nil
	}
	return l.exec, nil
}

func (l *link) valid(ctx context.Context) bool {
	if l.conn != nil {
		return l.conn.PingContext(ctx) == nil
	}
	if p, ok := l.exec.(interface{ PingContext(context.Context) error }); ok {
		return p.PingContext(ctx) == nil
	}
	return true
}

// holder is one stack entry. Only the owner commits, rolls back and
// closes the connection; nested and attached scopes defer to it.
type holder struct {
	link     *link
	owner    bool
	readOnly bool
}

func (s *Session) top() *holder {
	if len(s.stack) == 0 {
		return nil
	}
	return &s.stack[len(s.stack)-1]
}

// Depth is the number of open scopes.
func (s *Session) Depth() int { return len(s.stack) }

// Owner reports whether the innermost scope owns its connection.
func (s *Session) Owner() bool {
	h := s.top()
	return h != nil && h.owner
}

// ReadOnly reports whether the innermost scope runs inside a transaction
// the session does not control.
func (s *Session) ReadOnly() bool {
	h := s.top()
	return h != nil && h.readOnly
}

// BeginTransaction opens a scope. Scopes whose connection no longer
// answers a ping are discarded first. On an empty stack a connection is
// acquired from the pool and owned by the new scope, which starts a
// transaction unless auto-commit is forced; otherwise the new scope
// shares the current connection without owning it.
func (s *Session) BeginTransaction(ctx context.Context) error {
	for h := s.top(); h != nil && !h.link.valid(ctx); h = s.top() {
		s.log.Warn("discarding scope with invalid connection")
		_ = s.pop(ctx)
	}

	if h := s.top(); h != nil {
		s.stack = append(s.stack, holder{link: h.link, readOnly: h.readOnly})
		return nil
	}

	if s.db == nil {
		return errs.New(errs.ErrKindInvalidInput, "session has no connection pool")
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return s.mapErr(err, "failed to acquire connection")
	}
	l := &link{conn: conn, exec: conn, auto: s.autoCommit}
	if !l.auto {
		if l.tx, err = conn.BeginTx(ctx, nil); err != nil {
			_ = conn.Close()
			return s.mapErr(err, "failed to begin transaction")
		}
	}
	s.stack = append(s.stack, holder{link: l, owner: true})
	return nil
}

// AttachToExisting pushes a scope around a caller-controlled connection
// or transaction. Commit, Rollback and Close never act on it.
func (s *Session) AttachToExisting(exec database.Executor) error {
	if exec == nil {
		return errs.New(errs.ErrKindInvalidInput, "attach to nil executor")
	}
	s.stack = append(s.stack, holder{link: &link{exec: exec}, readOnly: true})
	return nil
}

// Commit commits the owner's transaction. In a nested or attached scope it
// does nothing.
func (s *Session) Commit(ctx context.Context) error {
	h := s.top()
	if h == nil {
		return errs.New(errs.ErrKindInvalidInput, "commit without an open scope")
	}
	if !h.owner {
		s.log.Debug("commit deferred to owning scope")
		return nil
	}
	return s.endTx(h.link, true)
}

// Rollback rolls back the owner's transaction. In a nested or attached
// scope it does nothing.
func (s *Session) Rollback(ctx context.Context) error {
	h := s.top()
	if h == nil {
		return errs.New(errs.ErrKindInvalidInput, "rollback without an open scope")
	}
	if !h.owner {
		s.log.Debug("rollback deferred to owning scope")
		return nil
	}
	return s.endTx(h.link, false)
}

// Close ends the innermost scope. An owning scope rolls back any open
// transaction and returns its connection to the pool.
func (s *Session) Close(ctx context.Context) error {
	if len(s.stack) == 0 {
		return nil
	}
	return s.pop(ctx)
}

func (s *Session) pop(ctx context.Context) error {
	h := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	if s.cacheLink == h.link {
		if next := s.top(); next == nil || next.link != h.link {
			s.cache.Purge()
			s.cacheLink = nil
		}
	}
	if !h.owner {
		return nil
	}

	var err error
	if h.link.tx != nil {
		err = s.endTx(h.link, false)
	}
	if cerr := h.link.conn.Close(); cerr != nil && err == nil {
		err = s.mapErr(cerr, "failed to close connection")
	}
	return err
}

// endTx ends the open transaction of l. Statements prepared on it die
// with it, so the cache is emptied first.
func (s *Session) endTx(l *link, commit bool) error {
	if s.cacheLink == l {
		s.cache.Purge()
	}
	tx := l.tx
	if tx == nil {
		return nil
	}
	l.tx = nil
	if commit {
		return s.mapErr(tx.Commit(), "commit failed")
	}
	return s.mapErr(tx.Rollback(), "rollback failed")
}

// executor is the connection statements run on: the innermost scope's
// transaction, or its connection in auto-commit mode.
func (s *Session) executor(ctx context.Context) (database.Executor, error) {
	h := s.top()
	if h == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "no open scope: call BeginTransaction or AttachToExisting")
	}
	exec, err := h.link.executor(ctx)
	if err != nil {
		return nil, s.mapErr(err, "failed to begin transaction")
	}
	if s.cacheLink != h.link {
		s.cache.Purge()
		s.cacheLink = h.link
	}
	return exec, nil
}
