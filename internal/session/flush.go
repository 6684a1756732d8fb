package session

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"time"

	"github.com/koustreak/sqlstage/internal/database"
	"github.com/koustreak/sqlstage/internal/entity"
	"github.com/koustreak/sqlstage/internal/errs"
)

// Flush writes every staged operation: inserts, then updates, then
// deletes. Within a kind, batches run parents first for inserts and
// updates and children first for deletes, unless ordering is disabled.
//
// Every statement is expected to affect exactly one row; statements that
// do not are collected into a *BatchError after all batches ran. A driver
// error stops the flush. Staged operations are discarded in every case and
// the transaction is left for the caller to commit or roll back.
func (s *Session) Flush(ctx context.Context) (rep *FlushReport, err error) {
	start := time.Now()
	rep = &FlushReport{Strategy: s.strategy}
	defer func() {
		if err != nil {
			s.restoreVersions()
		} else {
			for _, st := range s.staged {
				if st.op != entity.Delete {
					st.rec.Snapshot()
				}
			}
		}
		s.resetPending()
		rep.Duration = time.Since(start)
		s.observe(rep, err)
	}()

	if s.strategy == StrategyCSV {
		return rep, s.exportCSV(ctx, rep)
	}

	var exec database.Executor
	if s.pending[entity.Insert].len()+s.pending[entity.Update].len()+s.pending[entity.Delete].len() > 0 {
		if exec, err = s.executor(ctx); err != nil {
			return rep, err
		}
	}

	var failures []Failure
	for _, op := range []entity.Operation{entity.Insert, entity.Update, entity.Delete} {
		for _, b := range s.batches(op) {
			res, fails, runErr := s.run(ctx, exec, op, b)
			rep.add(res)
			failures = append(failures, fails...)
			if runErr != nil {
				return rep, runErr
			}
		}
	}
	if len(failures) > 0 {
		return rep, newBatchError(failures)
	}
	return rep, nil
}

// batches returns the batches of op in execution order.
func (s *Session) batches(op entity.Operation) []*batch {
	set := s.pending[op]
	names := slices.Clone(set.order)
	if s.ordered {
		if op == entity.Delete {
			slices.SortStableFunc(names, func(a, b string) int { return s.order.Compare(b, a) })
		} else {
			slices.SortStableFunc(names, s.order.Compare)
		}
	}
	out := make([]*batch, len(names))
	for i, n := range names {
		out[i] = set.byName[n]
	}
	return out
}

func (s *Session) run(ctx context.Context, exec database.Executor, op entity.Operation, b *batch) (BatchResult, []Failure, error) {
	res := BatchResult{Type: b.name, Operation: op}
	var failures []Failure

	for _, it := range b.items {
		s.log.DebugWith("executing statement", map[string]interface{}{
			"type": b.name,
			"op":   op.String(),
			"sql":  it.stmt.SQL,
		})

		sctx, cancel := database.WithQueryTimeout(ctx, s.timeout)
		n, err := s.execItem(sctx, exec, it)
		cancel()
		if err != nil {
			return res, failures, s.mapErr(err, op.String()+" of "+b.name+" failed")
		}
		res.Statements++
		res.RowsAffected += n
		if s.metrics != nil {
			s.metrics.StatementExecuted(op.String())
		}
		if n != 1 {
			failures = append(failures, Failure{
				Type:      b.name,
				Operation: op,
				SQL:       it.stmt.SQL,
				Args:      it.stmt.Args,
				Affected:  n,
			})
		}
	}
	return res, failures, nil
}

func (s *Session) execItem(ctx context.Context, exec database.Executor, it item) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if s.strategy == StrategyPrepared {
		stmt, perr := s.cache.GetOrCreate(ctx, exec, it.stmt.SQL)
		if perr != nil {
			return 0, perr
		}
		result, err = stmt.ExecContext(ctx, it.stmt.Args...)
	} else {
		result, err = exec.ExecContext(ctx, it.stmt.SQL)
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *Session) exportCSV(ctx context.Context, rep *FlushReport) error {
	for _, b := range s.batches(entity.Insert) {
		lines := make([][]string, len(b.items))
		for i, it := range b.items {
			lines[i] = it.fields
		}
		if err := s.sink.Append(ctx, b.name, lines); err != nil {
			return errs.Wrap(errs.KindOf(err), "csv export of "+b.name+" failed", err)
		}
		rep.add(BatchResult{Type: b.name, Operation: entity.Insert, Statements: len(lines)})
	}
	return nil
}

func (s *Session) observe(rep *FlushReport, err error) {
	fields := map[string]interface{}{
		"strategy":      string(rep.Strategy),
		"batches":       len(rep.Batches),
		"statements":    rep.Statements,
		"rows_affected": rep.RowsAffected,
		"duration_ms":   rep.Duration.Milliseconds(),
	}
	var be *BatchError
	switch {
	case err == nil:
		s.log.InfoWith("flush completed", fields)
	case errors.As(err, &be):
		fields["mismatches"] = len(be.Failures)
		s.log.ErrorWith("flush row count mismatch", err, fields)
	default:
		s.log.ErrorWith("flush failed", err, fields)
	}

	if s.metrics != nil {
		if be != nil {
			s.metrics.BatchMismatches(len(be.Failures))
		}
		s.metrics.FlushCompleted(string(rep.Strategy), rep.Statements, rep.Duration, err)
	}
}
