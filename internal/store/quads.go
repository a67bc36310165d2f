package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/distill/internal/rdf"
)

// Insert adds quads in order. Uses ON CONFLICT DO NOTHING for idempotency:
// quads already stored keep their original position.
// Returns the number of quads actually added.
func (s *Store) Insert(ctx context.Context, quads ...rdf.Quad) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insert quads: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO quads
		(s_kind, s_value, p_kind, p_value, o_kind, o_value, o_datatype, o_language, g_kind, g_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("insert quads: %w", err)
	}
	defer stmt.Close()

	added := 0
	for i, q := range quads {
		if err := q.Validate(); err != nil {
			return 0, fmt.Errorf("insert quads: quad %d: %w", i, err)
		}
		res, err := stmt.ExecContext(ctx,
			q.Subject.Kind, q.Subject.Value,
			q.Predicate.Kind, q.Predicate.Value,
			q.Object.Kind, q.Object.Value, q.Object.Datatype, q.Object.Language,
			q.Graph.Kind, q.Graph.Value,
		)
		if err != nil {
			return 0, fmt.Errorf("insert quads: quad %d: %w", i, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert quads: %w", err)
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert quads: commit: %w", err)
	}
	s.logger.Debug("quads inserted", "read", len(quads), "added", added)
	return added, nil
}

// Quads returns every stored quad in insertion order.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) Quads(ctx context.Context) ([]rdf.Quad, error) {
	return s.match(ctx, rdf.QuadMatch{})
}

// Load copies the store into an in-memory dataset.
func (s *Store) Load(ctx context.Context) (*rdf.Memory, error) {
	quads, err := s.Quads(ctx)
	if err != nil {
		return nil, err
	}
	return rdf.NewMemory(quads...), nil
}

// View is a read view of a store bound to a context. It implements
// rdf.Dataset, so the engine can hydrate straight from the database.
type View struct {
	s   *Store
	ctx context.Context
}

// View returns a dataset view whose queries run under ctx.
func (s *Store) View(ctx context.Context) *View {
	return &View{s: s, ctx: ctx}
}

// Match implements rdf.Dataset.
func (v *View) Match(m rdf.QuadMatch) ([]rdf.Quad, error) {
	return v.s.match(v.ctx, m)
}

var _ rdf.Dataset = (*View)(nil)

// match runs a parameterized lookup. Results are ordered by insertion
// sequence so repeated lookups see the same order.
func (s *Store) match(ctx context.Context, m rdf.QuadMatch) ([]rdf.Quad, error) {
	var (
		where []string
		args  []any
	)
	bind := func(prefix string, t *rdf.Term, literal bool) {
		if t == nil {
			return
		}
		where = append(where, prefix+"_kind = ?", prefix+"_value = ?")
		args = append(args, t.Kind, t.Value)
		if literal {
			where = append(where, prefix+"_datatype = ?", prefix+"_language = ?")
			args = append(args, t.Datatype, t.Language)
		}
	}
	bind("s", m.Subject, false)
	bind("p", m.Predicate, false)
	bind("o", m.Object, true)
	bind("g", m.Graph, false)

	query := `
		SELECT s_kind, s_value, p_kind, p_value, o_kind, o_value, o_datatype, o_language, g_kind, g_value
		FROM quads`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quads: %w", err)
	}
	defer rows.Close()

	quads := []rdf.Quad{}
	for rows.Next() {
		q, err := scanQuad(rows)
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quads: %w", err)
	}
	return quads, nil
}

func scanQuad(rows *sql.Rows) (rdf.Quad, error) {
	var q rdf.Quad
	err := rows.Scan(
		&q.Subject.Kind, &q.Subject.Value,
		&q.Predicate.Kind, &q.Predicate.Value,
		&q.Object.Kind, &q.Object.Value, &q.Object.Datatype, &q.Object.Language,
		&q.Graph.Kind, &q.Graph.Value,
	)
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("scan quad: %w", err)
	}
	return q, nil
}
