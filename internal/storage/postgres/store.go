// Package postgres stores rule tables and rate sets in Postgres and serves
// them as a rules.Source.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raketrapport/raket/internal/rules"
)

//go:embed schema.sql
var schema string

var tableNames = map[rules.TableName]string{
	rules.TableRR:   "variable_mapping_rr",
	rules.TableBR:   "variable_mapping_br",
	rules.TableINK2: "variable_mapping_ink2",
}

var rowColumns = []string{
	"position", "row_id", "row_title", "sru", "style", "formula",
	"account_range", "include", "exclude_range", "exclude", "ref_table", "ref_id",
	"factor", "non_negative", "show_amount", "always_show", "block_group",
	"balance_type", "explainer",
}

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

var _ rules.Source = (*Store)(nil)

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the rule and rate tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	return nil
}

func sqlTable(table rules.TableName) (string, error) {
	name, ok := tableNames[table]
	if !ok {
		return "", fmt.Errorf("unknown table %q", table)
	}
	return name, nil
}

// Rows returns the rows of one rule table in position order.
func (s *Store) Rows(ctx context.Context, table rules.TableName) ([]rules.Row, error) {
	name, err := sqlTable(table)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		select row_id, row_title, sru, style, formula, account_range, include,
		       exclude_range, exclude, ref_table, ref_id, factor, non_negative,
		       show_amount, always_show, block_group, balance_type, explainer
		from `+name+`
		order by position`)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", name, err)
	}
	defer rows.Close()

	var out []rules.Row
	for rows.Next() {
		var (
			r               rules.Row
			refTable, refID string
		)
		if err := rows.Scan(&r.ID, &r.Label, &r.SRU, &r.Style, &r.Formula, &r.Range, &r.Include,
			&r.ExcludeRange, &r.Exclude, &refTable, &refID, &r.Factor, &r.NonNegative,
			&r.ShowAmount, &r.AlwaysShow, &r.Group, &r.BalanceType, &r.Explainer); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", name, err)
		}
		if refTable != "" || refID != "" {
			r.Ref = &rules.Ref{Table: rules.TableName(refTable), ID: refID}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return out, nil
}

// Rates returns the rate sets grouped by starting fiscal year.
func (s *Store) Rates(ctx context.Context) ([]rules.RateSet, error) {
	rows, err := s.pool.Query(ctx, `select from_year, name, value from global_variables order by from_year, name`)
	if err != nil {
		return nil, fmt.Errorf("querying global_variables: %w", err)
	}
	defer rows.Close()

	byYear := make(map[int]map[string]string)
	for rows.Next() {
		var (
			year        int
			name, value string
		)
		if err := rows.Scan(&year, &name, &value); err != nil {
			return nil, fmt.Errorf("scanning global_variables: %w", err)
		}
		if byYear[year] == nil {
			byYear[year] = make(map[string]string)
		}
		byYear[year][name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading global_variables: %w", err)
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	sets := make([]rules.RateSet, 0, len(years))
	for _, y := range years {
		sets = append(sets, rules.RateSet{FromYear: y, Values: byYear[y]})
	}
	return sets, nil
}

// ReplaceTable swaps the contents of one rule table in a single transaction.
func (s *Store) ReplaceTable(ctx context.Context, table rules.TableName, rows []rules.Row) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return replaceTable(ctx, tx, table, rows)
	})
}

// ReplaceRates swaps all rate sets in a single transaction.
func (s *Store) ReplaceRates(ctx context.Context, sets []rules.RateSet) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return replaceRates(ctx, tx, sets)
	})
}

// Import replaces every rule table and the rate sets with a document's
// contents. Either everything is replaced or nothing is.
func (s *Store) Import(ctx context.Context, doc *rules.Document) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, table := range rules.Tables {
			if err := replaceTable(ctx, tx, table, doc.Tables[table]); err != nil {
				return err
			}
		}
		return replaceRates(ctx, tx, doc.RateSets)
	})
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func replaceTable(ctx context.Context, tx pgx.Tx, table rules.TableName, rows []rules.Row) error {
	name, err := sqlTable(table)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `delete from `+name); err != nil {
		return fmt.Errorf("clearing %s: %w", name, err)
	}
	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		r := rows[i]
		var refTable, refID string
		if r.Ref != nil {
			refTable, refID = string(r.Ref.Table), r.Ref.ID
		}
		return []any{
			i, r.ID, r.Label, r.SRU, r.Style, r.Formula, r.Range, r.Include,
			r.ExcludeRange, r.Exclude, refTable, refID, r.Factor, r.NonNegative,
			r.ShowAmount, r.AlwaysShow, r.Group, r.BalanceType, r.Explainer,
		}, nil
	})
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{name}, rowColumns, src); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func replaceRates(ctx context.Context, tx pgx.Tx, sets []rules.RateSet) error {
	if _, err := tx.Exec(ctx, `delete from global_variables`); err != nil {
		return fmt.Errorf("clearing global_variables: %w", err)
	}
	batch := &pgx.Batch{}
	for _, set := range sets {
		for name, value := range set.Values {
			batch.Queue(`insert into global_variables (from_year, name, value) values ($1, $2, $3)`, set.FromYear, name, value)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("writing global_variables: %w", err)
	}
	return nil
}
