// Package store persists analysis reports in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ch097711/fuzz-introspector/internal/model"
)

//go:embed schema.sql
var schema string

// DB wraps the SQLite database connection.
type DB struct {
	conn *sql.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// SaveReport stores rep in one transaction and returns its report id.
func (db *DB) SaveReport(ctx context.Context, rep *model.Report) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO reports (name, fuzzer_file) VALUES (?, ?)`,
		rep.Name, rep.FuzzerFilename,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting report: %w", err)
	}
	reportID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	fnStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO functions (report_id, name, file, line_start, line_end, signature,
		  return_type, complexity, icount, bb_count, uses, depth, rank)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer fnStmt.Close()

	csStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO callsites (function_id, target, src) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer csStmt.Close()

	for i := range rep.AllFunctions.Elements {
		fr := &rep.AllFunctions.Elements[i]
		res, err := fnStmt.ExecContext(ctx,
			reportID, fr.Name, fr.SourceFile, fr.LineStart, fr.LineEnd, fr.Signature,
			fr.ReturnType, fr.Complexity, fr.ICount, fr.BBCount, fr.Uses, fr.Depth, fr.Rank,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting function %s: %w", fr.Name, err)
		}
		fnID, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}
		for _, cs := range fr.Callsites {
			if _, err := csStmt.ExecContext(ctx, fnID, cs.Dst, cs.Src); err != nil {
				return 0, fmt.Errorf("inserting callsite %s -> %s: %w", fr.Name, cs.Dst, err)
			}
		}
	}

	for _, tg := range rep.Targets {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO targets (report_id, oracle, function_name, file, accumulated_complexity)
			 VALUES (?, ?, ?, ?, ?)`,
			reportID, tg.Oracle, tg.Function, tg.SourceFile, tg.AccumulatedComplexity,
		); err != nil {
			return 0, fmt.Errorf("inserting target %s: %w", tg.Function, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return reportID, nil
}

// CountFunctions returns the number of functions stored for a report.
func (db *DB) CountFunctions(ctx context.Context, reportID int64) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM functions WHERE report_id = ?`, reportID,
	).Scan(&n)
	return n, err
}

// Callees returns the distinct call targets of a function, sorted.
func (db *DB) Callees(ctx context.Context, reportID int64, name string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT c.target FROM callsites c
		 JOIN functions f ON f.id = c.function_id
		 WHERE f.report_id = ? AND f.name = ?
		 ORDER BY c.target`,
		reportID, name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, err
		}
		out = append(out, target)
	}
	return out, rows.Err()
}

// Targets returns the stored fuzz-target candidates of a report.
func (db *DB) Targets(ctx context.Context, reportID int64) ([]model.Target, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT oracle, function_name, file, accumulated_complexity FROM targets
		 WHERE report_id = ? ORDER BY rowid`,
		reportID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Target
	for rows.Next() {
		var tg model.Target
		if err := rows.Scan(&tg.Oracle, &tg.Function, &tg.SourceFile, &tg.AccumulatedComplexity); err != nil {
			return nil, err
		}
		out = append(out, tg)
	}
	return out, rows.Err()
}
