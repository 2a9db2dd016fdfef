// Package store keeps the evaluation history of design projects so successive
// iterations of a design can be compared.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nikogura/dfx-scorer/pkg/rules"
)

const iterationsTable = "dfx_iterations"

// ErrNotFound is returned when a project has no stored iterations.
var ErrNotFound = errors.New("no iterations found")

// Iteration is one evaluated design within a project.
type Iteration struct {
	ID            string          `json:"id"`
	Project       string          `json:"project"`
	Number        int             `json:"number"`
	Aspect        rules.Aspect    `json:"aspect"`
	Category      string          `json:"category,omitempty"`
	Score         float64         `json:"score"`
	Qualifier     string          `json:"qualifier"`
	Prompt        string          `json:"prompt,omitempty"`
	RefinedPrompt string          `json:"refined_prompt,omitempty"`
	Metrics       rules.Metrics   `json:"metrics"`
	Report        json.RawMessage `json:"report,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Store persists iterations in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, creating parent directories.
func Open(ctx context.Context, path string) (store *Store, err error) {
	if path == "" {
		err = errors.New("store path is required")
		return store, err
	}

	if path != ":memory:" {
		err = os.MkdirAll(filepath.Dir(path), 0750)
		if err != nil {
			err = errors.Wrapf(err, "failed to create store directory for %s", path)
			return store, err
		}
	}

	var db *sql.DB
	db, err = sql.Open("sqlite", path)
	if err != nil {
		err = errors.Wrapf(err, "failed to open SQLite database at %q", path)
		return store, err
	}
	// A single connection avoids "database is locked" errors.
	db.SetMaxOpenConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()
		err = errors.Wrapf(err, "failed to connect to SQLite database at %q", path)
		return store, err
	}

	err = createTables(ctx, db)
	if err != nil {
		_ = db.Close()
		return store, err
	}

	store = &Store{db: db}

	return store, err
}

func createTables(ctx context.Context, db *sql.DB) (err error) {
	query := `
		CREATE TABLE IF NOT EXISTS ` + iterationsTable + ` (
			id TEXT PRIMARY KEY,
			project TEXT NOT NULL,
			number INTEGER NOT NULL,
			aspect TEXT NOT NULL,
			category TEXT,
			score REAL NOT NULL,
			qualifier TEXT,
			prompt TEXT,
			refined_prompt TEXT,
			metrics TEXT NOT NULL,
			report TEXT,
			created_at TEXT NOT NULL,
			UNIQUE(project, number)
		);`

	_, err = db.ExecContext(ctx, query)
	if err != nil {
		err = errors.Wrapf(err, "failed to create table %s", iterationsTable)
	}

	return err
}

// Close releases the database.
func (s *Store) Close() (err error) {
	err = s.db.Close()
	return err
}

// Save assigns the iteration an ID, its project's next iteration number and a
// timestamp, then stores it.
func (s *Store) Save(ctx context.Context, it *Iteration) (err error) {
	if strings.TrimSpace(it.Project) == "" {
		err = errors.New("iteration project is required")
		return err
	}

	var metricsJSON []byte
	metricsJSON, err = json.Marshal(it.Metrics)
	if err != nil {
		err = errors.Wrap(err, "failed to encode metrics")
		return err
	}

	var tx *sql.Tx
	tx, err = s.db.BeginTx(ctx, nil)
	if err != nil {
		err = errors.Wrap(err, "failed to begin transaction")
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var last sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT MAX(number) FROM `+iterationsTable+` WHERE project = ?`, it.Project).Scan(&last)
	if err != nil {
		err = errors.Wrap(err, "failed to read iteration number")
		return err
	}

	it.ID = uuid.NewString()
	it.Number = int(last.Int64) + 1
	it.CreatedAt = time.Now().UTC()

	var report sql.NullString
	if len(it.Report) > 0 {
		report = sql.NullString{String: string(it.Report), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO `+iterationsTable+` (
			id, project, number, aspect, category, score, qualifier,
			prompt, refined_prompt, metrics, report, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.Project, it.Number, string(it.Aspect), it.Category, it.Score, it.Qualifier,
		it.Prompt, it.RefinedPrompt, string(metricsJSON), report, it.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		err = errors.Wrapf(err, "failed to insert iteration for project %s", it.Project)
		return err
	}

	err = tx.Commit()
	if err != nil {
		err = errors.Wrap(err, "failed to commit iteration")
	}

	return err
}

const selectColumns = `id, project, number, aspect, category, score, qualifier,
	prompt, refined_prompt, metrics, report, created_at`

// List returns a project's iterations in order.
func (s *Store) List(ctx context.Context, project string) (iterations []Iteration, err error) {
	var rows *sql.Rows
	rows, err = s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM `+iterationsTable+` WHERE project = ? ORDER BY number`, project)
	if err != nil {
		err = errors.Wrapf(err, "failed to query iterations for %s", project)
		return iterations, err
	}
	defer rows.Close()

	for rows.Next() {
		var it Iteration
		it, err = scanIteration(rows)
		if err != nil {
			return iterations, err
		}
		iterations = append(iterations, it)
	}

	err = rows.Err()
	if err != nil {
		err = errors.Wrap(err, "failed to read iterations")
	}

	return iterations, err
}

// Latest returns the most recent iteration of a project, or ErrNotFound.
func (s *Store) Latest(ctx context.Context, project string) (it Iteration, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM `+iterationsTable+` WHERE project = ? ORDER BY number DESC LIMIT 1`, project)

	it, err = scanIteration(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = errors.Wrapf(ErrNotFound, "project %s", project)
	}

	return it, err
}

// Projects lists the distinct project names.
func (s *Store) Projects(ctx context.Context) (projects []string, err error) {
	var rows *sql.Rows
	rows, err = s.db.QueryContext(ctx, `SELECT DISTINCT project FROM `+iterationsTable+` ORDER BY project`)
	if err != nil {
		err = errors.Wrap(err, "failed to query projects")
		return projects, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			err = errors.Wrap(err, "failed to scan project")
			return projects, err
		}
		projects = append(projects, name)
	}

	err = rows.Err()

	return projects, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanIteration(row scanner) (it Iteration, err error) {
	var (
		aspect, metricsJSON, createdAt string
		category, qualifier            sql.NullString
		prompt, refined, report        sql.NullString
	)

	err = row.Scan(&it.ID, &it.Project, &it.Number, &aspect, &category, &it.Score, &qualifier,
		&prompt, &refined, &metricsJSON, &report, &createdAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			err = errors.Wrap(err, "failed to scan iteration")
		}
		return it, err
	}

	it.Aspect = rules.Aspect(aspect)
	it.Category = category.String
	it.Qualifier = qualifier.String
	it.Prompt = prompt.String
	it.RefinedPrompt = refined.String
	if report.Valid && report.String != "" {
		it.Report = json.RawMessage(report.String)
	}

	err = json.Unmarshal([]byte(metricsJSON), &it.Metrics)
	if err != nil {
		err = errors.Wrapf(err, "failed to decode metrics of iteration %s", it.ID)
		return it, err
	}

	it.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse timestamp of iteration %s", it.ID)
	}

	return it, err
}

// Delta is the score change between two consecutive iterations.
func Delta(previous, current Iteration) (delta float64) {
	delta = current.Score - previous.Score
	return delta
}
