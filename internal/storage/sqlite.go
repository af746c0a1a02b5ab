package storage

import (
	"database/sql"
	"encoding/json"

	"github.com/BillLee1st/FundDance/internal/models"
	_ "modernc.org/sqlite"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP,
		command TEXT NOT NULL,
		args TEXT,
		log_path TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		exit_code INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Storage) CreateRun(run *models.Run) (int64, error) {
	args, err := json.Marshal(run.Args)
	if err != nil {
		return 0, err
	}

	result, err := s.db.Exec(
		`INSERT INTO runs (started_at, command, args, log_path, status)
		 VALUES (?, ?, ?, ?, ?)`,
		run.StartedAt, run.Command, string(args), run.LogPath, run.Status,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Storage) GetRun(id int64) (*models.Run, error) {
	row := s.db.QueryRow(
		`SELECT id, started_at, completed_at, command, args, log_path, status, exit_code
		 FROM runs WHERE id = ?`, id,
	)
	return scanRun(row)
}

func (s *Storage) UpdateRun(run *models.Run) error {
	_, err := s.db.Exec(
		`UPDATE runs SET completed_at = ?, status = ?, exit_code = ? WHERE id = ?`,
		run.CompletedAt, run.Status, run.ExitCode, run.ID,
	)
	return err
}

func (s *Storage) ListRuns(limit int) ([]*models.Run, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, completed_at, command, args, log_path, status, exit_code
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (s *Storage) DeleteRun(id int64) error {
	_, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.Run, error) {
	var run models.Run
	var completedAt sql.NullTime
	var argsJSON sql.NullString
	var exitCode sql.NullInt64

	err := row.Scan(
		&run.ID, &run.StartedAt, &completedAt, &run.Command,
		&argsJSON, &run.LogPath, &run.Status, &exitCode,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if argsJSON.Valid && argsJSON.String != "" {
		if err := json.Unmarshal([]byte(argsJSON.String), &run.Args); err != nil {
			return nil, err
		}
	}
	if exitCode.Valid {
		code := int(exitCode.Int64)
		run.ExitCode = &code
	}

	return &run, nil
}
