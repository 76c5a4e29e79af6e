package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/iWorld-y/tee_radar/pkg/config"
	dm "github.com/iWorld-y/tee_radar/pkg/model"
)

// Storage 可选的运行历史存储，未配置数据库时引擎持有 nil
type Storage struct {
	db *sql.DB
}

// NewStorage 建立 Postgres 连接并初始化表结构
func NewStorage(cfg config.DBConfig) (*Storage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trend_runs (
			id SERIAL PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS trend_analyses (
			id SERIAL PRIMARY KEY,
			run_id INTEGER REFERENCES trend_runs(id),
			title TEXT,
			image_url TEXT,
			source_url TEXT,
			analysis TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS prompt_suggestions (
			id SERIAL PRIMARY KEY,
			run_id INTEGER REFERENCES trend_runs(id),
			position INTEGER,
			prompt TEXT
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}

// SaveRun 事务性保存一次运行的全部趋势与提示词，返回运行 ID
func (s *Storage) SaveRun(analyses []dm.TrendAnalysis, prompts []string) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var runID int
	if err := tx.QueryRow(`INSERT INTO trend_runs DEFAULT VALUES RETURNING id`).Scan(&runID); err != nil {
		return 0, fmt.Errorf("failed to insert trend run: %w", err)
	}

	for _, a := range analyses {
		_, err = tx.Exec(`
			INSERT INTO trend_analyses (run_id, title, image_url, source_url, analysis)
			VALUES ($1, $2, $3, $4, $5)`,
			runID, a.Title, a.ImageURL, a.SourceURL, a.Analysis)
		if err != nil {
			return 0, fmt.Errorf("failed to insert trend analysis: %w", err)
		}
	}

	for i, prompt := range prompts {
		_, err = tx.Exec(`
			INSERT INTO prompt_suggestions (run_id, position, prompt)
			VALUES ($1, $2, $3)`,
			runID, i+1, prompt)
		if err != nil {
			return 0, fmt.Errorf("failed to insert prompt suggestion: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// ListRuns 按时间倒序返回最近的运行摘要
func (s *Storage) ListRuns(limit int) ([]dm.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT r.id,
		       to_char(r.created_at, 'YYYY-MM-DD HH24:MI:SS'),
		       (SELECT COUNT(*) FROM trend_analyses a WHERE a.run_id = r.id),
		       (SELECT COUNT(*) FROM prompt_suggestions p WHERE p.run_id = r.id)
		FROM trend_runs r
		ORDER BY r.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var summaries []dm.RunSummary
	for rows.Next() {
		var s dm.RunSummary
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.TrendCount, &s.PromptCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
