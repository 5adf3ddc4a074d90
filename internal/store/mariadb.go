package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"verify-ovpn/internal/model"
)

const schemaVerified = `CREATE TABLE IF NOT EXISTS verified_config (
	id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
	run_started_at DATETIME(3) NOT NULL,
	config_name VARCHAR(255) NOT NULL,
	protocol VARCHAR(8) NOT NULL,
	endpoint VARCHAR(255) NOT NULL,
	duration_ms BIGINT NOT NULL
)`

const schemaRun = `CREATE TABLE IF NOT EXISTS verify_run (
	id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
	started_at DATETIME(3) NOT NULL,
	finished_at DATETIME(3) NOT NULL,
	total INT UNSIGNED NOT NULL,
	successful INT UNSIGNED NOT NULL
)`

// MariaDB records verified configs and run summaries.
type MariaDB struct {
	db        *sql.DB
	startedAt time.Time
	timeout   time.Duration
}

func NewMariaDB(dsn string) (*MariaDB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &MariaDB{db: db, startedAt: time.Now().UTC(), timeout: 10 * time.Second}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *MariaDB) migrate() error {
	for _, stmt := range []string{schemaVerified, schemaRun} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *MariaDB) RecordSuccess(o model.Outcome) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO verified_config (run_started_at, config_name, protocol, endpoint, duration_ms) VALUES (?, ?, ?, ?, ?)",
		s.startedAt, o.Config, string(o.Target.Protocol), o.Target.Endpoint, o.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert verified config %s: %w", o.Config, err)
	}
	return nil
}

func (s *MariaDB) Finish(t model.Tally) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO verify_run (started_at, finished_at, total, successful) VALUES (?, ?, ?, ?)",
		s.startedAt, time.Now().UTC(), t.Total, t.Successful)
	if err != nil {
		return fmt.Errorf("insert run summary: %w", err)
	}
	return nil
}

func (s *MariaDB) Close() error {
	return s.db.Close()
}
