package adapters

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
	"io/fs"
	_ "modernc.org/sqlite"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type SqliteSubmissionStore struct {
	logger outbound.LoggerPort
	db     *sql.DB
}

// OpenSqliteSubmissionStore opens or creates the submission log at dbPath
// with WAL enabled and applies pending migrations.
func OpenSqliteSubmissionStore(dbPath string, logger outbound.LoggerPort) (*SqliteSubmissionStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	store := &SqliteSubmissionStore{logger: logger, db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.InfoWithFields("Submission log opened", map[string]interface{}{"path": dbPath})
	return store, nil
}

func (s *SqliteSubmissionStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TEXT DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version := strings.TrimSuffix(entry.Name(), ".sql")

		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
			return fmt.Errorf("checking migration %s: %w", version, err)
		}
		if count > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile(path.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", version, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %s: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", version, err)
		}

		s.logger.InfoWithFields("Applied migration", map[string]interface{}{"version": version})
	}

	return nil
}

func (s *SqliteSubmissionStore) Append(ctx context.Context, record domain.SubmissionRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO submissions
		(submitted_at, phone_number, author_name, submission_text, author_email, generated_script, run_id, audio_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.SubmittedAt.UTC().Format(time.RFC3339Nano),
		record.PhoneNumber,
		record.AuthorName,
		record.SubmissionText,
		record.AuthorEmail,
		record.GeneratedScript,
		record.RunID,
		record.AudioURL,
	)
	if err != nil {
		s.logger.ErrorWithFields(err, "Failed to append submission row", map[string]interface{}{
			"run_id": record.RunID,
		})
		return domain.NewPersistenceError("insert", err)
	}
	return nil
}

func (s *SqliteSubmissionStore) HasPhoneNumber(ctx context.Context, phoneNumber string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM submissions WHERE phone_number = ?)", phoneNumber).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *SqliteSubmissionStore) Close() error {
	return s.db.Close()
}
