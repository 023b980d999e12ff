package leads

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"remoasset/internal/model"
	"remoasset/internal/util"
)

// SQLiteDirectory implements inbox.LeadDirectory backed by a local SQLite
// database holding the CRM lead projections.
type SQLiteDirectory struct {
	db *sql.DB
}

// NewSQLiteDirectory opens (or creates) the database at the given path and
// runs migrations.
func NewSQLiteDirectory(dbPath string) (*SQLiteDirectory, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteDirectory{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	owner_id     TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_owner ON leads(owner_id);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteDirectory) Close() error {
	return s.db.Close()
}

// VisibleLeads returns up to limit leads the user may query mail for, newest
// first. Admins see every lead; other users only those they own. Leads
// without an email address are excluded outright.
func (s *SQLiteDirectory) VisibleLeads(ctx context.Context, user model.Identity, limit int) ([]model.Lead, error) {
	query := `SELECT id, display_name, email, owner_id FROM leads
		WHERE email != ''`
	args := []any{}
	if !user.Admin {
		query += ` AND owner_id = ?`
		args = append(args, user.ID)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Lead
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.ID, &l.DisplayName, &l.Email, &l.OwnerID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLiteDirectory) UpsertLeads(ctx context.Context, leads []model.Lead) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO leads (id, display_name, email, owner_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			email        = excluded.email,
			owner_id     = excluded.owner_id
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range leads {
		if _, err := stmt.ExecContext(ctx, l.ID, l.DisplayName, l.Email, l.OwnerID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteDirectory) DeleteLeads(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM leads WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteDirectory) CountLeads(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads").Scan(&count)
	return count, err
}

// ImportCSV upserts leads from a CSV stream with columns
// id,display_name,email,owner_id (a header row is detected and skipped).
// Rows without an id get a generated one; emails are normalized and rows
// whose email does not parse are skipped. Returns the number imported.
func (s *SQLiteDirectory) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var batch []model.Lead
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read csv: %w", err)
		}
		if first {
			first = false
			if looksLikeHeader(rec) {
				continue
			}
		}
		if len(rec) < 3 {
			continue
		}

		l := model.Lead{
			ID:          strings.TrimSpace(rec[0]),
			DisplayName: strings.TrimSpace(rec[1]),
			Email:       util.NormalizeAddress(rec[2]),
		}
		if len(rec) > 3 {
			l.OwnerID = strings.TrimSpace(rec[3])
		}
		if l.Email == "" {
			continue
		}
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		batch = append(batch, l)
	}

	if len(batch) == 0 {
		return 0, nil
	}
	if err := s.UpsertLeads(ctx, batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}

func looksLikeHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	head := strings.ToLower(strings.TrimSpace(rec[0]))
	return head == "id" || head == "lead_id"
}
