package checkinlog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// Entry is one account's check-in record for a calendar day (UTC).
type Entry struct {
	Account   string
	Provider  string
	Day       time.Time
	RunID     string
	CheckedIn bool
	Balance   string
	Used      string
	Message   string
	UpdatedAt time.Time
}

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) init() error {
	createStmt := `CREATE TABLE IF NOT EXISTS checkin_logs (
        account TEXT NOT NULL,
        provider TEXT NOT NULL,
        checked_date TEXT NOT NULL,
        run_id TEXT,
        checked_in INTEGER NOT NULL DEFAULT 0,
        PRIMARY KEY(account, provider, checked_date)
    )`
	if _, err := s.db.Exec(createStmt); err != nil {
		return err
	}
	return s.ensureColumns()
}

// ensureColumns upgrades databases created before the balance columns existed.
func (s *Store) ensureColumns() error {
	columns := map[string]bool{}
	rows, err := s.db.Query(`PRAGMA table_info(checkin_logs)`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		columns[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	alterStatements := []string{}
	addColumn := func(name, definition string) {
		if !columns[name] {
			alterStatements = append(alterStatements, definition)
		}
	}

	addColumn("balance", `ALTER TABLE checkin_logs ADD COLUMN balance TEXT`)
	addColumn("used", `ALTER TABLE checkin_logs ADD COLUMN used TEXT`)
	addColumn("message", `ALTER TABLE checkin_logs ADD COLUMN message TEXT`)
	addColumn("updated_at", `ALTER TABLE checkin_logs ADD COLUMN updated_at TEXT`)

	for _, stmt := range alterStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record upserts the entry for its account, provider and day. A successful
// check-in earlier the same day is never downgraded by a later failure.
func (s *Store) Record(entry Entry) error {
	account := normalizeKey(entry.Account)
	if account == "" {
		return errors.New("account is required")
	}
	provider := normalizeKey(entry.Provider)
	day := entry.Day
	if day.IsZero() {
		day = time.Now()
	}
	updated := entry.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	checked := 0
	if entry.CheckedIn {
		checked = 1
	}

	_, err := s.db.Exec(`INSERT INTO checkin_logs(account, provider, checked_date, run_id, checked_in, balance, used, message, updated_at)
    VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(account, provider, checked_date) DO UPDATE SET
        run_id = excluded.run_id,
        checked_in = MAX(checked_in, excluded.checked_in),
        balance = COALESCE(NULLIF(excluded.balance, ''), balance),
        used = COALESCE(NULLIF(excluded.used, ''), used),
        message = excluded.message,
        updated_at = excluded.updated_at`,
		account, provider, day.UTC().Format(dateLayout), entry.RunID, checked,
		entry.Balance, entry.Used, entry.Message, updated.UTC().Format(time.RFC3339))
	return err
}

// DailyStatus returns the stored entry for the day, or false when none exists.
func (s *Store) DailyStatus(account, provider string, day time.Time) (Entry, bool, error) {
	acc := normalizeKey(account)
	prov := normalizeKey(provider)
	dateStr := day.UTC().Format(dateLayout)

	var checked int
	var runID, balance, used, message, updatedAt sql.NullString
	err := s.db.QueryRow(`SELECT run_id, checked_in, balance, used, message, updated_at FROM checkin_logs WHERE account = ? AND provider = ? AND checked_date = ?`, acc, prov, dateStr).
		Scan(&runID, &checked, &balance, &used, &message, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	entry := Entry{
		Account:   acc,
		Provider:  prov,
		RunID:     runID.String,
		CheckedIn: checked == 1,
		Balance:   balance.String,
		Used:      used.String,
		Message:   message.String,
	}
	entry.Day, _ = time.Parse(dateLayout, dateStr)
	if updatedAt.Valid {
		entry.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt.String)
	}
	return entry, true, nil
}

func normalizeKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
