package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS items (
    id             INTEGER PRIMARY KEY,
    name           TEXT NOT NULL,
    description    TEXT,
    date_found     TEXT,
    location       TEXT,
    status         TEXT NOT NULL DEFAULT 'available',
    image_filename TEXT,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// itemColumns lists columns added to the items table after the first release,
// in the order they were introduced. Databases created by earlier versions are
// missing some of them; Migrate adds whatever is absent. ALTER TABLE in SQLite
// only accepts constant defaults, so created_at is added bare and backfilled.
var itemColumns = []struct {
	name string
	ddl  string
}{
	{"date_found", `ALTER TABLE items ADD COLUMN date_found TEXT`},
	{"location", `ALTER TABLE items ADD COLUMN location TEXT`},
	{"status", `ALTER TABLE items ADD COLUMN status TEXT NOT NULL DEFAULT 'available'`},
	{"image_filename", `ALTER TABLE items ADD COLUMN image_filename TEXT`},
	{"created_at", `ALTER TABLE items ADD COLUMN created_at DATETIME`},
}

// Migrate creates the current schema and upgrades databases created by earlier
// versions. All steps are additive and idempotent; nothing is dropped. Runtime
// code may assume the final schema after this returns.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	existing, err := tableColumns(db, "items")
	if err != nil {
		return err
	}

	for _, col := range itemColumns {
		if existing[col.name] {
			continue
		}
		if _, err := db.Exec(col.ddl); err != nil {
			return fmt.Errorf("adding column %s: %w", col.name, err)
		}
	}

	// Backfills for rows written before the columns existed.
	backfills := []string{
		`UPDATE items SET status = 'available' WHERE status IS NULL OR status = ''`,
		`UPDATE items SET created_at = CURRENT_TIMESTAMP WHERE created_at IS NULL`,
	}

	// The first release stored the report date in a single `date` column.
	// Copy it into date_found where the newer column is still unset.
	if existing["date"] {
		backfills = append(backfills,
			`UPDATE items SET date_found = date
			 WHERE (date_found IS NULL OR date_found = '')
			   AND date IS NOT NULL AND date != ''`)
	}

	for _, b := range backfills {
		if _, err := db.Exec(b); err != nil {
			return fmt.Errorf("backfilling items: %w", err)
		}
	}

	return nil
}

// tableColumns returns the set of column names currently on a table.
func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("inspecting table %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("scanning table info: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
