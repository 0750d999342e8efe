package learning

import "database/sql"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS lessons (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_type TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '',
	task_description TEXT NOT NULL DEFAULT '',
	success INTEGER NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	error_pattern TEXT NOT NULL DEFAULT '',
	root_cause TEXT NOT NULL DEFAULT '',
	solution TEXT NOT NULL DEFAULT '',
	lesson_summary TEXT NOT NULL,
	attempts_before_success INTEGER NOT NULL DEFAULT 0,
	time_to_resolution_ms INTEGER NOT NULL DEFAULT 0,
	relevance_score REAL NOT NULL DEFAULT 1.0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS task_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_type TEXT NOT NULL DEFAULT '',
	persona_id TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	chat_id TEXT NOT NULL DEFAULT '',
	success INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	output TEXT NOT NULL DEFAULT '',
	lesson_ids TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lessons_task_type ON lessons(task_type);
CREATE INDEX IF NOT EXISTS idx_lessons_category ON lessons(category);
CREATE INDEX IF NOT EXISTS idx_lessons_success ON lessons(success);
CREATE INDEX IF NOT EXISTS idx_lessons_error_pattern ON lessons(error_pattern);
CREATE INDEX IF NOT EXISTS idx_lessons_created_at ON lessons(created_at);
`

// ensureSchema creates the lessons/task_history tables and their indexes
// if absent, and adds any column named in forwardColumns that an older
// database file is missing. Schema evolves forward-only (§4.1, §6).
func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaDDL); err != nil {
		return err
	}
	return addMissingColumns(db)
}

type columnDef struct {
	table, name, ddlType string
}

var forwardColumns = []columnDef{
	// Placeholder for forward-only evolutions applied to databases created
	// by an earlier schema version. Empty today; new columns land here
	// rather than editing schemaDDL, so existing store files upgrade in
	// place.
}

func addMissingColumns(db *sql.DB) error {
	for _, col := range forwardColumns {
		has, err := hasColumn(db, col.table, col.name)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := db.Exec("ALTER TABLE " + col.table + " ADD COLUMN " + col.name + " " + col.ddlType); err != nil {
			return err
		}
	}
	return nil
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notnull    int
			dflt       sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
