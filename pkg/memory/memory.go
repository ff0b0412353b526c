// Package memory implements MemGPT/Letta-style persistent memory: an
// archival store searchable with SQLite FTS5, and a small fixed set of
// always-in-context core memory sections.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/docker/openclaudia/pkg/sqliteutil"
)

// Core memory section names, seeded on schema creation.
const (
	SectionPersona     = "persona"
	SectionProjectInfo = "project_info"
	SectionUserPrefs   = "user_preferences"
)

const schema = `
CREATE TABLE IF NOT EXISTS archival_memory (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	content TEXT NOT NULL,
	tags TEXT DEFAULT '',
	created_at TEXT DEFAULT (datetime('now')),
	updated_at TEXT DEFAULT (datetime('now'))
);

CREATE VIRTUAL TABLE IF NOT EXISTS archival_memory_fts USING fts5(
	content,
	tags,
	content=archival_memory,
	content_rowid=id
);

CREATE TRIGGER IF NOT EXISTS archival_memory_ai AFTER INSERT ON archival_memory BEGIN
	INSERT INTO archival_memory_fts(rowid, content, tags)
	VALUES (new.id, new.content, new.tags);
END;

CREATE TRIGGER IF NOT EXISTS archival_memory_ad AFTER DELETE ON archival_memory BEGIN
	INSERT INTO archival_memory_fts(archival_memory_fts, rowid, content, tags)
	VALUES('delete', old.id, old.content, old.tags);
END;

CREATE TRIGGER IF NOT EXISTS archival_memory_au AFTER UPDATE ON archival_memory BEGIN
	INSERT INTO archival_memory_fts(archival_memory_fts, rowid, content, tags)
	VALUES('delete', old.id, old.content, old.tags);
	INSERT INTO archival_memory_fts(rowid, content, tags)
	VALUES (new.id, new.content, new.tags);
END;

CREATE TABLE IF NOT EXISTS core_memory (
	section TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	updated_at TEXT DEFAULT (datetime('now'))
);

INSERT OR IGNORE INTO core_memory (section, content) VALUES
	('persona', 'I am an AI assistant helping with this project. I will learn about the codebase and remember important details across sessions.'),
	('project_info', 'No project information recorded yet.'),
	('user_preferences', 'No user preferences recorded yet.');
`

const defaultPersona = "I am an AI assistant helping with this project. I will learn about the codebase and remember important details across sessions."
const defaultProjectInfo = "No project information recorded yet."
const defaultUserPrefs = "No user preferences recorded yet."

// Entry is one archival memory row.
type Entry struct {
	ID        int64
	Content   string
	Tags      []string
	CreatedAt string
	UpdatedAt string
}

// CoreSection is one always-in-context memory block.
type CoreSection struct {
	Section   string
	Content   string
	UpdatedAt string
}

// Stats summarizes the archival store.
type Stats struct {
	Count       int
	TotalSize   int
	LastUpdated string
}

// DB is a memory store backed by one SQLite database file.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates a memory database at path, ensuring its schema.
func Open(path string) (*DB, error) {
	conn, err := sqliteutil.OpenDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database at %q: %w", path, err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.ensureSchema(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Close closes the underlying connection.
func (db *DB) Close() error { return db.conn.Close() }

func (db *DB) ensureSchema(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create memory database schema: %w", err)
	}
	return nil
}

func joinTags(tags []string) string { return strings.Join(tags, ",") }

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Save inserts a new archival memory entry and returns its id.
func (db *DB) Save(ctx context.Context, content string, tags []string) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO archival_memory (content, tags) VALUES (?, ?)",
		content, joinTags(tags))
	if err != nil {
		return 0, fmt.Errorf("failed to save memory: %w", err)
	}
	return res.LastInsertId()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var tags string
		if err := rows.Scan(&e.ID, &e.Content, &tags, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory row: %w", err)
		}
		e.Tags = splitTags(tags)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Search runs a full-text search over content and tags, ranked by bm25,
// best match first.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT am.id, am.content, am.tags, am.created_at, am.updated_at
		FROM archival_memory_fts
		JOIN archival_memory am ON archival_memory_fts.rowid = am.id
		WHERE archival_memory_fts MATCH ?
		ORDER BY bm25(archival_memory_fts)
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search memory: %w", err)
	}
	return scanEntries(rows)
}

// Get retrieves a single entry by id, or (Entry{}, false, nil) if absent.
func (db *DB) Get(ctx context.Context, id int64) (Entry, bool, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, content, tags, created_at, updated_at FROM archival_memory WHERE id = ?", id)

	var e Entry
	var tags string
	if err := row.Scan(&e.ID, &e.Content, &tags, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("failed to get memory %d: %w", id, err)
	}
	e.Tags = splitTags(tags)
	return e, true, nil
}

// Update replaces an entry's content. Returns false if no entry matched.
func (db *DB) Update(ctx context.Context, id int64, content string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE archival_memory SET content = ?, updated_at = datetime('now') WHERE id = ?",
		content, id)
	if err != nil {
		return false, fmt.Errorf("failed to update memory %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes an entry by id. Returns false if no entry matched.
func (db *DB) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM archival_memory WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete memory %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// List returns the most recently updated entries, newest first.
func (db *DB) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, content, tags, created_at, updated_at FROM archival_memory ORDER BY updated_at DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list memory: %w", err)
	}
	return scanEntries(rows)
}

// Stats reports archival memory size and recency.
func (db *DB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var lastUpdated sql.NullString

	row := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(content)), 0), MAX(updated_at)
		FROM archival_memory`)
	if err := row.Scan(&s.Count, &s.TotalSize, &lastUpdated); err != nil {
		return Stats{}, fmt.Errorf("failed to compute memory stats: %w", err)
	}
	s.LastUpdated = lastUpdated.String
	return s, nil
}

// CoreMemory returns every core memory section, ordered by section name.
func (db *DB) CoreMemory(ctx context.Context) ([]CoreSection, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT section, content, updated_at FROM core_memory ORDER BY section")
	if err != nil {
		return nil, fmt.Errorf("failed to list core memory: %w", err)
	}
	defer rows.Close()

	var sections []CoreSection
	for rows.Next() {
		var c CoreSection
		if err := rows.Scan(&c.Section, &c.Content, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan core memory row: %w", err)
		}
		sections = append(sections, c)
	}
	return sections, rows.Err()
}

// CoreMemorySection returns one section, or (CoreSection{}, false, nil) if
// it doesn't exist.
func (db *DB) CoreMemorySection(ctx context.Context, section string) (CoreSection, bool, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT section, content, updated_at FROM core_memory WHERE section = ?", section)

	var c CoreSection
	if err := row.Scan(&c.Section, &c.Content, &c.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return CoreSection{}, false, nil
		}
		return CoreSection{}, false, fmt.Errorf("failed to get core memory section %q: %w", section, err)
	}
	return c, true, nil
}

// UpdateCoreMemory creates or replaces a core memory section.
func (db *DB) UpdateCoreMemory(ctx context.Context, section, content string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO core_memory (section, content, updated_at) VALUES (?, ?, datetime('now'))",
		section, content)
	if err != nil {
		return fmt.Errorf("failed to update core memory section %q: %w", section, err)
	}
	return nil
}

// FormatCoreMemoryForPrompt renders every core memory section as an
// XML-tagged block suitable for injection into a system prompt.
func (db *DB) FormatCoreMemoryForPrompt(ctx context.Context) (string, error) {
	sections, err := db.CoreMemory(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("<core_memory>\n")
	for _, s := range sections {
		fmt.Fprintf(&b, "<%s>\n%s\n</%s>\n", s.Section, s.Content, s.Section)
	}
	b.WriteString("</core_memory>")
	return b.String(), nil
}

// ClearArchival deletes every archival entry, keeping core memory. Returns
// the number of rows removed.
func (db *DB) ClearArchival(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM archival_memory")
	if err != nil {
		return 0, fmt.Errorf("failed to clear archival memory: %w", err)
	}
	return res.RowsAffected()
}

// ResetAll clears archival memory and restores core memory to its defaults.
func (db *DB) ResetAll(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM archival_memory"); err != nil {
		return fmt.Errorf("failed to clear archival memory: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM core_memory"); err != nil {
		return fmt.Errorf("failed to clear core memory: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO core_memory (section, content) VALUES (?, ?), (?, ?), (?, ?)`,
		SectionPersona, defaultPersona,
		SectionProjectInfo, defaultProjectInfo,
		SectionUserPrefs, defaultUserPrefs); err != nil {
		return fmt.Errorf("failed to reseed core memory: %w", err)
	}

	return tx.Commit()
}
