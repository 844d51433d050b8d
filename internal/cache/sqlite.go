package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/anle/alumnet/internal/model"
)

// ErrNotFound is returned when a single-record lookup matches nothing.
var ErrNotFound = errors.New("cache: record not found")

// SQLiteCache implements the Cache interface using a local SQLite database.
type SQLiteCache struct {
	db *sqlx.DB
}

// NewSQLiteCache opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	c := &SQLiteCache{db: db}
	if err := c.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the underlying database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (c *SQLiteCache) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := c.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = c.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := c.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertProfiles inserts or replaces a batch of profiles.
func (c *SQLiteCache) UpsertProfiles(ctx context.Context, profiles []model.Profile) error {
	if len(profiles) == 0 {
		return nil
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO profiles (
			id, full_name, avatar_path, role,
			headline, bio, grad_year,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range profiles {
		_, err = stmt.ExecContext(ctx,
			p.ID, p.FullName, p.AvatarPath, string(p.Role),
			p.Headline, p.Bio, p.GradYear,
			p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting profile %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// GetProfiles retrieves all cached profiles ordered by full name.
func (c *SQLiteCache) GetProfiles(ctx context.Context) ([]model.Profile, error) {
	rows, err := c.db.QueryxContext(ctx, "SELECT * FROM profiles ORDER BY full_name")
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

// GetProfileByID retrieves a single cached profile by its ID.
// Returns ErrNotFound when the id is not cached.
func (c *SQLiteCache) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	row := c.db.QueryRowxContext(ctx, "SELECT * FROM profiles WHERE id = ?", id)

	p, err := scanProfileRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile %s: %w", id, err)
	}

	return &p, nil
}

// UpsertMessages inserts or replaces a batch of messages.
func (c *SQLiteCache) UpsertMessages(ctx context.Context, msgs []model.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO messages (
			id, conversation_id, sender_id, content, created_at
		) VALUES (?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		_, err = stmt.ExecContext(ctx,
			m.ID, m.ConversationID, m.SenderID, m.Content, m.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting message %s: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// GetMessages retrieves cached messages for one conversation,
// ordered oldest first.
func (c *SQLiteCache) GetMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	rows, err := c.db.QueryxContext(ctx,
		"SELECT * FROM messages WHERE conversation_id = ? ORDER BY created_at ASC",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var (
			m         model.Message
			createdAt time.Time
		)
		err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		m.CreatedAt = createdAt
		msgs = append(msgs, m)
	}

	return msgs, rows.Err()
}

// UpsertNotifications inserts or replaces a batch of notifications.
func (c *SQLiteCache) UpsertNotifications(ctx context.Context, notes []model.Notification) error {
	if len(notes) == 0 {
		return nil
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO notifications (
			id, user_id, type, message, read, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, n := range notes {
		_, err = stmt.ExecContext(ctx,
			n.ID, n.UserID, string(n.Type), n.Message,
			boolToInt(n.Read), n.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting notification %s: %w", n.ID, err)
		}
	}

	return tx.Commit()
}

// GetUnreadNotifications retrieves unread notifications for one member,
// ordered by creation time descending.
func (c *SQLiteCache) GetUnreadNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	rows, err := c.db.QueryxContext(ctx,
		"SELECT * FROM notifications WHERE user_id = ? AND read = 0 ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying unread notifications: %w", err)
	}
	defer rows.Close()

	var notes []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}

	return notes, rows.Err()
}

// MarkNotificationRead marks a single cached notification as read.
func (c *SQLiteCache) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	return nil
}

// UpsertAnnouncements inserts or replaces a batch of announcements.
func (c *SQLiteCache) UpsertAnnouncements(ctx context.Context, posts []model.Announcement) error {
	if len(posts) == 0 {
		return nil
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO announcements (
			id, author_id, title, body, pinned, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, a := range posts {
		_, err = stmt.ExecContext(ctx,
			a.ID, a.AuthorID, a.Title, a.Body,
			boolToInt(a.Pinned), a.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting announcement %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// GetAnnouncements retrieves cached announcements, pinned posts first,
// then newest first.
func (c *SQLiteCache) GetAnnouncements(ctx context.Context) ([]model.Announcement, error) {
	rows, err := c.db.QueryxContext(ctx,
		"SELECT * FROM announcements ORDER BY pinned DESC, created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying announcements: %w", err)
	}
	defer rows.Close()

	var posts []model.Announcement
	for rows.Next() {
		var (
			a         model.Announcement
			pinned    int
			createdAt time.Time
		)
		err := rows.Scan(&a.ID, &a.AuthorID, &a.Title, &a.Body, &pinned, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning announcement row: %w", err)
		}
		a.Pinned = pinned != 0
		a.CreatedAt = createdAt
		posts = append(posts, a)
	}

	return posts, rows.Err()
}

// Wipe enumerates every user table and deletes all rows in one
// transaction. The schema itself is left intact so the cache can be
// reused after the next sign-in.
func (c *SQLiteCache) Wipe(ctx context.Context) error {
	var tables []string
	err := c.db.SelectContext(ctx, &tables, `
		SELECT name FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		  AND name != 'schema_version'
		ORDER BY name`)
	if err != nil {
		return fmt.Errorf("enumerating tables: %w", err)
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("wiping table %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// scanProfile scans a profile row from a sqlx.Rows result set.
func scanProfile(rows *sqlx.Rows) (model.Profile, error) {
	var (
		p         model.Profile
		role      string
		createdAt time.Time
		updatedAt time.Time
	)

	err := rows.Scan(
		&p.ID, &p.FullName, &p.AvatarPath, &role,
		&p.Headline, &p.Bio, &p.GradYear,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return model.Profile{}, fmt.Errorf("scanning profile row: %w", err)
	}

	p.Role = model.Role(role)
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt

	return p, nil
}

// scanProfileRow scans a single profile row from a sqlx.Row.
func scanProfileRow(row *sqlx.Row) (model.Profile, error) {
	var (
		p         model.Profile
		role      string
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(
		&p.ID, &p.FullName, &p.AvatarPath, &role,
		&p.Headline, &p.Bio, &p.GradYear,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return model.Profile{}, err
	}

	p.Role = model.Role(role)
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt

	return p, nil
}

// scanNotification scans a notification row from a sqlx.Rows result set.
func scanNotification(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n         model.Notification
		noteType  string
		readInt   int
		createdAt time.Time
	)

	err := rows.Scan(
		&n.ID, &n.UserID, &noteType, &n.Message,
		&readInt, &createdAt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning notification row: %w", err)
	}

	n.Type = model.NotificationType(noteType)
	n.Read = readInt != 0
	n.CreatedAt = createdAt

	return n, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
