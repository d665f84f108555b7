// Command migrator copies users and post likes from a MyBB MySQL database
// into the PostgreSQL like store.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/caarlos0/env/v10"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"simplelikes/internal/pkg/apptime"
	"simplelikes/internal/platform/logger"
)

// Config stores migration configuration values.
type Config struct {
	MySQLHost    string        `env:"MYSQL_HOST" envDefault:"localhost"`
	MySQLPort    int           `env:"MYSQL_PORT" envDefault:"3306"`
	MySQLUser    string        `env:"MYSQL_USER" envDefault:"root"`
	MySQLPass    string        `env:"MYSQL_PASSWORD" envDefault:""`
	MySQLDB      string        `env:"MYSQL_DB" envDefault:"mybb"`
	MySQLTimeout time.Duration `env:"MYSQL_CONNECT_TIMEOUT" envDefault:"10s"`
	TablePrefix  string        `env:"MYBB_TABLE_PREFIX" envDefault:"mybb_"`

	PostgresHost    string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort    int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser    string        `env:"POSTGRES_USER" envDefault:"simplelikes"`
	PostgresPass    string        `env:"POSTGRES_PASSWORD" envDefault:"simplelikes"`
	PostgresDB      string        `env:"POSTGRES_DB" envDefault:"simplelikes"`
	PostgresTimeout time.Duration `env:"POSTGRES_CONNECT_TIMEOUT" envDefault:"10s"`

	TimeZone  string `env:"APP_TIMEZONE" envDefault:"UTC"`
	LogLevel  string `env:"APP_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"APP_LOG_FORMAT" envDefault:"text"`
	BatchSize int    `env:"MIGRATION_BATCH_SIZE" envDefault:"1000"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("load .env", "error", err)
		os.Exit(1)
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		slog.Error("parse config", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{
		Level:   logger.Level(cfg.LogLevel),
		Format:  logger.Format(cfg.LogFormat),
		Service: "simplelikes-migrator",
	})

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migration completed")
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("MIGRATION_BATCH_SIZE must be positive")
	}
	if !validPrefix(cfg.TablePrefix) {
		return fmt.Errorf("MYBB_TABLE_PREFIX %q may only contain letters, digits and underscores", cfg.TablePrefix)
	}
	if err := apptime.SetLocation(cfg.TimeZone); err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	mysqlDB, err := connectMySQL(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect mysql: %w", err)
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	pgDB, err := connectPostgres(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer func() {
		_ = pgDB.Close(ctx)
	}()

	m := &migrator{
		src:       mysqlDB,
		dst:       pgDB,
		prefix:    cfg.TablePrefix,
		batchSize: cfg.BatchSize,
		log:       log,
	}
	if err := m.migrateUsers(ctx); err != nil {
		return fmt.Errorf("users: %w", err)
	}
	if err := m.migrateLikes(ctx); err != nil {
		return fmt.Errorf("likes: %w", err)
	}
	return m.verify(ctx)
}

func connectMySQL(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4",
		cfg.MySQLUser, cfg.MySQLPass, cfg.MySQLHost, cfg.MySQLPort, cfg.MySQLDB)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.MySQLTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func connectPostgres(ctx context.Context, cfg Config) (*pgx.Conn, error) {
	connStr := fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.PostgresUser, cfg.PostgresPass, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)

	ctx, cancel := context.WithTimeout(ctx, cfg.PostgresTimeout)
	defer cancel()

	return pgx.Connect(ctx, connStr)
}

type migrator struct {
	src       *sql.DB
	dst       *pgx.Conn
	prefix    string
	batchSize int
	log       *slog.Logger
}

type userRow struct {
	uid          int64
	username     string
	avatar       sql.NullString
	usergroup    int
	displaygroup int
}

type likeRow struct {
	postID    int64
	userID    int64
	createdAt sql.NullString
}

type batchStats struct {
	inserted int64
	skipped  int64
}

func (m *migrator) table(name string) string {
	return m.prefix + name
}

func (m *migrator) migrateUsers(ctx context.Context) error {
	var (
		lastUID   int64
		processed int64
		inserted  int64
	)
	for {
		users, err := m.fetchUsers(ctx, lastUID)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			break
		}
		lastUID = users[len(users)-1].uid
		processed += int64(len(users))

		var stats batchStats
		err = m.inTx(ctx, func(tx pgx.Tx) error {
			stats, err = insertUsers(ctx, tx, users)
			return err
		})
		if err != nil {
			return err
		}
		inserted += stats.inserted
		m.log.Info("user batch copied", "processed", processed, "inserted", stats.inserted, "last_uid", lastUID)
	}
	m.log.Info("users copied", "processed", processed, "inserted", inserted)
	return nil
}

func (m *migrator) fetchUsers(ctx context.Context, lastUID int64) ([]userRow, error) {
	// #nosec G201 -- table prefix is validated.
	query := fmt.Sprintf(`
		SELECT uid, username, avatar, usergroup, displaygroup
		FROM %s
		WHERE uid > ?
		ORDER BY uid
		LIMIT ?
	`, m.table("users"))

	rows, err := m.src.QueryContext(ctx, query, lastUID, m.batchSize)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, m.log)

	var result []userRow
	for rows.Next() {
		var row userRow
		if err := rows.Scan(&row.uid, &row.username, &row.avatar, &row.usergroup, &row.displaygroup); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func insertUsers(ctx context.Context, tx pgx.Tx, users []userRow) (batchStats, error) {
	var stats batchStats
	for _, u := range users {
		if u.uid <= 0 {
			stats.skipped++
			continue
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO users (uid, username, avatar, usergroup, displaygroup)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (uid) DO NOTHING
		`, u.uid, sanitizeUTF8(u.username), sanitizeUTF8(u.avatar.String), u.usergroup, u.displaygroup)
		if err != nil {
			return stats, err
		}
		stats.inserted += tag.RowsAffected()
	}
	return stats, nil
}

func (m *migrator) migrateLikes(ctx context.Context) error {
	var (
		lastPost  int64
		lastUser  int64
		processed int64
		inserted  int64
		skipped   int64
	)
	for {
		likes, err := m.fetchLikes(ctx, lastPost, lastUser)
		if err != nil {
			return err
		}
		if len(likes) == 0 {
			break
		}
		last := likes[len(likes)-1]
		lastPost, lastUser = last.postID, last.userID
		processed += int64(len(likes))

		var stats batchStats
		err = m.inTx(ctx, func(tx pgx.Tx) error {
			stats, err = insertLikes(ctx, tx, likes)
			return err
		})
		if err != nil {
			return err
		}
		inserted += stats.inserted
		skipped += stats.skipped
		m.log.Info("like batch copied", "processed", processed, "inserted", stats.inserted, "skipped", stats.skipped)
	}
	if skipped > 0 {
		m.log.Warn("likes skipped due to invalid ids or timestamps", "skipped", skipped)
	}
	m.log.Info("likes copied", "processed", processed, "inserted", inserted)
	return nil
}

func (m *migrator) fetchLikes(ctx context.Context, lastPost, lastUser int64) ([]likeRow, error) {
	// #nosec G201 -- table prefix is validated.
	query := fmt.Sprintf(`
		SELECT post_id, user_id, created_at
		FROM %s
		WHERE post_id > ? OR (post_id = ? AND user_id > ?)
		ORDER BY post_id, user_id
		LIMIT ?
	`, m.table("post_likes"))

	rows, err := m.src.QueryContext(ctx, query, lastPost, lastPost, lastUser, m.batchSize)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, m.log)

	var result []likeRow
	for rows.Next() {
		var row likeRow
		if err := rows.Scan(&row.postID, &row.userID, &row.createdAt); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func insertLikes(ctx context.Context, tx pgx.Tx, likes []likeRow) (batchStats, error) {
	var stats batchStats
	for _, l := range likes {
		createdAt, ok := likeTimestamp(l)
		if !ok {
			stats.skipped++
			continue
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO post_likes (post_id, user_id, created_at)
			VALUES ($1, $2, $3::timestamp)
			ON CONFLICT (post_id, user_id) DO NOTHING
		`, l.postID, l.userID, createdAt)
		if err != nil {
			return stats, err
		}
		stats.inserted += tag.RowsAffected()
	}
	return stats, nil
}

// likeTimestamp returns the normalized created_at of a source row, or false
// when the row cannot be stored.
func likeTimestamp(l likeRow) (string, bool) {
	if l.postID <= 0 || l.userID <= 0 || !l.createdAt.Valid {
		return "", false
	}
	t, err := apptime.ParseTimestamp(l.createdAt.String)
	if err != nil {
		return "", false
	}
	return apptime.FormatTimestamp(t), true
}

func (m *migrator) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := m.dst.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		rollbackTx(ctx, tx, m.log)
		return err
	}
	return tx.Commit(ctx)
}

func (m *migrator) verify(ctx context.Context) error {
	checks := []struct {
		name     string
		srcQuery string
		dstQuery string
	}{
		{
			name:     "users",
			srcQuery: fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE uid > 0", m.table("users")),
			dstQuery: "SELECT COUNT(*) FROM users",
		},
		{
			name:     "post_likes",
			srcQuery: fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE post_id > 0 AND user_id > 0 AND created_at IS NOT NULL", m.table("post_likes")),
			dstQuery: "SELECT COUNT(*) FROM post_likes",
		},
	}

	var mismatched []string
	for _, c := range checks {
		var srcCount, dstCount int64
		if err := m.src.QueryRowContext(ctx, c.srcQuery).Scan(&srcCount); err != nil {
			return fmt.Errorf("count source %s: %w", c.name, err)
		}
		if err := m.dst.QueryRow(ctx, c.dstQuery).Scan(&dstCount); err != nil {
			return fmt.Errorf("count destination %s: %w", c.name, err)
		}
		m.log.Info("row count", "table", c.name, "mysql", srcCount, "postgres", dstCount)
		if srcCount != dstCount {
			mismatched = append(mismatched, c.name)
		}
	}
	if len(mismatched) > 0 {
		return fmt.Errorf("row count mismatch: %s", strings.Join(mismatched, ", "))
	}
	return nil
}

func validPrefix(prefix string) bool {
	for _, r := range prefix {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// sanitizeUTF8 removes invalid UTF-8 sequences from a string
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		if r != utf8.RuneError {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

func closeRows(rows *sql.Rows, log *slog.Logger) {
	if err := rows.Close(); err != nil {
		log.Warn("rows close failed", "error", err)
	}
}

func rollbackTx(ctx context.Context, tx pgx.Tx, log *slog.Logger) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		log.Warn("rollback failed", "error", err)
	}
}
