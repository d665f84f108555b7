package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	testcontainers "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"simplelikes/migrations"
)

// setupPostgres connects to a PostgreSQL database for testing.
// Uses TEST_POSTGRES_URL when set, otherwise starts a throwaway container.
// Skips when neither is available.
func setupPostgres(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	connStr := os.Getenv("TEST_POSTGRES_URL")
	terminate := func() {}

	if connStr == "" {
		container, err := tcpostgres.RunContainer(ctx,
			testcontainers.WithImage("postgres:16-alpine"),
			tcpostgres.WithDatabase("test"),
			tcpostgres.WithUsername("test"),
			tcpostgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			t.Skipf("skipping postgres integration test: %v", err)
		}
		terminate = func() { _ = container.Terminate(context.Background()) }

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			terminate()
			t.Fatalf("container connection string: %v", err)
		}
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		terminate()
		t.Skipf("failed to connect to test database: %v", err)
	}

	// Verify connection with retries (container might still be starting)
	for i := 0; i < 30; i++ {
		if err = pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err != nil {
		pool.Close()
		terminate()
		t.Skipf("failed to ping test database after retries: %v", err)
	}

	if err := applyTestMigrations(ctx, pool); err != nil {
		pool.Close()
		terminate()
		t.Fatalf("failed to apply migrations: %v", err)
	}
	cleanupTables(t, pool)

	return pool, func() {
		pool.Close()
		terminate()
	}
}

// applyTestMigrations runs every embedded up migration in order.
// All statements are idempotent, so reruns against a shared database are safe.
func applyTestMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	files, err := fs.Glob(migrations.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		for _, stmt := range splitStatements(string(content)) {
			if _, err := pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("exec %s: %w", file, err)
			}
		}
	}
	return nil
}

// splitStatements splits SQL content into individual statements.
func splitStatements(sql string) []string {
	var builder strings.Builder
	var statements []string
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		builder.WriteString(line)
		if strings.HasSuffix(line, ";") {
			statements = append(statements, strings.TrimSpace(strings.TrimSuffix(builder.String(), ";")))
			builder.Reset()
		} else {
			builder.WriteString("\n")
		}
	}
	if residual := strings.TrimSpace(builder.String()); residual != "" {
		statements = append(statements, residual)
	}
	return statements
}

// cleanupTables removes all data from test tables.
func cleanupTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	for _, table := range []string{"post_likes", "users"} {
		_, err := pool.Exec(context.Background(), fmt.Sprintf("TRUNCATE TABLE %s", table))
		require.NoError(t, err, "failed to cleanup table %s", table)
	}
}

// insertUser inserts a user row directly.
func insertUser(t *testing.T, pool *pgxpool.Pool, uid int64, username string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (uid, username, avatar) VALUES ($1, $2, $3)`,
		uid, username, fmt.Sprintf("avatars/%d.png", uid))
	require.NoError(t, err)
}

// insertLike inserts a like row directly.
func insertLike(t *testing.T, pool *pgxpool.Pool, postID, userID int64, createdAt string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO post_likes (post_id, user_id, created_at) VALUES ($1, $2, $3::timestamp)`,
		postID, userID, createdAt)
	require.NoError(t, err)
}

// countLikes counts rows for a pair.
func countLikes(t *testing.T, pool *pgxpool.Pool, postID, userID int64) int {
	t.Helper()

	var n int
	err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID).Scan(&n)
	require.NoError(t, err)
	return n
}
