package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"sentiment-pattern-bot/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

const (
	cmdUp      = "up"
	cmdDown    = "down"
	cmdVersion = "version"
	usage      = "usage: migrate [up|down|version] [steps]"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var migrationFileRx = regexp.MustCompile(`^migrations/([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

var (
	loadEnvFunc = godotenv.Load
	openDB      = func(ctx context.Context, dsn string) (migrationDB, func(), error) {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return pool, pool.Close, nil
	}
	exitFunc = os.Exit
)

// migrationDB is the subset of pgxpool.Pool the migrator needs.
type migrationDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

func main() {
	_ = loadEnvFunc()
	_ = logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("APP_ENV"))
	defer logger.Sync()

	if err := run(context.Background(), os.Args[1:], os.Getenv("DATABASE_URL")); err != nil {
		logger.Get().Errorw("migrate failed", "error", err)
		exitFunc(1)
	}
}

func run(ctx context.Context, args []string, dsn string) error {
	if len(args) < 1 {
		return errors.New(usage)
	}
	command := args[0]
	if command != cmdUp && command != cmdDown && command != cmdVersion {
		return fmt.Errorf("unknown command %q. %s", command, usage)
	}

	steps := 1
	if command == cmdDown && len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid down steps: %q", args[1])
		}
		steps = n
	}

	if strings.TrimSpace(dsn) == "" {
		return errors.New("DATABASE_URL is required")
	}

	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	db, closeDB, err := openDB(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer closeDB()

	if err := ensureMigrationTable(ctx, db); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	log := logger.Get()
	switch command {
	case cmdUp:
		applied, err := applyUp(ctx, db, migrations)
		if err != nil {
			return fmt.Errorf("apply migrations up: %w", err)
		}
		log.Infow("migrations up complete", "applied", applied)
	case cmdDown:
		rolledBack, err := applyDown(ctx, db, migrations, steps)
		if err != nil {
			return fmt.Errorf("apply migrations down: %w", err)
		}
		log.Infow("migrations down complete", "rolled_back", rolledBack)
	case cmdVersion:
		version, name, err := currentVersion(ctx, db)
		if err != nil {
			return fmt.Errorf("read current version: %w", err)
		}
		if version == 0 {
			log.Info("no migrations applied")
			return nil
		}
		log.Infow("current version", "version", version, "name", name)
	}
	return nil
}

func ensureMigrationTable(ctx context.Context, db migrationDB) error {
	_, err := db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     BIGINT PRIMARY KEY,
    name        TEXT NOT NULL,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`)
	return err
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	paths, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no migration files found")
	}

	index := make(map[int64]*migration)
	for _, p := range paths {
		matches := migrationFileRx.FindStringSubmatch(p)
		if matches == nil {
			return nil, fmt.Errorf("invalid migration filename: %s", p)
		}

		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version in %s: %w", p, err)
		}
		name, direction := matches[2], matches[3]

		sqlBytes, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", p, err)
		}
		sqlText := strings.TrimSpace(string(sqlBytes))
		if sqlText == "" {
			return nil, fmt.Errorf("empty migration file: %s", p)
		}

		m, ok := index[version]
		if !ok {
			m = &migration{Version: version, Name: name}
			index[version] = m
		} else if m.Name != name {
			return nil, fmt.Errorf("conflicting names for version %d: %s vs %s", version, m.Name, name)
		}

		target := &m.UpSQL
		if direction == "down" {
			target = &m.DownSQL
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", direction, version)
		}
		*target = sqlText
	}

	migrations := make([]migration, 0, len(index))
	for _, m := range index {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration version %d must include both up and down files", m.Version)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func queryVersions(ctx context.Context, db migrationDB, sql string, args ...any) ([]int64, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int64
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}
	return versions, rows.Err()
}

// inTx runs the statement and its bookkeeping atomically.
func inTx(ctx context.Context, db migrationDB, stmt string, bookkeeping string, args ...any) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, stmt); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if _, err := tx.Exec(ctx, bookkeeping, args...); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func applyUp(ctx context.Context, db migrationDB, migrations []migration) (int, error) {
	versions, err := queryVersions(ctx, db, `SELECT version FROM schema_migrations`)
	if err != nil {
		return 0, err
	}
	applied := make(map[int64]struct{}, len(versions))
	for _, v := range versions {
		applied[v] = struct{}{}
	}

	count := 0
	for _, m := range migrations {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		err := inTx(ctx, db, m.UpSQL,
			`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
		if err != nil {
			return count, fmt.Errorf("version %d up failed: %w", m.Version, err)
		}
		logger.Get().Infow("applied migration", "version", m.Version, "name", m.Name)
		count++
	}
	return count, nil
}

func applyDown(ctx context.Context, db migrationDB, migrations []migration, steps int) (int, error) {
	if steps <= 0 {
		return 0, fmt.Errorf("steps must be > 0")
	}

	byVersion := make(map[int64]migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}

	versions, err := queryVersions(ctx, db,
		`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT $1`, steps)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, version := range versions {
		m, ok := byVersion[version]
		if !ok {
			return count, fmt.Errorf("cannot find migration source for applied version %d", version)
		}
		err := inTx(ctx, db, m.DownSQL, `DELETE FROM schema_migrations WHERE version = $1`, m.Version)
		if err != nil {
			return count, fmt.Errorf("version %d down failed: %w", m.Version, err)
		}
		count++
	}
	return count, nil
}

func currentVersion(ctx context.Context, db migrationDB) (int64, string, error) {
	var version int64
	var name string
	err := db.QueryRow(ctx, `SELECT version, name FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &name)
	if err == nil {
		return version, name, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", nil
	}
	return 0, "", err
}
