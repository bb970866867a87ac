package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teople1/teople1/internal/server/db"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// executor is satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type queries struct {
	exec executor
}

var _ db.Queries = (*queries)(nil)

func (q *queries) Plugins() db.PluginRepository {
	return &pluginRepository{exec: q.exec}
}

func (q *queries) Reloads() db.ReloadRepository {
	return &reloadRepository{exec: q.exec}
}

// pluginColumns is the column order scanPlugin expects.
const pluginColumns = `id, name, version, enabled, module_dir, manifest, installed_at, updated_at`

type pluginRepository struct {
	exec executor
}

var _ db.PluginRepository = (*pluginRepository)(nil)

// Upsert inserts a plugin row or refreshes it. installed_at keeps the time
// of the first install.
func (r *pluginRepository) Upsert(ctx context.Context, plugin db.Plugin) error {
	const stmt = `INSERT INTO plugins (name, version, enabled, module_dir, manifest)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version = excluded.version,
			enabled = excluded.enabled,
			module_dir = excluded.module_dir,
			manifest = excluded.manifest,
			updated_at = CURRENT_TIMESTAMP;`
	if _, err := r.exec.ExecContext(ctx, stmt,
		plugin.Name, plugin.Version, boolToInt(plugin.Enabled), plugin.ModuleDir, string(plugin.Manifest),
	); err != nil {
		return fmt.Errorf("sqlite: upsert plugin %s: %w", plugin.Name, err)
	}
	return nil
}

func (r *pluginRepository) List(ctx context.Context) ([]db.Plugin, error) {
	rows, err := r.exec.QueryContext(ctx, `SELECT `+pluginColumns+` FROM plugins ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list plugins: %w", err)
	}
	defer rows.Close()

	var out []db.Plugin
	for rows.Next() {
		plugin, err := scanPlugin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, plugin)
	}
	return out, rows.Err()
}

// GetByName returns nil, nil when no row matches.
func (r *pluginRepository) GetByName(ctx context.Context, name string) (*db.Plugin, error) {
	plugin, err := scanPlugin(r.exec.QueryRowContext(ctx, `SELECT `+pluginColumns+` FROM plugins WHERE name = ?;`, name))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &plugin, nil
}

func (r *pluginRepository) SetEnabled(ctx context.Context, name string, enabled bool) error {
	res, err := r.exec.ExecContext(ctx, `UPDATE plugins SET enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?;`, boolToInt(enabled), name)
	if err != nil {
		return fmt.Errorf("sqlite: toggle plugin %s: %w", name, err)
	}
	return expectRow(res, name)
}

func (r *pluginRepository) Delete(ctx context.Context, name string) error {
	res, err := r.exec.ExecContext(ctx, `DELETE FROM plugins WHERE name = ?;`, name)
	if err != nil {
		return fmt.Errorf("sqlite: delete plugin %s: %w", name, err)
	}
	return expectRow(res, name)
}

func expectRow(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", db.ErrPluginNotFound, name)
	}
	return nil
}

type reloadRepository struct {
	exec executor
}

var _ db.ReloadRepository = (*reloadRepository)(nil)

func (r *reloadRepository) Record(ctx context.Context, reload db.Reload) (int64, error) {
	at := reload.ReloadedAt
	if at.IsZero() {
		at = time.Now()
	}
	res, err := r.exec.ExecContext(ctx, `INSERT INTO route_reloads (route_count, plugins, reloaded_at) VALUES (?, ?, ?);`,
		reload.RouteCount, strings.Join(reload.Plugins, ","), at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: record reload: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: reload id: %w", err)
	}
	return id, nil
}

func (r *reloadRepository) Recent(ctx context.Context, limit int) ([]db.Reload, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.exec.QueryContext(ctx, `SELECT id, route_count, plugins, reloaded_at FROM route_reloads ORDER BY id DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list reloads: %w", err)
	}
	defer rows.Close()

	var result []db.Reload
	for rows.Next() {
		var (
			reload  db.Reload
			plugins string
			at      any
		)
		if err := rows.Scan(&reload.ID, &reload.RouteCount, &plugins, &at); err != nil {
			return nil, fmt.Errorf("sqlite: scan reload: %w", err)
		}
		if plugins != "" {
			reload.Plugins = strings.Split(plugins, ",")
		}
		reload.ReloadedAt, _ = parseTimeField(at)
		result = append(result, reload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate reloads: %w", err)
	}
	return result, nil
}

func scanPlugin(row rowScanner) (db.Plugin, error) {
	var (
		plugin             db.Plugin
		enabled            int64
		manifest           string
		installed, updated any
	)
	err := row.Scan(&plugin.ID, &plugin.Name, &plugin.Version, &enabled, &plugin.ModuleDir, &manifest, &installed, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Plugin{}, err
	}
	if err != nil {
		return db.Plugin{}, fmt.Errorf("sqlite: scan plugin: %w", err)
	}
	plugin.Enabled = enabled != 0
	if manifest != "" {
		plugin.Manifest = []byte(manifest)
	}
	plugin.InstalledAt, _ = parseTimeField(installed)
	plugin.UpdatedAt, _ = parseTimeField(updated)
	return plugin, nil
}

func parseTimeField(value any) (time.Time, error) {
	var raw string
	switch v := value.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("time field nil")
	case time.Time:
		return v.UTC(), nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", value)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time format: %q", raw)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
