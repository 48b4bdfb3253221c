package sqlite

import (
	"database/sql"
	"fmt"

	"blockcam/internal/model"
)

const captureColumns = `id, uuid, game, category, mode, filename, filepath, filesize, timestamp`

// CaptureRepository implements repository.CaptureRepository for SQLite.
type CaptureRepository struct {
	db *DB
}

// NewCaptureRepository creates a new SQLite capture repository.
func NewCaptureRepository(db *DB) *CaptureRepository {
	return &CaptureRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCapture(s rowScanner) (*model.Capture, error) {
	var c model.Capture
	if err := s.Scan(&c.ID, &c.UUID, &c.Game, &c.Category, &c.Mode, &c.Filename, &c.FilePath, &c.FileSize, &c.Timestamp); err != nil {
		return nil, err
	}
	return &c, nil
}

// Insert adds a new capture record to the database.
func (r *CaptureRepository) Insert(c *model.Capture) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO captures (uuid, game, category, mode, filename, filepath, filesize, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.UUID, c.Game, c.Category, c.Mode, c.Filename, c.FilePath, c.FileSize, c.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert capture: %w", err)
	}

	return result.LastInsertId()
}

// GetByUUID retrieves a capture by its public identifier.
func (r *CaptureRepository) GetByUUID(uuid string) (*model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	c, err := scanCapture(r.db.Conn().QueryRow(`SELECT `+captureColumns+` FROM captures WHERE uuid = ?`, uuid))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return c, nil
}

// GetByFilePath returns the newest capture of game stored at path.
func (r *CaptureRepository) GetByFilePath(game, path string) (*model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	c, err := scanCapture(r.db.Conn().QueryRow(`
		SELECT `+captureColumns+` FROM captures
		WHERE game = ? AND filepath = ?
		ORDER BY timestamp DESC, id DESC LIMIT 1
	`, game, path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture by path: %w", err)
	}
	return c, nil
}

// GetLatestByCategory returns the newest capture of a category.
func (r *CaptureRepository) GetLatestByCategory(game, category string) (*model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	c, err := scanCapture(r.db.Conn().QueryRow(`
		SELECT `+captureColumns+` FROM captures
		WHERE game = ? AND category = ?
		ORDER BY timestamp DESC, id DESC LIMIT 1
	`, game, category))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest capture: %w", err)
	}
	return c, nil
}

func whereFilter(filter *model.CaptureFilter) (string, []any) {
	where := " WHERE 1=1"
	args := []any{}
	if filter == nil {
		return where, args
	}

	if filter.Game != "" {
		where += " AND game = ?"
		args = append(args, filter.Game)
	}

	if filter.Category != "" {
		where += " AND category = ?"
		args = append(args, filter.Category)
	}

	if !filter.StartDate.IsZero() {
		where += " AND DATE(timestamp) >= DATE(?)"
		args = append(args, filter.StartDate)
	}

	if !filter.EndDate.IsZero() {
		where += " AND DATE(timestamp) <= DATE(?)"
		args = append(args, filter.EndDate)
	}

	return where, args
}

// GetAll retrieves captures based on filter criteria, newest first.
func (r *CaptureRepository) GetAll(filter *model.CaptureFilter) ([]model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereFilter(filter)
	query := `SELECT ` + captureColumns + ` FROM captures` + where + ` ORDER BY timestamp DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	var captures []model.Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		captures = append(captures, *c)
	}

	return captures, rows.Err()
}

// GetTotalCount returns the total count of captures matching the filter.
func (r *CaptureRepository) GetTotalCount(filter *model.CaptureFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereFilter(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM captures`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count captures: %w", err)
	}

	return count, nil
}

// GetStats returns statistics about stored captures.
func (r *CaptureRepository) GetStats() (*model.CaptureStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.CaptureStats{
		PerCategory: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*), COALESCE(SUM(filesize), 0) FROM captures`).Scan(&stats.TotalCaptures, &stats.TotalSizeBytes); err != nil {
		return nil, fmt.Errorf("failed to count captures: %w", err)
	}

	rows, err := r.db.Conn().Query(`SELECT category, COUNT(*) FROM captures GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to group captures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		stats.PerCategory[category] = count
	}

	return stats, rows.Err()
}

// Delete removes a capture and its detections.
func (r *CaptureRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE capture_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM captures WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete capture: %w", err)
	}
	return nil
}

// DeleteByCategory removes every capture of a category.
func (r *CaptureRepository) DeleteByCategory(game, category string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`
		DELETE FROM detections WHERE capture_id IN (SELECT id FROM captures WHERE game = ? AND category = ?)
	`, game, category); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM captures WHERE game = ? AND category = ?`, game, category); err != nil {
		return fmt.Errorf("failed to delete captures: %w", err)
	}
	return nil
}

// DeleteAll removes all captures and their detections.
func (r *CaptureRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections`); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM captures`); err != nil {
		return fmt.Errorf("failed to delete captures: %w", err)
	}

	return nil
}
