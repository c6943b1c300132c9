package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/najdeno/internal/model"
)

// View selects which items a listing returns.
type View string

const (
	// ViewPublic returns items visible to visitors (available and claimed).
	ViewPublic View = "public"
	// ViewAdmin returns every item regardless of status.
	ViewAdmin View = "admin"
)

// ItemParams holds the caller-supplied fields for a new item.
type ItemParams struct {
	Name          string
	Description   string
	DateFound     string
	Location      string
	ImageFilename string
}

const itemColumns = `id, name, description, date_found, location, status, image_filename, created_at`

// CreateItem inserts a new item and returns it. Status is always 'available'
// on creation; date_found falls back to today when empty. The insert runs in
// its own transaction so a failure leaves nothing behind.
func CreateItem(ctx context.Context, db *sql.DB, p ItemParams) (*model.Item, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, fmt.Errorf("item name is required: %w", ErrValidation)
	}

	dateFound := p.DateFound
	if dateFound == "" {
		dateFound = model.Today()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO items (name, description, date_found, location, status, image_filename)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		name, p.Description, dateFound, p.Location, model.ItemStatusAvailable, nullable(p.ImageFilename),
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, or ErrNotFound.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns items ordered newest found first (date_found, then id,
// both descending). ViewPublic hides nothing today beyond unknown statuses,
// but tolerates rows written before the status column existed.
func ListItems(ctx context.Context, db *sql.DB, view View) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	if view != ViewAdmin {
		query += ` WHERE status IN ('available', 'claimed') OR status IS NULL OR status = ''`
	}
	query += ` ORDER BY date_found DESC, id DESC`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// SetItemStatus updates an item's status. The returned bool reports whether a
// row matched: false means the item does not exist. Setting the status an item
// already has still counts as matched.
func SetItemStatus(ctx context.Context, db *sql.DB, id int64, status string) (bool, error) {
	if !model.ValidStatus(status) {
		return false, fmt.Errorf("invalid status %q: %w", status, ErrValidation)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items SET status = ? WHERE id = ?`, status, id,
	)
	if err != nil {
		return false, fmt.Errorf("setting item status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking affected rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteItem removes an item and returns the image filename the row referenced
// (empty if none) so the caller can remove the stored artifact afterwards.
// Returns ErrNotFound when no such item exists.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) (string, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var filename sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT image_filename FROM items WHERE id = ?`, id,
	).Scan(&filename)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting item image: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("deleting item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing delete: %w", err)
	}

	return filename.String, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var description, dateFound, location, imageFilename sql.NullString
	err := row.Scan(&item.ID, &item.Name, &description, &dateFound, &location,
		&item.Status, &imageFilename, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.DateFound = dateFound.String
	item.Location = location.String
	item.ImageFilename = imageFilename.String
	return item, nil
}

// nullable maps "" to NULL so optional columns stay NULL instead of empty.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
