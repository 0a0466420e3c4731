package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"artfolio/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

type Storage struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

func NewStorage(dsn string) (*Storage, error) {
	const op = "storage.NewStorage"

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	return &Storage{pool: pool, db: db}, nil
}

func (s *Storage) Close() {
	s.db.Close()
	s.pool.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const paintingColumns = `p.id, p.name, p.price, p.medium, p.size, p.is_framed,
	 p.category_id, c.name, p.image_manifest, p.created_at, p.updated_at`

func scanPainting(row pgx.Row) (*models.Painting, error) {
	var (
		p        models.Painting
		catName  string
		manifest []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Medium, &p.Size, &p.IsFramed,
		&p.CategoryID, &catName, &manifest, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Category = &models.Category{ID: p.CategoryID, Name: catName}
	if len(manifest) > 0 {
		var m models.UploadManifest
		if err := json.Unmarshal(manifest, &m); err != nil {
			return nil, fmt.Errorf("decode image manifest: %v", err)
		}
		p.Image = &m
	}
	return &p, nil
}

// ListPaintings returns paintings newest first, optionally filtered by
// category.
func (s *Storage) ListPaintings(ctx context.Context, categoryID *int64) ([]*models.Painting, error) {
	const op = "storage.ListPaintings"

	query := `SELECT ` + paintingColumns + `
		FROM paintings p JOIN categories c ON c.id = p.category_id`
	args := []any{}
	if categoryID != nil {
		query += ` WHERE p.category_id = $1`
		args = append(args, *categoryID)
	}
	query += ` ORDER BY p.created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	defer rows.Close()

	paintings := []*models.Painting{}
	for rows.Next() {
		p, err := scanPainting(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", op, err)
		}
		paintings = append(paintings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	return paintings, nil
}

func (s *Storage) GetPainting(ctx context.Context, id int64) (*models.Painting, error) {
	const op = "storage.GetPainting"

	row := s.pool.QueryRow(ctx, `SELECT `+paintingColumns+`
		FROM paintings p JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1`, id)

	p, err := scanPainting(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	return p, nil
}

func (s *Storage) CreatePainting(ctx context.Context, p *models.Painting) error {
	const op = "storage.CreatePainting"

	manifest, err := marshalManifest(p.Image)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO paintings (name, price, medium, size, is_framed, category_id, image_manifest)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		p.Name, p.Price, p.Medium, p.Size, p.IsFramed, p.CategoryID, manifest).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	return nil
}

// UpdatePainting rewrites the painting's metadata. The manifest column is
// only touched when replaceImage is set, so metadata edits keep the stored
// renditions.
func (s *Storage) UpdatePainting(ctx context.Context, p *models.Painting, replaceImage bool) error {
	const op = "storage.UpdatePainting"

	var tag int64
	if replaceImage {
		manifest, err := marshalManifest(p.Image)
		if err != nil {
			return fmt.Errorf("%s: %v", op, err)
		}
		ct, err := s.pool.Exec(ctx,
			`UPDATE paintings SET name = $2, price = $3, medium = $4, size = $5,
			 is_framed = $6, category_id = $7, image_manifest = $8, updated_at = now()
			 WHERE id = $1`,
			p.ID, p.Name, p.Price, p.Medium, p.Size, p.IsFramed, p.CategoryID, manifest)
		if err != nil {
			return fmt.Errorf("%s: %v", op, err)
		}
		tag = ct.RowsAffected()
	} else {
		ct, err := s.pool.Exec(ctx,
			`UPDATE paintings SET name = $2, price = $3, medium = $4, size = $5,
			 is_framed = $6, category_id = $7, updated_at = now()
			 WHERE id = $1`,
			p.ID, p.Name, p.Price, p.Medium, p.Size, p.IsFramed, p.CategoryID)
		if err != nil {
			return fmt.Errorf("%s: %v", op, err)
		}
		tag = ct.RowsAffected()
	}
	if tag == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func (s *Storage) DeletePainting(ctx context.Context, id int64) error {
	const op = "storage.DeletePainting"

	ct, err := s.pool.Exec(ctx, `DELETE FROM paintings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func (s *Storage) ListCategories(ctx context.Context) ([]*models.Category, error) {
	const op = "storage.ListCategories"

	rows, err := s.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	defer rows.Close()

	categories := []*models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("%s: %v", op, err)
		}
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	return categories, nil
}

func (s *Storage) CreateCategory(ctx context.Context, c *models.Category) error {
	const op = "storage.CreateCategory"

	err := s.pool.QueryRow(ctx,
		`INSERT INTO categories (name) VALUES ($1) RETURNING id`, c.Name).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	return nil
}

func (s *Storage) UpdateCategory(ctx context.Context, c *models.Category) error {
	const op = "storage.UpdateCategory"

	ct, err := s.pool.Exec(ctx, `UPDATE categories SET name = $2 WHERE id = $1`, c.ID, c.Name)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func (s *Storage) DeleteCategory(ctx context.Context, id int64) error {
	const op = "storage.DeleteCategory"

	ct, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func marshalManifest(m *models.UploadManifest) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}
