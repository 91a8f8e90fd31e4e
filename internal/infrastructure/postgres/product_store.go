package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/prodlens/backend/internal/domain"
)

// SourcePrefix marks records that were served from the product store
const SourcePrefix = "Postgres - "

const (
	productColumns = `product_name, msrp, image_url, description, match_confidence, source,
		exact_match, verification_notes, upc, brand, size, color`

	findByUPCQuery = `
		SELECT ` + productColumns + `
		FROM products.products
		WHERE upc = $1
	`

	upsertProductQuery = `
		INSERT INTO products.products (upc, brand, product_name, msrp, image_url, description,
			match_confidence, source, exact_match, verification_notes, size, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (upc) DO UPDATE SET
			brand = EXCLUDED.brand,
			product_name = EXCLUDED.product_name,
			msrp = EXCLUDED.msrp,
			image_url = EXCLUDED.image_url,
			description = EXCLUDED.description,
			match_confidence = EXCLUDED.match_confidence,
			source = EXCLUDED.source,
			exact_match = EXCLUDED.exact_match,
			verification_notes = EXCLUDED.verification_notes,
			size = EXCLUDED.size,
			color = EXCLUDED.color,
			updated_at = NOW()
		RETURNING ` + productColumns
)

// ProductStore persists resolved products in Postgres
type ProductStore struct {
	db *sql.DB
}

var _ domain.ProductStore = (*ProductStore)(nil)

// NewProductStore creates a new product store
func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

// FindByUPC returns the stored product for upc or domain.ErrNotFound
func (s *ProductStore) FindByUPC(ctx context.Context, upc string) (*domain.ProductRecord, error) {
	row := s.db.QueryRowContext(ctx, findByUPCQuery, upc)

	record, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product by upc: %w", err)
	}

	return record, nil
}

// Upsert inserts or replaces the product keyed by its UPC and returns the stored row
func (s *ProductStore) Upsert(ctx context.Context, record *domain.ProductRecord) (*domain.ProductRecord, error) {
	if record == nil || record.UPC == nil || *record.UPC == "" {
		return nil, fmt.Errorf("upsert product: %w: upc is required", domain.ErrInvalidRequest)
	}

	images := record.ImageURL
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("upsert product: marshal images: %w", err)
	}

	source := record.Source
	if !strings.HasPrefix(source, SourcePrefix) {
		source = SourcePrefix + source
	}

	row := s.db.QueryRowContext(ctx, upsertProductQuery,
		*record.UPC,
		nullString(record.Brand),
		record.ProductName,
		nullString(record.MSRP),
		string(imagesJSON),
		nullString(record.Description),
		record.MatchConfidence,
		source,
		record.ExactMatch,
		nullString(record.VerificationNotes),
		nullString(record.Size),
		nullString(record.Color),
	)

	stored, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("upsert product: %w", err)
	}

	return stored, nil
}

func scanProduct(row *sql.Row) (*domain.ProductRecord, error) {
	var (
		record     domain.ProductRecord
		msrp       sql.NullString
		imagesJSON []byte
		desc       sql.NullString
		confidence sql.NullInt64
		source     sql.NullString
		notes      sql.NullString
		upc        sql.NullString
		brand      sql.NullString
		size       sql.NullString
		color      sql.NullString
	)

	if err := row.Scan(&record.ProductName, &msrp, &imagesJSON, &desc, &confidence, &source,
		&record.ExactMatch, &notes, &upc, &brand, &size, &color); err != nil {
		return nil, err
	}

	record.ImageURL = []string{}
	if len(imagesJSON) > 0 {
		if err := json.Unmarshal(imagesJSON, &record.ImageURL); err != nil {
			return nil, fmt.Errorf("decode image_url: %w", err)
		}
		if record.ImageURL == nil {
			record.ImageURL = []string{}
		}
	}

	if confidence.Valid {
		record.MatchConfidence = clampConfidence(confidence.Int64)
	}
	record.Source = source.String
	record.MSRP = stringPtr(msrp)
	record.Description = stringPtr(desc)
	record.VerificationNotes = stringPtr(notes)
	record.UPC = stringPtr(upc)
	record.Brand = stringPtr(brand)
	record.Size = stringPtr(size)
	record.Color = stringPtr(color)

	return &record, nil
}

func clampConfidence(v int64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return int(v)
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return domain.StringPtr(ns.String)
}
