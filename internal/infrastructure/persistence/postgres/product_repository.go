// Package postgres - ProductRepository implementation.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
	domainErrors "github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/valueobjects"
)

// Compile-time check
var _ ports.ProductRepository = (*ProductRepository)(nil)

// ProductRepository реализует ports.ProductRepository.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository создаёт новый ProductRepository.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const productColumns = `
	id, tipster_id, title, description, kind,
	price_cents, currency, channel_id, active,
	created_at, updated_at
`

// Save сохраняет продукт (INSERT или UPDATE).
func (r *ProductRepository) Save(ctx context.Context, product *entities.Product) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			kind = EXCLUDED.kind,
			price_cents = EXCLUDED.price_cents,
			currency = EXCLUDED.currency,
			channel_id = EXCLUDED.channel_id,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := q.Exec(ctx, query,
		product.ID(),
		product.TipsterID(),
		product.Title(),
		product.Description(),
		string(product.Kind()),
		product.Price().Cents(),
		product.Price().Currency().Code(),
		nullIfEmpty(product.ChannelID()),
		product.IsActive(),
		product.CreatedAt(),
		product.UpdatedAt(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domainErrors.NewDomainError("TIPSTER_NOT_FOUND", "product references unknown tipster", err)
		}
		return fmt.Errorf("failed to save product: %w", err)
	}

	return nil
}

// FindByID загружает продукт по ID.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*entities.Product, error) {
	q := r.getQuerier(ctx)

	row := q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return product, nil
}

// FindByTipster возвращает продукты типстера.
func (r *ProductRepository) FindByTipster(ctx context.Context, tipsterID string, activeOnly bool) ([]*entities.Product, error) {
	q := r.getQuerier(ctx)

	query := `SELECT ` + productColumns + ` FROM products WHERE tipster_id = $1`
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := q.Query(ctx, query, tipsterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*entities.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// scanProduct сканирует строку в domain entity Product.
func scanProduct(scanner interface{ Scan(dest ...any) error }) (*entities.Product, error) {
	var (
		id, tipsterID        string
		title, description   string
		kind                 string
		priceCents           int64
		currencyCode         string
		channelID            *string
		active               bool
		createdAt, updatedAt time.Time
	)

	err := scanner.Scan(
		&id, &tipsterID, &title, &description, &kind,
		&priceCents, &currencyCode, &channelID, &active,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	currency, err := valueobjects.NewCurrency(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("stored product has invalid currency %q: %w", currencyCode, err)
	}
	price, err := valueobjects.NewMoneyFromCents(priceCents, currency)
	if err != nil {
		return nil, fmt.Errorf("stored product has invalid price: %w", err)
	}

	return entities.ReconstructProduct(
		id, tipsterID, title, description,
		entities.ProductKind(kind),
		price,
		deref(channelID),
		active,
		createdAt, updatedAt,
	), nil
}
