package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

const productColumns = `id, name, category, stock_quantity, cost_price_cents, sale_price_cents, active, version, created_at, updated_at`

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
// Остаток списывается одним условным UPDATE, поэтому конкурирующие продажи
// не уводят stock_quantity в минус.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	product, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("select products by ids: %w", err)
	}
	defer rows.Close()

	found := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		found[product.ID] = product
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	// Порядок результата повторяет порядок запрошенных ID.
	result := make([]domain.Product, 0, len(found))
	for _, id := range ids {
		if product, ok := found[id]; ok {
			result = append(result, product)
			delete(found, id)
		}
	}
	return result, nil
}

func (r *productRepository) List(ctx context.Context, activeOnly bool) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func (r *productRepository) Save(ctx context.Context, product domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	createdAt := product.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, category, stock_quantity, cost_price_cents, sale_price_cents,
			active, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8,$9)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    category = EXCLUDED.category,
		    stock_quantity = EXCLUDED.stock_quantity,
		    cost_price_cents = EXCLUDED.cost_price_cents,
		    sale_price_cents = EXCLUDED.sale_price_cents,
		    active = EXCLUDED.active,
		    version = products.version + 1,
		    updated_at = EXCLUDED.updated_at
		WHERE products.version = $10
	`,
		product.ID, product.Name, product.Category, product.StockQuantity,
		int64(product.CostPrice), int64(product.SalePrice), product.Active, createdAt, now,
		product.Version,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
		}
		return fmt.Errorf("upsert product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	// Строка есть, но её версия ушла вперёд (например, списание остатка).
	if affected == 0 {
		return domain.ErrProductVersionConflict
	}
	return nil
}

func (r *productRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $2,
		    version = version + 1,
		    updated_at = $3
		WHERE id = $1
		  AND stock_quantity >= $2
	`, id, qty, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Строка не обновилась: либо товара нет, либо остатка не хватило.
	product, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return &domain.InsufficientStockError{
		ProductID:   product.ID,
		ProductName: product.Name,
		Available:   product.StockQuantity,
		Requested:   qty,
	}
}

func (r *productRepository) IncrementStock(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $2,
		    version = version + 1,
		    updated_at = $3
		WHERE id = $1
	`, id, qty, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		product         domain.Product
		cost, salePrice int64
	)
	if err := row.Scan(
		&product.ID, &product.Name, &product.Category, &product.StockQuantity,
		&cost, &salePrice, &product.Active, &product.Version,
		&product.CreatedAt, &product.UpdatedAt,
	); err != nil {
		return domain.Product{}, err
	}
	product.CostPrice = domain.Money(cost)
	product.SalePrice = domain.Money(salePrice)
	return product, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514"
	}
	return false
}

var _ domain.ProductRepository = (*productRepository)(nil)
