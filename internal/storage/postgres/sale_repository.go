package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository создаёт PostgreSQL-реализацию SaleRepository.
func NewSaleRepository(store *Store) domain.SaleRepository {
	return &saleRepository{db: store.DB()}
}

// Create сохраняет шапку и позиции в одной транзакции: продажа без позиций не видна никому.
func (r *saleRepository) Create(ctx context.Context, sale domain.Sale) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, status, total_cents, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`,
		sale.ID, string(sale.Status), int64(sale.Total), sale.Version, sale.CreatedAt, sale.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrSaleAlreadyExists
			return err
		}
		return fmt.Errorf("insert sale: %w", err)
	}

	for i, line := range sale.Lines {
		lineID := line.ID
		if lineID == "" {
			lineID = uuid.NewString()
		}
		var productID sql.NullString
		if line.ProductID != "" {
			productID = sql.NullString{String: line.ProductID, Valid: true}
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO sale_lines (
				id, sale_id, position, product_id, product_name, quantity,
				unit_price_cents, total_paid_cents, promotion_id
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`,
			lineID, sale.ID, i, productID, line.ProductName, line.Quantity,
			int64(line.UnitPrice), int64(line.TotalPaid), line.PromotionID,
		); err != nil {
			return fmt.Errorf("insert sale line: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create sale: %w", err)
	}
	return nil
}

func (r *saleRepository) FindByID(ctx context.Context, id string) (domain.Sale, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	sale, err := scanSale(r.db.QueryRowContext(ctx, `
		SELECT id, status, total_cents, version, created_at, updated_at
		FROM sales
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Sale{}, domain.ErrSaleNotFound
		}
		return domain.Sale{}, fmt.Errorf("select sale: %w", err)
	}

	lines, err := r.loadLines(ctx, sale.ID)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.Lines = lines
	return sale, nil
}

func (r *saleRepository) Save(ctx context.Context, sale domain.Sale) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE sales
		SET status = $1,
		    version = version + 1,
		    updated_at = $2
		WHERE id = $3
		  AND version = $4
	`,
		string(sale.Status), sale.UpdatedAt, sale.ID, sale.Version,
	)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.exists(ctx, sale.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrSaleNotFound
		}
		return domain.ErrSaleVersionConflict
	}
	return nil
}

// Delete удаляет продажу; позиции удаляются каскадно.
func (r *saleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrSaleNotFound
	}
	return nil
}

func (r *saleRepository) List(ctx context.Context, limit int) ([]domain.Sale, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT id, status, total_cents, version, created_at, updated_at
		FROM sales
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $1", limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale row: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale rows: %w", err)
	}

	for i := range sales {
		lines, err := r.loadLines(ctx, sales[i].ID)
		if err != nil {
			return nil, err
		}
		sales[i].Lines = lines
	}
	return sales, nil
}

func (r *saleRepository) loadLines(ctx context.Context, saleID string) ([]domain.SaleLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, product_name, quantity, unit_price_cents, total_paid_cents, promotion_id
		FROM sale_lines
		WHERE sale_id = $1
		ORDER BY position ASC
	`, saleID)
	if err != nil {
		return nil, fmt.Errorf("load sale lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.SaleLine, 0)
	for rows.Next() {
		var (
			line            domain.SaleLine
			productID       sql.NullString
			unitPrice, paid int64
		)
		if err := rows.Scan(&line.ID, &productID, &line.ProductName, &line.Quantity, &unitPrice, &paid, &line.PromotionID); err != nil {
			return nil, fmt.Errorf("scan sale line: %w", err)
		}
		line.ProductID = productID.String
		line.UnitPrice = domain.Money(unitPrice)
		line.TotalPaid = domain.Money(paid)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale lines: %w", err)
	}
	return lines, nil
}

func (r *saleRepository) exists(ctx context.Context, id string) (bool, error) {
	var found string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM sales WHERE id = $1`, id).Scan(&found)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check sale exists: %w", err)
}

func scanSale(row rowScanner) (domain.Sale, error) {
	var (
		sale   domain.Sale
		status string
		total  int64
	)
	if err := row.Scan(&sale.ID, &status, &total, &sale.Version, &sale.CreatedAt, &sale.UpdatedAt); err != nil {
		return domain.Sale{}, err
	}
	sale.Status = domain.SaleStatus(status)
	sale.Total = domain.Money(total)
	return sale, nil
}

var _ domain.SaleRepository = (*saleRepository)(nil)
