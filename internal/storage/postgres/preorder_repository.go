package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const preorderColumns = `id, customer_name, customer_phone, delivery_date, notes, total_cents, status, version, created_at, updated_at`

type preorderRepository struct {
	db *sql.DB
}

// NewPreorderRepository создаёт PostgreSQL-реализацию PreorderRepository.
func NewPreorderRepository(store *Store) domain.PreorderRepository {
	return &preorderRepository{db: store.DB()}
}

func (r *preorderRepository) Create(ctx context.Context, preorder domain.Preorder) error {
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
		INSERT INTO preorders (`+preorderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		preorder.ID, preorder.CustomerName, preorder.CustomerPhone, preorder.DeliveryDate,
		preorder.Notes, int64(preorder.Total), string(preorder.Status), preorder.Version,
		preorder.CreatedAt, preorder.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrPreorderVersionConflict
			return err
		}
		return fmt.Errorf("insert preorder: %w", err)
	}

	for i, item := range preorder.Items {
		itemID := item.ID
		if itemID == "" {
			itemID = uuid.NewString()
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO preorder_items (
				id, preorder_id, position, product_id, product_name, quantity, unit_price_cents
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
			itemID, preorder.ID, i, item.ProductID, item.ProductName, item.Quantity, int64(item.UnitPrice),
		); err != nil {
			return fmt.Errorf("insert preorder item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create preorder: %w", err)
	}
	return nil
}

func (r *preorderRepository) FindByID(ctx context.Context, id string) (domain.Preorder, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	preorder, err := scanPreorder(r.db.QueryRowContext(ctx, `SELECT `+preorderColumns+` FROM preorders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Preorder{}, domain.ErrPreorderNotFound
		}
		return domain.Preorder{}, fmt.Errorf("select preorder: %w", err)
	}

	items, err := r.loadItems(ctx, preorder.ID)
	if err != nil {
		return domain.Preorder{}, err
	}
	preorder.Items = items
	return preorder, nil
}

func (r *preorderRepository) List(ctx context.Context, status domain.PreorderStatus, limit int) ([]domain.Preorder, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `SELECT ` + preorderColumns + ` FROM preorders`
	args := make([]any, 0, 2)
	if status != "" {
		args = append(args, string(status))
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += " ORDER BY delivery_date ASC, id ASC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list preorders: %w", err)
	}
	defer rows.Close()

	preorders := make([]domain.Preorder, 0)
	for rows.Next() {
		preorder, err := scanPreorder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preorder row: %w", err)
		}
		preorders = append(preorders, preorder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preorder rows: %w", err)
	}

	for i := range preorders {
		items, err := r.loadItems(ctx, preorders[i].ID)
		if err != nil {
			return nil, err
		}
		preorders[i].Items = items
	}
	return preorders, nil
}

func (r *preorderRepository) Save(ctx context.Context, preorder domain.Preorder) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE preorders
		SET status = $1,
		    notes = $2,
		    version = version + 1,
		    updated_at = $3
		WHERE id = $4
		  AND version = $5
	`,
		string(preorder.Status), preorder.Notes, preorder.UpdatedAt, preorder.ID, preorder.Version,
	)
	if err != nil {
		return fmt.Errorf("update preorder: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var found string
		err := r.db.QueryRowContext(ctx, `SELECT id FROM preorders WHERE id = $1`, preorder.ID).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrPreorderNotFound
		}
		if err != nil {
			return fmt.Errorf("check preorder exists: %w", err)
		}
		return domain.ErrPreorderVersionConflict
	}
	return nil
}

func (r *preorderRepository) loadItems(ctx context.Context, preorderID string) ([]domain.PreorderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, product_name, quantity, unit_price_cents
		FROM preorder_items
		WHERE preorder_id = $1
		ORDER BY position ASC
	`, preorderID)
	if err != nil {
		return nil, fmt.Errorf("load preorder items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.PreorderItem, 0)
	for rows.Next() {
		var (
			item      domain.PreorderItem
			unitPrice int64
		)
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &unitPrice); err != nil {
			return nil, fmt.Errorf("scan preorder item: %w", err)
		}
		item.UnitPrice = domain.Money(unitPrice)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preorder items: %w", err)
	}
	return items, nil
}

func scanPreorder(row rowScanner) (domain.Preorder, error) {
	var (
		preorder domain.Preorder
		status   string
		total    int64
	)
	if err := row.Scan(
		&preorder.ID, &preorder.CustomerName, &preorder.CustomerPhone, &preorder.DeliveryDate,
		&preorder.Notes, &total, &status, &preorder.Version, &preorder.CreatedAt, &preorder.UpdatedAt,
	); err != nil {
		return domain.Preorder{}, err
	}
	preorder.Status = domain.PreorderStatus(status)
	preorder.Total = domain.Money(total)
	return preorder, nil
}

var _ domain.PreorderRepository = (*preorderRepository)(nil)
