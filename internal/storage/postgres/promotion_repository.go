package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const promotionColumns = `id, name, active, kind, target_category, target_product_ids, priority,
	minimum_items, fixed_bundle_price_cents, discount_percent, free_items, created_at, updated_at`

type promotionRepository struct {
	db *sql.DB
}

// NewPromotionRepository создаёт PostgreSQL-реализацию PromotionRepository.
func NewPromotionRepository(store *Store) domain.PromotionRepository {
	return &promotionRepository{db: store.DB()}
}

func (r *promotionRepository) FindActive(ctx context.Context) ([]domain.Promotion, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+promotionColumns+`
		FROM promotions
		WHERE active
		ORDER BY priority ASC, created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("select active promotions: %w", err)
	}
	defer rows.Close()

	// pgtype.Map не потокобезопасен, поэтому создаётся на запрос.
	types := pgtype.NewMap()
	promotions := make([]domain.Promotion, 0)
	for rows.Next() {
		promotion, err := scanPromotion(rows, types)
		if err != nil {
			return nil, fmt.Errorf("scan promotion row: %w", err)
		}
		promotions = append(promotions, promotion)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotion rows: %w", err)
	}
	return promotions, nil
}

func (r *promotionRepository) FindByID(ctx context.Context, id string) (domain.Promotion, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE id = $1`, id)
	promotion, err := scanPromotion(row, pgtype.NewMap())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Promotion{}, domain.ErrPromotionNotFound
		}
		return domain.Promotion{}, fmt.Errorf("select promotion: %w", err)
	}
	return promotion, nil
}

func (r *promotionRepository) Save(ctx context.Context, promotion domain.Promotion) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	createdAt := promotion.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	targets := promotion.TargetProductIDs
	if targets == nil {
		targets = []string{}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO promotions (
			id, name, active, kind, target_category, target_product_ids, priority,
			minimum_items, fixed_bundle_price_cents, discount_percent, free_items,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    active = EXCLUDED.active,
		    kind = EXCLUDED.kind,
		    target_category = EXCLUDED.target_category,
		    target_product_ids = EXCLUDED.target_product_ids,
		    priority = EXCLUDED.priority,
		    minimum_items = EXCLUDED.minimum_items,
		    fixed_bundle_price_cents = EXCLUDED.fixed_bundle_price_cents,
		    discount_percent = EXCLUDED.discount_percent,
		    free_items = EXCLUDED.free_items,
		    updated_at = EXCLUDED.updated_at
	`,
		promotion.ID, promotion.Name, promotion.Active, string(promotion.Kind),
		promotion.TargetCategory, targets, promotion.Priority,
		promotion.MinimumItems, int64(promotion.FixedBundlePrice),
		promotion.DiscountPercent, promotion.FreeItems, createdAt, now,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
		}
		return fmt.Errorf("upsert promotion: %w", err)
	}
	return nil
}

func scanPromotion(row rowScanner, types *pgtype.Map) (domain.Promotion, error) {
	var (
		promotion   domain.Promotion
		kind        string
		targets     []string
		bundlePrice int64
	)
	if err := row.Scan(
		&promotion.ID, &promotion.Name, &promotion.Active, &kind,
		&promotion.TargetCategory, types.SQLScanner(&targets), &promotion.Priority,
		&promotion.MinimumItems, &bundlePrice, &promotion.DiscountPercent, &promotion.FreeItems,
		&promotion.CreatedAt, &promotion.UpdatedAt,
	); err != nil {
		return domain.Promotion{}, err
	}
	promotion.Kind = domain.PromotionKind(kind)
	promotion.FixedBundlePrice = domain.Money(bundlePrice)
	if len(targets) > 0 {
		promotion.TargetProductIDs = targets
	}
	return promotion, nil
}

var _ domain.PromotionRepository = (*promotionRepository)(nil)
