// Package postgres - TipsterRepository implementation.
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
)

// Compile-time check
var _ ports.TipsterRepository = (*TipsterRepository)(nil)

// TipsterRepository реализует ports.TipsterRepository.
type TipsterRepository struct {
	pool *pgxpool.Pool
}

// NewTipsterRepository создаёт новый TipsterRepository.
func NewTipsterRepository(pool *pgxpool.Pool) *TipsterRepository {
	return &TipsterRepository{pool: pool}
}

func (r *TipsterRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const tipsterColumns = `
	id, display_name, telegram_user_id,
	commission_basis_pts, notifications_active,
	created_at, updated_at
`

// Save сохраняет профиль типстера (INSERT или UPDATE).
func (r *TipsterRepository) Save(ctx context.Context, profile *entities.TipsterProfile) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO tipster_profiles (` + tipsterColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			telegram_user_id = EXCLUDED.telegram_user_id,
			commission_basis_pts = EXCLUDED.commission_basis_pts,
			notifications_active = EXCLUDED.notifications_active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := q.Exec(ctx, query,
		profile.ID(),
		profile.DisplayName(),
		nullIfEmpty(profile.TelegramUserID()),
		profile.CommissionBasisPts(),
		profile.NotificationsActive(),
		profile.CreatedAt(),
		profile.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err, "tipster_profiles_telegram_user_id") {
			return domainErrors.NewBusinessRuleViolation(
				"TELEGRAM_ID_TAKEN",
				"telegram identity already linked to another tipster",
				map[string]interface{}{"telegramUserId": profile.TelegramUserID()},
			)
		}
		return fmt.Errorf("failed to save tipster profile: %w", err)
	}

	return nil
}

// FindByID загружает профиль по ID.
func (r *TipsterRepository) FindByID(ctx context.Context, id string) (*entities.TipsterProfile, error) {
	q := r.getQuerier(ctx)

	row := q.QueryRow(ctx, `SELECT `+tipsterColumns+` FROM tipster_profiles WHERE id = $1`, id)
	profile, err := scanTipster(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to find tipster profile: %w", err)
	}
	return profile, nil
}

// FindByTelegramUserID находит профиль по Telegram-идентификатору.
func (r *TipsterRepository) FindByTelegramUserID(ctx context.Context, telegramUserID string) (*entities.TipsterProfile, error) {
	q := r.getQuerier(ctx)

	row := q.QueryRow(ctx, `SELECT `+tipsterColumns+` FROM tipster_profiles WHERE telegram_user_id = $1`, telegramUserID)
	profile, err := scanTipster(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to find tipster by telegram id: %w", err)
	}
	return profile, nil
}

// scanTipster сканирует строку в domain entity TipsterProfile.
func scanTipster(scanner interface{ Scan(dest ...any) error }) (*entities.TipsterProfile, error) {
	var (
		id, displayName      string
		telegramUserID       *string
		commissionBasisPts   int64
		notificationsActive  bool
		createdAt, updatedAt time.Time
	)

	err := scanner.Scan(
		&id, &displayName, &telegramUserID,
		&commissionBasisPts, &notificationsActive,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	return entities.ReconstructTipsterProfile(
		id, displayName, deref(telegramUserID),
		commissionBasisPts, notificationsActive,
		createdAt, updatedAt,
	), nil
}
