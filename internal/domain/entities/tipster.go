package entities

import (
	"time"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
)

// TipsterProfile is a seller on the marketplace. It carries the commission
// agreement and the Telegram identity used for sale notifications.
type TipsterProfile struct {
	id                  string
	displayName         string
	telegramUserID      string
	commissionBasisPts  int64 // platform cut, in basis points of the sale amount
	notificationsActive bool
	createdAt           time.Time
	updatedAt           time.Time
}

const defaultCommissionBasisPts = 1000 // 10%

// NewTipsterProfile creates a profile with the platform default commission.
func NewTipsterProfile(displayName, telegramUserID string) (*TipsterProfile, error) {
	if displayName == "" {
		return nil, errors.ValidationError{Field: "displayName", Message: "display name is required"}
	}

	now := time.Now()
	return &TipsterProfile{
		id:                  NewOrderID(),
		displayName:         displayName,
		telegramUserID:      telegramUserID,
		commissionBasisPts:  defaultCommissionBasisPts,
		notificationsActive: telegramUserID != "",
		createdAt:           now,
		updatedAt:           now,
	}, nil
}

// ReconstructTipsterProfile rebuilds a TipsterProfile from stored data.
func ReconstructTipsterProfile(
	id, displayName, telegramUserID string,
	commissionBasisPts int64,
	notificationsActive bool,
	createdAt, updatedAt time.Time,
) *TipsterProfile {
	return &TipsterProfile{
		id:                  id,
		displayName:         displayName,
		telegramUserID:      telegramUserID,
		commissionBasisPts:  commissionBasisPts,
		notificationsActive: notificationsActive,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
	}
}

func (t *TipsterProfile) ID() string {
	return t.id
}

func (t *TipsterProfile) DisplayName() string {
	return t.displayName
}

func (t *TipsterProfile) TelegramUserID() string {
	return t.telegramUserID
}

func (t *TipsterProfile) CommissionBasisPts() int64 {
	return t.commissionBasisPts
}

// NotificationsActive reports whether sale alerts should be delivered.
func (t *TipsterProfile) NotificationsActive() bool {
	return t.notificationsActive && t.telegramUserID != ""
}

func (t *TipsterProfile) CreatedAt() time.Time {
	return t.createdAt
}

func (t *TipsterProfile) UpdatedAt() time.Time {
	return t.updatedAt
}

// SetCommission updates the commission agreement.
func (t *TipsterProfile) SetCommission(basisPts int64) error {
	if basisPts < 0 || basisPts > 10000 {
		return errors.ValidationError{Field: "commissionBasisPts", Message: "commission must be between 0 and 10000 basis points"}
	}
	t.commissionBasisPts = basisPts
	t.updatedAt = time.Now()
	return nil
}

// MuteNotifications disables sale alerts without touching the Telegram link.
func (t *TipsterProfile) MuteNotifications() {
	t.notificationsActive = false
	t.updatedAt = time.Now()
}
