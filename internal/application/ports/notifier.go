// Package ports - NotificationSink и AccessProvisioner для побочных
// эффектов успешной оплаты.
//
// Уведомления и выдача доступа выполняются ПОСЛЕ commit'а перехода
// PENDING -> PAID и только победителем CAS-гонки. Ошибки здесь
// логируются, но не откатывают оплату.
package ports

import (
	"context"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
)

// SaleNotification - данные для уведомлений о состоявшейся продаже.
type SaleNotification struct {
	Order   *entities.Order
	Product *entities.Product
	Tipster *entities.TipsterProfile
}

// NotificationSink определяет контракт для уведомлений о продаже.
//
// Единый fan-out для всех путей reconciliation: покупатель получает
// подтверждение, типстер - уведомление о продаже. Best-effort.
type NotificationSink interface {
	// NotifySale отправляет уведомления обеим сторонам сделки.
	// Частичная ошибка (дошло покупателю, не дошло типстеру)
	// не считается ошибкой вызова - детали пишутся в лог.
	NotifySale(ctx context.Context, n SaleNotification) error
}

// AccessProvisioner выдаёт покупателю доступ к оплаченному продукту.
type AccessProvisioner interface {
	// GrantAccess создаёт одноразовую ссылку-приглашение в канал
	// продукта и доставляет её покупателю. Возвращает ссылку.
	GrantAccess(ctx context.Context, order *entities.Order, product *entities.Product) (inviteLink string, err error)
}
