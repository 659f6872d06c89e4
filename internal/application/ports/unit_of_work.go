// Package ports - UnitOfWork паттерн для управления транзакциями.
//
// SOLID Principles:
// - SRP: UnitOfWork отвечает только за границы транзакций
// - DIP: Application не знает о деталях БД транзакций
//
// Pattern: Unit of Work
// - Обеспечивает атомарность операций
// - Один UnitOfWork = одна БД-транзакция
// - Автоматический rollback при ошибке
package ports

import "context"

// UnitOfWork определяет контракт для управления транзакциями.
//
// Ключевой сценарий для checkout: условный переход статуса заказа и
// запись события в outbox должны попасть в одну транзакцию. Иначе при
// падении между ними уведомление о продаже потеряется или задвоится.
//
// Пример использования:
//   err := uow.Execute(ctx, func(txCtx context.Context) error {
//       won, err := orderRepo.MarkPaidIfPending(txCtx, order)
//       if err != nil || !won {
//           return err
//       }
//       return outbox.Save(txCtx, events.NewOrderPaid(...))
//   })
//   // Если любая операция вернёт error - automatic rollback
type UnitOfWork interface {
	// Execute выполняет функцию внутри транзакции.
	//
	// Поведение:
	// - Начинает транзакцию
	// - Выполняет fn
	// - Если fn возвращает error: ROLLBACK
	// - Если fn возвращает nil: COMMIT
	//
	// Переданный context содержит транзакцию.
	// Все операции внутри fn должны использовать этот context!
	Execute(ctx context.Context, fn func(context.Context) error) error

	// ExecuteWithResult аналогичен Execute, но возвращает результат.
	// Полезно когда нужно вернуть созданную entity.
	ExecuteWithResult(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error)
}
