// Package entities - Order represents a purchase attempt in the marketplace.
// This is the central entity of the checkout flow, with a strict forward-only
// state machine reconciled against the payment gateway.
package entities

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/valueobjects"
)

// PaymentProvider identifies which gateway handled an order.
type PaymentProvider string

const (
	PaymentProviderStripe          PaymentProvider = "stripe"
	PaymentProviderRedsys          PaymentProvider = "redsys"
	PaymentProviderStripeSimulated PaymentProvider = "stripe_simulated"
	PaymentProviderTestSimulated   PaymentProvider = "test_simulated"
)

// IsValid checks if the payment provider is known.
func (p PaymentProvider) IsValid() bool {
	switch p {
	case PaymentProviderStripe, PaymentProviderRedsys,
		PaymentProviderStripeSimulated, PaymentProviderTestSimulated:
		return true
	default:
		return false
	}
}

// OrderStatus represents the current state of an order.
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "PENDING"        // Created, awaiting gateway outcome
	OrderStatusPaid          OrderStatus = "PAID"           // Gateway confirmed payment
	OrderStatusExpired       OrderStatus = "EXPIRED"        // Gateway session timed out or was cancelled
	OrderStatusAccessGranted OrderStatus = "ACCESS_GRANTED" // Buyer entitlement provisioned after PAID
)

// IsValid checks if the order status is valid.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusExpired, OrderStatusAccessGranted:
		return true
	default:
		return false
	}
}

// IsFinal returns true for terminal-failure states.
// PAID is terminal for payment but still advances to ACCESS_GRANTED.
func (s OrderStatus) IsFinal() bool {
	return s == OrderStatusExpired || s == OrderStatusAccessGranted
}

// IsPaidOrLater returns true once the gateway outcome is success, regardless of
// whether downstream access provisioning happened yet.
func (s OrderStatus) IsPaidOrLater() bool {
	return s == OrderStatusPaid || s == OrderStatusAccessGranted
}

// rank orders statuses along the only legal path. Reconciliation paths race on
// the same order, so every transition method checks rank before writing.
func (s OrderStatus) rank() int {
	switch s {
	case OrderStatusPending:
		return 0
	case OrderStatusPaid:
		return 1
	case OrderStatusAccessGranted:
		return 2
	case OrderStatusExpired:
		return 1 // terminal branch, same distance from PENDING as PAID
	default:
		return -1
	}
}

// BuyerContact is the contact snapshot taken at order creation.
// The buyer may be an anonymous guest, so every field is optional.
type BuyerContact struct {
	Email            string
	Phone            string
	TelegramUserID   string
	TelegramUsername string
}

// HasTelegram reports whether the buyer arrived through the messaging bot.
func (b BuyerContact) HasTelegram() bool {
	return b.TelegramUserID != ""
}

// Order represents a purchase attempt tying a buyer to a product at a
// snapshotted price.
//
// Entity Pattern:
// - Has identity (generated, time-sortable ID)
// - Strict state machine (status only moves forward)
// - Amount and currency are immutable after creation
//
// Orders are never deleted - they are the audit trail of every purchase
// attempt, successful or not.
type Order struct {
	id        string
	productID string
	tipsterID string

	amount valueobjects.Money // snapshot of the product price, immutable
	buyer  BuyerContact
	guest  bool

	status            OrderStatus
	provider          PaymentProvider
	providerSessionID string // gateway's own reference (Stripe session id / Redsys order number)
	paymentMethod     string

	notified bool // on-paid fan-out already performed

	paidAt    *time.Time
	createdAt time.Time
	updatedAt time.Time
}

// NewOrder creates a new pending order with the product price snapshotted in.
// The snapshot is the invariant that protects already-created orders from
// later product price edits.
func NewOrder(productID, tipsterID string, amount valueobjects.Money, buyer BuyerContact, guest bool) (*Order, error) {
	if productID == "" {
		return nil, errors.ValidationError{Field: "productId", Message: "product id is required"}
	}
	if tipsterID == "" {
		return nil, errors.ValidationError{Field: "tipsterId", Message: "tipster id is required"}
	}
	if !amount.IsPositive() {
		return nil, errors.NewBusinessRuleViolation(
			"INVALID_AMOUNT",
			"order amount must be positive",
			map[string]interface{}{"amount": amount.String()},
		)
	}

	now := time.Now()
	return &Order{
		id:        NewOrderID(),
		productID: productID,
		tipsterID: tipsterID,
		amount:    amount,
		buyer:     buyer,
		guest:     guest,
		status:    OrderStatusPending,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructOrder rebuilds an Order from stored data.
func ReconstructOrder(
	id, productID, tipsterID string,
	amount valueobjects.Money,
	buyer BuyerContact,
	guest bool,
	status OrderStatus,
	provider PaymentProvider,
	providerSessionID, paymentMethod string,
	notified bool,
	paidAt *time.Time,
	createdAt, updatedAt time.Time,
) (*Order, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", errors.ErrInvalidOrderStatus, status)
	}

	return &Order{
		id:                id,
		productID:         productID,
		tipsterID:         tipsterID,
		amount:            amount,
		buyer:             buyer,
		guest:             guest,
		status:            status,
		provider:          provider,
		providerSessionID: providerSessionID,
		paymentMethod:     paymentMethod,
		notified:          notified,
		paidAt:            paidAt,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}, nil
}

// Getters

func (o *Order) ID() string {
	return o.id
}

func (o *Order) ProductID() string {
	return o.productID
}

func (o *Order) TipsterID() string {
	return o.tipsterID
}

func (o *Order) Amount() valueobjects.Money {
	return o.amount
}

func (o *Order) Buyer() BuyerContact {
	return o.buyer
}

func (o *Order) IsGuest() bool {
	return o.guest
}

func (o *Order) Status() OrderStatus {
	return o.status
}

func (o *Order) Provider() PaymentProvider {
	return o.provider
}

func (o *Order) ProviderSessionID() string {
	return o.providerSessionID
}

func (o *Order) PaymentMethod() string {
	return o.paymentMethod
}

func (o *Order) Notified() bool {
	return o.notified
}

func (o *Order) PaidAt() *time.Time {
	return o.paidAt
}

func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

func (o *Order) UpdatedAt() time.Time {
	return o.updatedAt
}

// Business Methods

// IsPending returns true if the gateway outcome is still unknown.
func (o *Order) IsPending() bool {
	return o.status == OrderStatusPending
}

// IsPaid returns true once the gateway confirmed payment.
func (o *Order) IsPaid() bool {
	return o.status.IsPaidOrLater()
}

// AttachSession records the gateway's session reference after session creation.
// Allowed only while the order is pending; a paid order's provider reference
// never changes.
func (o *Order) AttachSession(provider PaymentProvider, sessionID string) error {
	if !provider.IsValid() {
		return errors.ErrInvalidPaymentProvider
	}
	if !o.IsPending() {
		return errors.ErrOrderNotPending
	}

	o.provider = provider
	o.providerSessionID = sessionID
	o.updatedAt = time.Now()
	return nil
}

// State Machine Transitions
//
// All reconciliation entry points (webhook, verify-on-return, manual complete,
// simulate) converge on MarkPaid/MarkExpired. The repository layer enforces
// the same rule with a conditional update; these methods are the in-memory
// mirror of that rule.

// MarkPaid transitions PENDING -> PAID and stamps the payment details.
// Calling it on an already-paid order returns ErrOrderAlreadyPaid, which
// reconciliation paths treat as a benign no-op.
func (o *Order) MarkPaid(provider PaymentProvider, sessionID, method string) error {
	if o.status.IsPaidOrLater() {
		return errors.ErrOrderAlreadyPaid
	}
	if o.status != OrderStatusPending {
		return errors.NewBusinessRuleViolation(
			"FORWARD_ONLY_STATUS",
			fmt.Sprintf("cannot pay order in status %s", o.status),
			map[string]interface{}{"currentStatus": o.status},
		)
	}
	if !provider.IsValid() {
		return errors.ErrInvalidPaymentProvider
	}

	now := time.Now()
	o.status = OrderStatusPaid
	o.provider = provider
	if sessionID != "" {
		o.providerSessionID = sessionID
	}
	o.paymentMethod = method
	o.paidAt = &now
	o.updatedAt = now
	return nil
}

// MarkExpired transitions PENDING -> EXPIRED.
// Expiry reported for an already-paid order is ignored upstream; here it is a
// hard rule violation because it would move status backwards.
func (o *Order) MarkExpired() error {
	if o.status == OrderStatusExpired {
		return nil // idempotent
	}
	if o.status != OrderStatusPending {
		return errors.NewBusinessRuleViolation(
			"FORWARD_ONLY_STATUS",
			fmt.Sprintf("cannot expire order in status %s", o.status),
			map[string]interface{}{"currentStatus": o.status},
		)
	}

	o.status = OrderStatusExpired
	o.updatedAt = time.Now()
	return nil
}

// GrantAccess transitions PAID -> ACCESS_GRANTED after the buyer's channel
// entitlement has been provisioned. Orthogonal to payment reconciliation.
func (o *Order) GrantAccess() error {
	if o.status == OrderStatusAccessGranted {
		return nil // idempotent
	}
	if o.status != OrderStatusPaid {
		return errors.ErrOrderNotPaid
	}

	o.status = OrderStatusAccessGranted
	o.updatedAt = time.Now()
	return nil
}

// MarkNotified records that the on-paid notification fan-out ran for this
// order. The authoritative duplicate-suppression gate is the repository's
// conditional update; this flag is what it flips.
func (o *Order) MarkNotified() {
	o.notified = true
	o.updatedAt = time.Now()
}

// CanTransitionTo reports whether moving to the target status would respect
// the forward-only rule. Used by handlers to distinguish benign no-ops from
// genuinely illegal requests.
func (o *Order) CanTransitionTo(target OrderStatus) bool {
	if o.status == target {
		return false
	}
	switch target {
	case OrderStatusPaid, OrderStatusExpired:
		return o.status == OrderStatusPending
	case OrderStatusAccessGranted:
		return o.status == OrderStatusPaid
	default:
		return false
	}
}

// Order ID generation
//
// Unified generator for every code path that creates orders (HTTP checkout,
// bot flow, tests). 8 hex chars of unix seconds followed by 16 random hex
// chars: sortable by creation time and collision-improbable at expected order
// volumes. Not cryptographically unique - uniqueness is additionally enforced
// by the primary key at insert time.

// NewOrderID generates a new opaque, time-sortable order identifier.
func NewOrderID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to time
		// jitter rather than panicking in the middle of a checkout.
		now := time.Now().UnixNano()
		for i := range buf {
			buf[i] = byte(now >> (uint(i) * 8))
		}
	}
	return fmt.Sprintf("%08x%s", time.Now().Unix(), hex.EncodeToString(buf[:]))
}
