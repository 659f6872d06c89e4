package entities

import (
	"time"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/valueobjects"
)

// ProductKind distinguishes one-off picks from channel subscriptions.
type ProductKind string

const (
	ProductKindOneTime      ProductKind = "one_time"
	ProductKindSubscription ProductKind = "subscription"
)

// IsValid checks if the product kind is known.
func (k ProductKind) IsValid() bool {
	return k == ProductKindOneTime || k == ProductKindSubscription
}

// Product is a sellable offering published by a tipster: a prediction channel
// subscription or a single pick. Its price is what gets snapshotted into
// orders at checkout time.
type Product struct {
	id          string
	tipsterID   string
	title       string
	description string
	kind        ProductKind
	price       valueobjects.Money
	channelID   string // telegram channel the buyer is invited into
	active      bool
	createdAt   time.Time
	updatedAt   time.Time
}

// NewProduct creates an active product owned by a tipster.
func NewProduct(tipsterID, title, description string, kind ProductKind, price valueobjects.Money, channelID string) (*Product, error) {
	if tipsterID == "" {
		return nil, errors.ValidationError{Field: "tipsterId", Message: "tipster id is required"}
	}
	if title == "" {
		return nil, errors.ValidationError{Field: "title", Message: "title is required"}
	}
	if !kind.IsValid() {
		return nil, errors.ValidationError{Field: "kind", Message: "unknown product kind"}
	}
	if !price.IsPositive() {
		return nil, errors.ValidationError{Field: "price", Message: "price must be positive"}
	}

	now := time.Now()
	return &Product{
		id:          NewOrderID(), // same generator, products share the id scheme
		tipsterID:   tipsterID,
		title:       title,
		description: description,
		kind:        kind,
		price:       price,
		channelID:   channelID,
		active:      true,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructProduct rebuilds a Product from stored data.
func ReconstructProduct(
	id, tipsterID, title, description string,
	kind ProductKind,
	price valueobjects.Money,
	channelID string,
	active bool,
	createdAt, updatedAt time.Time,
) *Product {
	return &Product{
		id:          id,
		tipsterID:   tipsterID,
		title:       title,
		description: description,
		kind:        kind,
		price:       price,
		channelID:   channelID,
		active:      active,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (p *Product) ID() string {
	return p.id
}

func (p *Product) TipsterID() string {
	return p.tipsterID
}

func (p *Product) Title() string {
	return p.title
}

func (p *Product) Description() string {
	return p.description
}

func (p *Product) Kind() ProductKind {
	return p.kind
}

func (p *Product) Price() valueobjects.Money {
	return p.price
}

func (p *Product) ChannelID() string {
	return p.channelID
}

func (p *Product) IsActive() bool {
	return p.active
}

func (p *Product) CreatedAt() time.Time {
	return p.createdAt
}

func (p *Product) UpdatedAt() time.Time {
	return p.updatedAt
}

// EnsurePurchasable returns an error if the product cannot be checked out.
func (p *Product) EnsurePurchasable() error {
	if !p.active {
		return errors.ErrProductNotActive
	}
	return nil
}

// Deactivate takes the product off sale. Existing orders keep their snapshot.
func (p *Product) Deactivate() {
	p.active = false
	p.updatedAt = time.Now()
}

// UpdatePrice changes the price for future checkouts only.
func (p *Product) UpdatePrice(price valueobjects.Money) error {
	if !price.IsPositive() {
		return errors.ValidationError{Field: "price", Message: "price must be positive"}
	}
	p.price = price
	p.updatedAt = time.Now()
	return nil
}
