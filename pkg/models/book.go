package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID        int             `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Title     string          `bun:",nullzero" json:"title"`
	Price     decimal.Decimal `bun:"type:numeric(12,2)" json:"price"`

	// Associations are loaded explicitly by the books service in persisted
	// sort_order, never implicitly by the ORM.
	Authors []*Author `bun:"-" json:"authors"`
	Genres  []*Genre  `bun:"-" json:"genres"`
}
