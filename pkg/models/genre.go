package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Genre struct {
	bun.BaseModel `bun:"table:genres,alias:g"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `bun:",nullzero" json:"name"`
}

type BookGenre struct {
	bun.BaseModel `bun:"table:book_genres,alias:bg"`

	BookID    int    `bun:",pk" json:"book_id"`
	GenreID   int    `bun:",pk" json:"genre_id"`
	Genre     *Genre `bun:"rel:belongs-to,join:genre_id=id" json:"genre,omitempty"`
	SortOrder int    `bun:",nullzero" json:"sort_order"`
}
