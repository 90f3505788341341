package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `bun:",nullzero" json:"name"`
}

type BookAuthor struct {
	bun.BaseModel `bun:"table:book_authors,alias:ba"`

	BookID    int     `bun:",pk" json:"book_id"`
	AuthorID  int     `bun:",pk" json:"author_id"`
	Author    *Author `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
	SortOrder int     `bun:",nullzero" json:"sort_order"`
}
