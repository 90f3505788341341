package books

import "github.com/shopspring/decimal"

type ListBooksQuery struct {
	Page   int      `query:"page" json:"page,omitempty" validate:"min=0"`
	Size   int      `query:"size" json:"size,omitempty" default:"20" validate:"min=1"`
	Sort   []string `query:"sort" json:"sort,omitempty"`
	Title  *string  `query:"title" json:"title,omitempty" validate:"omitempty,max=200"`
	Author *string  `query:"author" json:"author,omitempty" validate:"omitempty,max=100"`
	Genre  *string  `query:"genre" json:"genre,omitempty" validate:"omitempty,max=50"`
}

type CreateBookPayload struct {
	Title     string           `json:"title" validate:"required,min=1,max=200"`
	Price     *decimal.Decimal `json:"price" validate:"required,price"`
	AuthorIDs []int            `json:"author_ids" validate:"omitempty,dive,min=1"`
	GenreIDs  []int            `json:"genre_ids" validate:"omitempty,dive,min=1"`
}

type UpdateBookPayload struct {
	Title     string           `json:"title" validate:"required,min=1,max=200"`
	Price     *decimal.Decimal `json:"price" validate:"required,price"`
	AuthorIDs []int            `json:"author_ids" validate:"omitempty,dive,min=1"`
	GenreIDs  []int            `json:"genre_ids" validate:"omitempty,dive,min=1"`
}
