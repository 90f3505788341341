package authors

type ListAuthorsQuery struct {
	Page int      `query:"page" json:"page,omitempty" validate:"min=0"`
	Size int      `query:"size" json:"size,omitempty" default:"20" validate:"min=1"`
	Sort []string `query:"sort" json:"sort,omitempty"`
	Name *string  `query:"name" json:"name,omitempty" validate:"omitempty,max=100"`
}

type CreateAuthorPayload struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

type UpdateAuthorPayload struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}
