package genres

type ListGenresQuery struct {
	Limit  *int `query:"limit" json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	Offset *int `query:"offset" json:"offset,omitempty" validate:"omitempty,min=0"`
}

type CreateGenrePayload struct {
	Title       string  `json:"title" mod:"trim" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// UpdateGenrePayload carries both columns of a genre. Both are always
// written back, so an omitted field clears the stored value.
type UpdateGenrePayload struct {
	Title       *string `json:"title,omitempty" mod:"trim" validate:"omitempty,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}
