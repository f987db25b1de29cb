package books

// GenreRef identifies a genre by id, matching the `{id}` objects the UI
// sends in `genres` lists.
type GenreRef struct {
	ID int `json:"id" validate:"required,min=1"`
}

type ListBooksQuery struct {
	Limit  *int `query:"limit" json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	Offset *int `query:"offset" json:"offset,omitempty" validate:"omitempty,min=0"`
}

type CreateBookPayload struct {
	Title       string     `json:"title" mod:"trim" validate:"required,max=300"`
	Author      string     `json:"author" mod:"trim" validate:"required,max=300"`
	Status      string     `json:"status" validate:"required,oneof=TO_READ READING READ PAUSED FINISHED ABANDONED"`
	Genres      []GenreRef `json:"genres" validate:"omitempty,dive"`
	Pages       *int       `json:"pages" validate:"omitempty,min=0"`
	TotalPages  *int       `json:"totalPages" validate:"omitempty,min=0"`
	CurrentPage *int       `json:"currentPage" validate:"omitempty,min=0"`
	Rating      *float64   `json:"rating" validate:"omitempty,min=0"`
	CoverURL    *string    `json:"coverUrl" validate:"omitempty,url"`
	Synopsis    *string    `json:"synopsis"`
	ISBN        *int64     `json:"isbn" validate:"omitempty,min=0"`
	Notes       *string    `json:"notes"`
}

// UpdateBookPayload is a partial book. GenreIDs and Genres both replace the
// book's genre set when present (GenreIDs wins); when both are absent the
// associations are left untouched.
type UpdateBookPayload struct {
	Title       *string    `json:"title,omitempty" mod:"trim" validate:"omitempty,max=300"`
	Author      *string    `json:"author,omitempty" mod:"trim" validate:"omitempty,max=300"`
	Status      *string    `json:"status,omitempty" validate:"omitempty,oneof=TO_READ READING READ PAUSED FINISHED ABANDONED"`
	GenreIDs    []int      `json:"genreIds,omitempty" validate:"omitempty,dive,min=1"`
	Genres      []GenreRef `json:"genres,omitempty" validate:"omitempty,dive"`
	Pages       *int       `json:"pages,omitempty" validate:"omitempty,min=0"`
	TotalPages  *int       `json:"totalPages,omitempty" validate:"omitempty,min=0"`
	CurrentPage *int       `json:"currentPage,omitempty" validate:"omitempty,min=0"`
	Rating      *float64   `json:"rating,omitempty" validate:"omitempty,min=0"`
	CoverURL    *string    `json:"coverUrl,omitempty" validate:"omitempty,url"`
	Synopsis    *string    `json:"synopsis,omitempty"`
	ISBN        *int64     `json:"isbn,omitempty" validate:"omitempty,min=0"`
	Notes       *string    `json:"notes,omitempty"`
}
