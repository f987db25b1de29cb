package models

import (
	"github.com/uptrace/bun"
)

type Genre struct {
	bun.BaseModel `bun:"table:genres,alias:g"`

	ID int `bun:",pk,nullzero" json:"id"`
	// Title stays a plain string so a clobbering update can write "" instead
	// of NULL into the NOT NULL column.
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// BookGenre links one book to one genre. The pair is the identity; there is
// no surrogate id.
type BookGenre struct {
	bun.BaseModel `bun:"table:book_genres,alias:bg"`

	BookID  int    `bun:",pk" json:"bookId"`
	GenreID int    `bun:",pk" json:"genreId"`
	Genre   *Genre `bun:"rel:belongs-to,join:genre_id=id" json:"genre,omitempty"`
}
