package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Reading statuses a book can be in.
const (
	StatusToRead    = "TO_READ"
	StatusReading   = "READING"
	StatusRead      = "READ"
	StatusPaused    = "PAUSED"
	StatusFinished  = "FINISHED"
	StatusAbandoned = "ABANDONED"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID          int          `bun:",pk,nullzero" json:"id"`
	CreatedAt   time.Time    `bun:"created_at,nullzero" json:"createdAt"`
	Title       string       `bun:",nullzero" json:"title"`
	Author      string       `bun:",nullzero" json:"author"`
	Status      string       `bun:",nullzero" json:"status"`
	Pages       *int         `json:"pages"`
	TotalPages  *int         `bun:"total_pages" json:"totalPages"`
	CurrentPage *int         `bun:"current_page" json:"currentPage"`
	Rating      *float64     `json:"rating"`
	CoverURL    *string      `bun:"cover_url" json:"coverUrl"`
	Synopsis    *string      `json:"synopsis"`
	ISBN        *int64       `bun:"isbn" json:"isbn"`
	Notes       *string      `json:"notes"`
	BookGenres  []*BookGenre `bun:"rel:has-many,join:id=book_id" json:"-"`

	// Genres is the denormalized view of BookGenres, in association insertion
	// order. It is what goes over the wire; the raw join rows never do.
	Genres []*Genre `bun:"-" json:"genres"`
}

// PopulateGenres flattens the loaded join rows into the Genres field. The
// result is never nil so the JSON output is always an array.
func (b *Book) PopulateGenres() {
	b.Genres = make([]*Genre, 0, len(b.BookGenres))
	for _, bg := range b.BookGenres {
		if bg.Genre != nil {
			b.Genres = append(b.Genres, bg.Genre)
		}
	}
}
