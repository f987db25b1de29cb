package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/samber/lo"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	ID *int
}

type ListBooksOptions struct {
	Limit  *int
	Offset *int
}

type UpdateBookOptions struct {
	Columns []string

	// UpdateGenres fully replaces the book's genre associations with GenreIDs.
	// An empty GenreIDs with UpdateGenres set leaves the book with no genres.
	UpdateGenres bool
	GenreIDs     []int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateBook inserts the book row and then, best-effort, one association row
// per genre id. A failed genre link is logged and does not undo the book
// insert; callers re-fetch to pick up whatever set of links landed.
func (svc *Service) CreateBook(ctx context.Context, book *models.Book, genreIDs []int) error {
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now()
	}

	_, err := svc.db.
		NewInsert().
		Model(book).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	genreIDs = lo.Uniq(genreIDs)
	if len(genreIDs) > 0 {
		bookGenres := lo.Map(genreIDs, func(genreID int, _ int) *models.BookGenre {
			return &models.BookGenre{BookID: book.ID, GenreID: genreID}
		})
		_, err = svc.db.
			NewInsert().
			Model(&bookGenres).
			Exec(ctx)
		if err != nil {
			log := logger.FromContext(ctx)
			log.Warn("failed to link genres", logger.Data{"book_id": book.ID, "error": err.Error()})
		}
	}

	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book).
		Relation("BookGenres", func(sq *bun.SelectQuery) *bun.SelectQuery {
			// rowid order is association insertion order
			return sq.Order("bg.rowid ASC")
		}).
		Relation("BookGenres.Genre")

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	book.PopulateGenres()

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	books := []*models.Book{}

	q := svc.db.
		NewSelect().
		Model(&books).
		Relation("BookGenres", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("bg.rowid ASC")
		}).
		Relation("BookGenres.Genre").
		Order("b.created_at DESC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, book := range books {
		book.PopulateGenres()
	}

	return books, nil
}

// UpdateBook applies the given column updates and, when opts.UpdateGenres is
// set, replaces all genre associations with opts.GenreIDs. Both run in one
// transaction so a reader never observes the window between the delete and
// the insert.
func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 && !opts.UpdateGenres {
		return nil
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Updating a missing book must not leave association rows behind.
		exists, err := tx.
			NewSelect().
			Model((*models.Book)(nil)).
			Where("id = ?", book.ID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("Book")
		}

		if opts.UpdateGenres {
			// Delete all previous associations and save these new ones.
			_, err := tx.
				NewDelete().
				Model((*models.BookGenre)(nil)).
				Where("book_id = ?", book.ID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}

			genreIDs := lo.Uniq(opts.GenreIDs)
			if len(genreIDs) > 0 {
				bookGenres := lo.Map(genreIDs, func(genreID int, _ int) *models.BookGenre {
					return &models.BookGenre{BookID: book.ID, GenreID: genreID}
				})
				_, err = tx.
					NewInsert().
					Model(&bookGenres).
					Exec(ctx)
				if err != nil {
					return errors.WithStack(err)
				}
			}
		}

		if len(opts.Columns) > 0 {
			_, err := tx.
				NewUpdate().
				Model(book).
				Column(opts.Columns...).
				WherePK().
				Exec(ctx)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return errcodes.NotFound("Book")
				}
				return errors.WithStack(err)
			}
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// DeleteBook removes the book's associations and then the row itself.
// Deleting an id that doesn't exist is not an error.
func (svc *Service) DeleteBook(ctx context.Context, bookID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewDelete().
			Model((*models.BookGenre)(nil)).
			Where("book_id = ?", bookID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.Book)(nil)).
			Where("id = ?", bookID).
			Exec(ctx)
		return errors.WithStack(err)
	})
}
