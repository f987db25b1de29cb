// Package actions is the in-process bridge the UI host calls instead of
// going through HTTP. Every operation is a direct service call; after a
// successful write the affected pages are revalidated so the UI drops its
// cached renderings. Failures are rewrapped into user-readable errors and
// always returned, never swallowed.
package actions

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/samber/lo"
	"github.com/shelfmark/shelfmark/pkg/books"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/genres"
	"github.com/shelfmark/shelfmark/pkg/models"
)

const booksPath = "/books"

// PageRevalidator invalidates a cached page rendering by path.
type PageRevalidator interface {
	RevalidatePath(path string)
}

// NoopRevalidator satisfies PageRevalidator for hosts without a page cache.
type NoopRevalidator struct{}

func (NoopRevalidator) RevalidatePath(string) {}

type Service struct {
	bookService  *books.Service
	genreService *genres.Service
	revalidator  PageRevalidator
}

func NewService(bookService *books.Service, genreService *genres.Service, revalidator PageRevalidator) *Service {
	if revalidator == nil {
		revalidator = NoopRevalidator{}
	}
	return &Service{
		bookService:  bookService,
		genreService: genreService,
		revalidator:  revalidator,
	}
}

// GetBook fetches a single book. Store failures are logged but the caller
// only ever sees a generic not-found error.
func (svc *Service) GetBook(ctx context.Context, id int) (*models.Book, error) {
	book, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &id})
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn("failed to fetch book", logger.Data{"book_id": id, "error": err.Error()})
		return nil, errors.New("Book not found.")
	}
	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context) ([]*models.Book, error) {
	list, err := svc.bookService.ListBooks(ctx, books.ListBooksOptions{})
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn("failed to fetch books", logger.Data{"error": err.Error()})
		return nil, errors.New("Failed to fetch books.")
	}
	return list, nil
}

func (svc *Service) ListGenres(ctx context.Context) ([]*models.Genre, error) {
	list, err := svc.genreService.ListGenres(ctx, genres.ListGenresOptions{})
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn("failed to fetch genres", logger.Data{"error": err.Error()})
		return nil, errors.New("Failed to fetch genres.")
	}
	return list, nil
}

// AddBook creates a book with the given genre associations and returns it
// with its genres loaded.
func (svc *Service) AddBook(ctx context.Context, book *models.Book, genreRefs []books.GenreRef) (*models.Book, error) {
	if book.Title == "" || book.Author == "" || book.Status == "" {
		return nil, errors.New("Title, author, and status are required.")
	}

	genreIDs := lo.Map(genreRefs, func(g books.GenreRef, _ int) int {
		return g.ID
	})
	if err := svc.bookService.CreateBook(ctx, book, genreIDs); err != nil {
		return nil, svc.wrapWriteError(ctx, err, "Failed to add book.")
	}

	svc.revalidator.RevalidatePath(booksPath)

	created, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &book.ID})
	if err != nil {
		// The create landed; return what we have.
		book.PopulateGenres()
		return book, nil
	}
	return created, nil
}

// UpdateBook applies a partial update and genre replacement per opts, then
// revalidates the listing and the book's detail page.
func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts books.UpdateBookOptions) (*models.Book, error) {
	if err := svc.bookService.UpdateBook(ctx, book, opts); err != nil {
		return nil, svc.wrapWriteError(ctx, err, "Failed to update book.")
	}

	updated, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &book.ID})
	if err != nil {
		return nil, svc.wrapWriteError(ctx, err, "Failed to update book.")
	}

	svc.revalidator.RevalidatePath(booksPath)
	svc.revalidator.RevalidatePath(fmt.Sprintf("%s/%d", booksPath, book.ID))

	return updated, nil
}

func (svc *Service) DeleteBook(ctx context.Context, id int) error {
	if err := svc.bookService.DeleteBook(ctx, id); err != nil {
		return svc.wrapWriteError(ctx, err, "Failed to delete book.")
	}

	svc.revalidator.RevalidatePath(booksPath)
	return nil
}

func (svc *Service) AddGenre(ctx context.Context, title string, description *string) (*models.Genre, error) {
	if title == "" {
		return nil, errors.New("Title is required.")
	}

	genre := &models.Genre{Title: title, Description: description}
	if err := svc.genreService.CreateGenre(ctx, genre); err != nil {
		return nil, svc.wrapWriteError(ctx, err, "Failed to add genre.")
	}

	svc.revalidator.RevalidatePath(booksPath)
	return genre, nil
}

func (svc *Service) DeleteGenre(ctx context.Context, id int) error {
	if err := svc.genreService.DeleteGenre(ctx, id); err != nil {
		return svc.wrapWriteError(ctx, err, "Failed to delete genre.")
	}

	svc.revalidator.RevalidatePath(booksPath)
	return nil
}

// wrapWriteError logs the underlying failure and returns a user-readable
// error, keeping the not-found case distinguishable from store failures.
func (svc *Service) wrapWriteError(ctx context.Context, err error, msg string) error {
	log := logger.FromContext(ctx)
	log.Warn("write action failed", logger.Data{"error": err.Error()})

	var e *errcodes.Error
	if errors.As(err, &e) && e.HTTPCode == http.StatusNotFound {
		return errors.New(e.Message)
	}
	return errors.New(msg)
}
