package books

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/samber/lo"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
)

type handler struct {
	bookService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, err := h.bookService.ListBooks(ctx, ListBooksOptions{
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, books))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book := &models.Book{
		Title:       params.Title,
		Author:      params.Author,
		Status:      params.Status,
		Pages:       params.Pages,
		TotalPages:  params.TotalPages,
		CurrentPage: params.CurrentPage,
		Rating:      params.Rating,
		CoverURL:    params.CoverURL,
		Synopsis:    params.Synopsis,
		ISBN:        params.ISBN,
		Notes:       params.Notes,
	}
	genreIDs := lo.Map(params.Genres, func(g GenreRef, _ int) int {
		return g.ID
	})

	err := h.bookService.CreateBook(ctx, book, genreIDs)
	if err != nil {
		// The one place the contract surfaces the underlying failure detail.
		return errcodes.Internal("Failed to create book.", err.Error())
	}

	// Reload the model with its genres. If that fails the create still
	// succeeded, so return the bare book rather than an error.
	created, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &book.ID,
	})
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn("failed to reload created book", logger.Data{"book_id": book.ID, "error": err.Error()})
		book.PopulateGenres()
		return errors.WithStack(c.JSON(http.StatusCreated, book))
	}

	return errors.WithStack(c.JSON(http.StatusCreated, created))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	// Bind params.
	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	book := &models.Book{ID: id}
	opts := UpdateBookOptions{Columns: []string{}}

	if params.Title != nil {
		book.Title = *params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	if params.Author != nil {
		book.Author = *params.Author
		opts.Columns = append(opts.Columns, "author")
	}
	if params.Status != nil {
		book.Status = *params.Status
		opts.Columns = append(opts.Columns, "status")
	}
	if params.Pages != nil {
		book.Pages = params.Pages
		opts.Columns = append(opts.Columns, "pages")
	}
	if params.TotalPages != nil {
		book.TotalPages = params.TotalPages
		opts.Columns = append(opts.Columns, "total_pages")
	}
	if params.CurrentPage != nil {
		book.CurrentPage = params.CurrentPage
		opts.Columns = append(opts.Columns, "current_page")
	}
	if params.Rating != nil {
		book.Rating = params.Rating
		opts.Columns = append(opts.Columns, "rating")
	}
	if params.CoverURL != nil {
		book.CoverURL = params.CoverURL
		opts.Columns = append(opts.Columns, "cover_url")
	}
	if params.Synopsis != nil {
		book.Synopsis = params.Synopsis
		opts.Columns = append(opts.Columns, "synopsis")
	}
	if params.ISBN != nil {
		book.ISBN = params.ISBN
		opts.Columns = append(opts.Columns, "isbn")
	}
	if params.Notes != nil {
		book.Notes = params.Notes
		opts.Columns = append(opts.Columns, "notes")
	}

	// genreIds takes precedence over genres; either one, even empty, replaces
	// the book's associations in full.
	switch {
	case params.GenreIDs != nil:
		opts.UpdateGenres = true
		opts.GenreIDs = params.GenreIDs
	case params.Genres != nil:
		opts.UpdateGenres = true
		opts.GenreIDs = lo.Map(params.Genres, func(g GenreRef, _ int) int {
			return g.ID
		})
	}

	if len(opts.Columns) == 0 && !opts.UpdateGenres {
		return errcodes.ValidationError("No fields provided to update.")
	}

	// Update the model.
	err = h.bookService.UpdateBook(ctx, book, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	// Reload the model.
	updated, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, updated))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	err = h.bookService.DeleteBook(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := map[string]string{"message": "Book deleted successfully."}
	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
