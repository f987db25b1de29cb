package books

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shelfmark/shelfmark/pkg/binder"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/migrations"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// setupTestServer sets up an Echo server with the book routes registered.
func setupTestServer(t *testing.T, db *bun.DB) *echo.Echo {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	RegisterRoutesWithGroup(e.Group("/api/books"), db)

	return e
}

func doRequest(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

// createTestGenre inserts a genre directly in the database.
func createTestGenre(t *testing.T, db *bun.DB, title string) *models.Genre {
	t.Helper()

	genre := &models.Genre{Title: title}
	_, err := db.NewInsert().Model(genre).Exec(context.Background())
	require.NoError(t, err)
	return genre
}

func TestCreateBook(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := setupTestServer(t, db)

	rr := doRequest(t, e, http.MethodPost, "/api/books", `{"title":"Dune","author":"Herbert","status":"READING"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	book := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &book))
	assert.Positive(t, book.ID)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Herbert", book.Author)
	assert.Equal(t, models.StatusReading, book.Status)
	assert.False(t, book.CreatedAt.IsZero())
	require.NotNil(t, book.Genres, "genres should always be an array")
	assert.Empty(t, book.Genres)

	// A second create gets a fresh id.
	rr = doRequest(t, e, http.MethodPost, "/api/books", `{"title":"Emma","author":"Austen","status":"TO_READ"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	second := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &second))
	assert.NotEqual(t, book.ID, second.ID)
}

func TestCreateBookWithGenres(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := setupTestServer(t, db)

	fiction := createTestGenre(t, db, "Fiction")
	scifi := createTestGenre(t, db, "Sci-Fi")

	payload := fmt.Sprintf(`{"title":"Dune","author":"Herbert","status":"READING","genres":[{"id":%d},{"id":%d}]}`, fiction.ID, scifi.ID)
	rr := doRequest(t, e, http.MethodPost, "/api/books", payload)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	book := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &book))
	require.Len(t, book.Genres, 2)
	assert.Equal(t, fiction.ID, book.Genres[0].ID)
	assert.Equal(t, scifi.ID, book.Genres[1].ID)

	// The retrieve endpoint returns the same shape.
	rr = doRequest(t, e, http.MethodGet, fmt.Sprintf("/api/books/%d", book.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	fetched := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fetched))
	require.Len(t, fetched.Genres, 2)
	assert.Equal(t, "Fiction", fetched.Genres[0].Title)
}

func TestCreateBookInvalidStatus(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := setupTestServer(t, db)

	rr := doRequest(t, e, http.MethodPost, "/api/books", `{"title":"Dune","author":"Herbert","status":"DONE"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "must be one of the following")

	// Nothing was persisted.
	count, err := db.NewSelect().Model((*models.Book)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateBookMissingRequiredFields(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := setupTestServer(t, db)

	rr := doRequest(t, e, http.MethodPost, "/api/books", `{"title":"Dune"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	count, err := db.NewSelect().Model((*models.Book)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRetrieveBookNotFound(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := setupTestServer(t, db)

	rr := doRequest(t, e, http.MethodGet, "/api/books/999", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// A non-numeric id behaves like a query with no match.
	rr = doRequest(t, e, http.MethodGet, "/api/books/abc", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateBookEmptyBody(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := setupTestServer(t, db)

	rr := doRequest(t, e, http.MethodPost, "/api/books", `{"title":"Dune","author":"Herbert","status":"READING"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	book := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &book))

	rr = doRequest(t, e, http.MethodPatch, fmt.Sprintf("/api/books/%d", book.ID), `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// The stored row is untouched.
	stored := &models.Book{}
	err := db.NewSelect().Model(stored).Where("b.id = ?", book.ID).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Dune", stored.Title)
	assert.Equal(t, models.StatusReading, stored.Status)
}

func TestUpdateBookScalarFields(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := setupTestServer(t, db)

	rr := doRequest(t, e, http.MethodPost, "/api/books", `{"title":"Dune","author":"Herbert","status":"TO_READ"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	book := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &book))

	rr = doRequest(t, e, http.MethodPatch, fmt.Sprintf("/api/books/%d", book.ID), `{"status":"READING","currentPage":42,"rating":4.5}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	updated := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, models.StatusReading, updated.Status)
	require.NotNil(t, updated.CurrentPage)
	assert.Equal(t, 42, *updated.CurrentPage)
	require.NotNil(t, updated.Rating)
	assert.InDelta(t, 4.5, *updated.Rating, 0.0001)
	// Untouched fields stay put.
	assert.Equal(t, "Dune", updated.Title)
	assert.Equal(t, "Herbert", updated.Author)
}

func TestUpdateBookReplacesGenres(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := setupTestServer(t, db)

	fiction := createTestGenre(t, db, "Fiction")
	scifi := createTestGenre(t, db, "Sci-Fi")
	horror := createTestGenre(t, db, "Horror")

	payload := fmt.Sprintf(`{"title":"Dune","author":"Herbert","status":"READING","genres":[{"id":%d}]}`, horror.ID)
	rr := doRequest(t, e, http.MethodPost, "/api/books", payload)
	require.Equal(t, http.StatusCreated, rr.Code)
	book := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &book))

	// genreIds fully replaces the previous associations.
	body := fmt.Sprintf(`{"genreIds":[%d,%d]}`, fiction.ID, scifi.ID)
	rr = doRequest(t, e, http.MethodPatch, fmt.Sprintf("/api/books/%d", book.ID), body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doRequest(t, e, http.MethodGet, fmt.Sprintf("/api/books/%d", book.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	fetched := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fetched))
	require.Len(t, fetched.Genres, 2)
	assert.Equal(t, fiction.ID, fetched.Genres[0].ID)
	assert.Equal(t, scifi.ID, fetched.Genres[1].ID)
}

func TestUpdateBookClearsGenres(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := setupTestServer(t, db)

	fiction := createTestGenre(t, db, "Fiction")

	payload := fmt.Sprintf(`{"title":"Dune","author":"Herbert","status":"READING","genres":[{"id":%d}]}`, fiction.ID)
	rr := doRequest(t, e, http.MethodPost, "/api/books", payload)
	require.Equal(t, http.StatusCreated, rr.Code)
	book := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &book))
	require.Len(t, book.Genres, 1)

	rr = doRequest(t, e, http.MethodPatch, fmt.Sprintf("/api/books/%d", book.ID), `{"genreIds":[]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doRequest(t, e, http.MethodGet, fmt.Sprintf("/api/books/%d", book.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	fetched := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fetched))
	require.NotNil(t, fetched.Genres)
	assert.Empty(t, fetched.Genres)
}

func TestUpdateBookGenreIDsPrecedence(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := setupTestServer(t, db)

	fiction := createTestGenre(t, db, "Fiction")
	scifi := createTestGenre(t, db, "Sci-Fi")

	rr := doRequest(t, e, http.MethodPost, "/api/books", `{"title":"Dune","author":"Herbert","status":"READING"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	book := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &book))

	// genreIds wins when both are supplied.
	body := fmt.Sprintf(`{"genreIds":[%d],"genres":[{"id":%d}]}`, fiction.ID, scifi.ID)
	rr = doRequest(t, e, http.MethodPatch, fmt.Sprintf("/api/books/%d", book.ID), body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	updated := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	require.Len(t, updated.Genres, 1)
	assert.Equal(t, fiction.ID, updated.Genres[0].ID)
}

func TestUpdateBookMissingBook(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := setupTestServer(t, db)

	fiction := createTestGenre(t, db, "Fiction")

	// Updating a book that doesn't exist is a 404 and must not leave
	// association rows behind for the missing id.
	body := fmt.Sprintf(`{"genreIds":[%d],"status":"READING"}`, fiction.ID)
	rr := doRequest(t, e, http.MethodPatch, "/api/books/999", body)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	count, err := db.NewSelect().Model((*models.BookGenre)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteBookIdempotent(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := setupTestServer(t, db)

	// Deleting a non-existent id succeeds silently.
	rr := doRequest(t, e, http.MethodDelete, "/api/books/999", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Book deleted successfully.")

	fiction := createTestGenre(t, db, "Fiction")
	payload := fmt.Sprintf(`{"title":"Dune","author":"Herbert","status":"READING","genres":[{"id":%d}]}`, fiction.ID)
	rr = doRequest(t, e, http.MethodPost, "/api/books", payload)
	require.Equal(t, http.StatusCreated, rr.Code)
	book := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &book))

	rr = doRequest(t, e, http.MethodDelete, fmt.Sprintf("/api/books/%d", book.ID), "")
	assert.Equal(t, http.StatusOK, rr.Code)

	// The book and its associations are gone.
	rr = doRequest(t, e, http.MethodGet, fmt.Sprintf("/api/books/%d", book.ID), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	count, err := db.NewSelect().Model((*models.BookGenre)(nil)).Where("book_id = ?", book.ID).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateBookRoundTrip(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := setupTestServer(t, db)

	fiction := createTestGenre(t, db, "Fiction")

	payload := fmt.Sprintf(`{
		"title": "Dune",
		"author": "Herbert",
		"status": "READING",
		"pages": 412,
		"totalPages": 412,
		"currentPage": 100,
		"rating": 5,
		"coverUrl": "https://example.com/dune.jpg",
		"synopsis": "Desert planet.",
		"isbn": 9780441013593,
		"notes": "Re-read.",
		"genres": [{"id": %d}]
	}`, fiction.ID)
	rr := doRequest(t, e, http.MethodPost, "/api/books", payload)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = doRequest(t, e, http.MethodGet, fmt.Sprintf("/api/books/%d", created.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	fetched := models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fetched))

	assert.Equal(t, "Dune", fetched.Title)
	assert.Equal(t, "Herbert", fetched.Author)
	assert.Equal(t, models.StatusReading, fetched.Status)
	require.NotNil(t, fetched.Pages)
	assert.Equal(t, 412, *fetched.Pages)
	require.NotNil(t, fetched.CurrentPage)
	assert.Equal(t, 100, *fetched.CurrentPage)
	require.NotNil(t, fetched.CoverURL)
	assert.Equal(t, "https://example.com/dune.jpg", *fetched.CoverURL)
	require.NotNil(t, fetched.ISBN)
	assert.Equal(t, int64(9780441013593), *fetched.ISBN)
	assert.Positive(t, fetched.ID)
	assert.False(t, fetched.CreatedAt.IsZero())
	require.Len(t, fetched.Genres, 1)
	assert.Equal(t, fiction.ID, fetched.Genres[0].ID)
}

func TestListBooks(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e := setupTestServer(t, db)

	// Empty store lists as an empty array, not null.
	rr := doRequest(t, e, http.MethodGet, "/api/books", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}
