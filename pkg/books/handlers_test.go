package books

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/azulbooks/bookstore/pkg/binder"
	"github.com/azulbooks/bookstore/pkg/errcodes"
	"github.com/azulbooks/bookstore/pkg/models"
	"github.com/azulbooks/bookstore/pkg/pagination"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, payload, method, path string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr), rr
}

func TestHandler_List_ReturnsPageEnvelope(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)
	h := &handler{bookService: svc}

	author := createAuthor(t, db, "Lois McMaster Bujold")
	for _, title := range []string{"Shards of Honor", "Barrayar", "The Warrior's Apprentice"} {
		_, err := svc.CreateBook(ctx, CreateBookOptions{
			Title:     title,
			Price:     price(t, "6.99"),
			AuthorIDs: []int{author.ID},
		})
		require.NoError(t, err)
	}

	c, rr := newTestContext(t, "", http.MethodGet, "/books?size=2&sort=title,asc")

	err := h.list(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp pagination.Page[*models.Book]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Content, 2)
	assert.Equal(t, "Barrayar", resp.Content[0].Title)
	assert.Equal(t, "Shards of Honor", resp.Content[1].Title)
	assert.Equal(t, 0, resp.Page.Number)
	assert.Equal(t, 2, resp.Page.Size)
	assert.Equal(t, 3, resp.Page.TotalElements)
	assert.Equal(t, 2, resp.Page.TotalPages)
}

func TestHandler_List_SizeIsCappedSilently(t *testing.T) {
	db := setupTestDB(t)
	h := &handler{bookService: NewService(db)}

	c, rr := newTestContext(t, "", http.MethodGet, "/books?size=150")

	err := h.list(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp pagination.Page[*models.Book]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, pagination.MaxSize, resp.Page.Size)
	assert.Empty(t, resp.Content)
	assert.Equal(t, 0, resp.Page.TotalPages)
}

func TestHandler_List_RejectsUnknownSortField(t *testing.T) {
	db := setupTestDB(t)
	h := &handler{bookService: NewService(db)}

	c, _ := newTestContext(t, "", http.MethodGet, "/books?sort=password,asc")

	err := h.list(c)
	require.Error(t, err)

	var errResp *errcodes.Error
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusUnprocessableEntity, errResp.HTTPCode)
}

func TestHandler_Retrieve_NonNumericIDIsNotFound(t *testing.T) {
	db := setupTestDB(t)
	h := &handler{bookService: NewService(db)}

	c, _ := newTestContext(t, "", http.MethodGet, "/books/abc")
	c.SetParamNames("id")
	c.SetParamValues("abc")

	err := h.retrieve(c)
	require.Error(t, err)

	var errResp *errcodes.Error
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusNotFound, errResp.HTTPCode)
}

func TestHandler_Create_Success(t *testing.T) {
	db := setupTestDB(t)
	h := &handler{bookService: NewService(db)}

	author := createAuthor(t, db, "Emily Tesh")
	genre := createGenre(t, db, "Science Fiction")

	payload, err := json.Marshal(map[string]interface{}{
		"title":      "Some Desperate Glory",
		"price":      "14.99",
		"author_ids": []int{author.ID},
		"genre_ids":  []int{genre.ID},
	})
	require.NoError(t, err)

	c, rr := newTestContext(t, string(payload), http.MethodPost, "/books")

	err = h.create(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp models.Book
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotZero(t, resp.ID)
	assert.Equal(t, "Some Desperate Glory", resp.Title)
	require.Len(t, resp.Authors, 1)
	assert.Equal(t, "Emily Tesh", resp.Authors[0].Name)
}

func TestHandler_Create_RejectsInvalidPrice(t *testing.T) {
	db := setupTestDB(t)
	h := &handler{bookService: NewService(db)}

	for _, invalid := range []string{"-5.00", "0", "1.999", "10000000000.00"} {
		payload := `{"title":"Bad Price","price":"` + invalid + `","author_ids":[1]}`
		c, _ := newTestContext(t, payload, http.MethodPost, "/books")

		err := h.create(c)
		require.Error(t, err, "price %q should be rejected", invalid)

		var errResp *errcodes.Error
		require.ErrorAs(t, err, &errResp)
		assert.Equal(t, http.StatusUnprocessableEntity, errResp.HTTPCode)
	}
}

func TestHandler_Create_RejectsMissingTitle(t *testing.T) {
	db := setupTestDB(t)
	h := &handler{bookService: NewService(db)}

	c, _ := newTestContext(t, `{"price":"5.00","author_ids":[1]}`, http.MethodPost, "/books")

	err := h.create(c)
	require.Error(t, err)

	var errResp *errcodes.Error
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, http.StatusUnprocessableEntity, errResp.HTTPCode)
}
