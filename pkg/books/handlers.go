package books

import (
	"net/http"
	"strconv"

	"github.com/azulbooks/bookstore/pkg/errcodes"
	"github.com/azulbooks/bookstore/pkg/pagination"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	bookService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	sort, err := pagination.ParseSort(params.Sort, "id", "title", "price", "created_at")
	if err != nil {
		return errors.WithStack(err)
	}
	page := pagination.NewRequest(params.Page, params.Size, sort)

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Title:  params.Title,
		Author: params.Author,
		Genre:  params.Genre,
		Page:   page,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, pagination.NewPage(books, page, total)))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.CreateBook(ctx, CreateBookOptions{
		Title:     params.Title,
		Price:     *params.Price,
		AuthorIDs: params.AuthorIDs,
		GenreIDs:  params.GenreIDs,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.UpdateBook(ctx, id, UpdateBookOptions{
		Title:     params.Title,
		Price:     *params.Price,
		AuthorIDs: params.AuthorIDs,
		GenreIDs:  params.GenreIDs,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) deleteBook(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	if err := h.bookService.DeleteBook(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}
