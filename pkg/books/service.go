package books

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/azulbooks/bookstore/pkg/errcodes"
	"github.com/azulbooks/bookstore/pkg/models"
	"github.com/azulbooks/bookstore/pkg/pagination"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type ListBooksOptions struct {
	// Each filter is an optional case-insensitive substring. All supplied
	// filters are combined with AND; an absent filter contributes no
	// predicate, so the unfiltered listing goes through the same path.
	Title  *string
	Author *string
	Genre  *string
	Page   pagination.Request
}

type CreateBookOptions struct {
	Title     string
	Price     decimal.Decimal
	AuthorIDs []int
	GenreIDs  []int
}

type UpdateBookOptions struct {
	Title     string
	Price     decimal.Decimal
	AuthorIDs []int
	GenreIDs  []int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) RetrieveBook(ctx context.Context, id int) (*models.Book, error) {
	book, err := retrieveBook(ctx, svc.db, id)
	if err != nil {
		return nil, err
	}
	if err := loadAssociations(ctx, svc.db, []*models.Book{book}); err != nil {
		return nil, err
	}
	return book, nil
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}

	q := svc.db.
		NewSelect().
		Model(&books)

	if opts.Title != nil {
		if title := strings.TrimSpace(*opts.Title); title != "" {
			q = q.Where("LOWER(b.title) LIKE ?", containsPattern(title))
		}
	}
	// The author and genre filters match a book if ANY associated name
	// contains the substring. Books with no associations never match.
	if opts.Author != nil {
		if author := strings.TrimSpace(*opts.Author); author != "" {
			q = q.Where(
				"EXISTS (SELECT 1 FROM book_authors ba JOIN authors a ON a.id = ba.author_id WHERE ba.book_id = b.id AND LOWER(a.name) LIKE ?)",
				containsPattern(author),
			)
		}
	}
	if opts.Genre != nil {
		if genre := strings.TrimSpace(*opts.Genre); genre != "" {
			q = q.Where(
				"EXISTS (SELECT 1 FROM book_genres bg JOIN genres g ON g.id = bg.genre_id WHERE bg.book_id = b.id AND LOWER(g.name) LIKE ?)",
				containsPattern(genre),
			)
		}
	}

	for _, expr := range opts.Page.OrderExprs("b") {
		q = q.OrderExpr(expr)
	}
	q = q.Limit(opts.Page.Limit()).Offset(opts.Page.Offset())

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	if err := loadAssociations(ctx, svc.db, books); err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

func (svc *Service) CreateBook(ctx context.Context, opts CreateBookOptions) (*models.Book, error) {
	book := &models.Book{
		Title: opts.Title,
		Price: opts.Price,
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if len(opts.AuthorIDs) == 0 {
			return errcodes.BadRequest("Cannot create book without authors")
		}

		authors, err := resolveAuthors(ctx, tx, opts.AuthorIDs)
		if err != nil {
			return err
		}
		genres, err := resolveGenres(ctx, tx, opts.GenreIDs)
		if err != nil {
			return err
		}

		now := time.Now()
		book.CreatedAt = now
		book.UpdatedAt = now

		_, err = tx.
			NewInsert().
			Model(book).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if err := insertAssociations(ctx, tx, book.ID, authors, genres); err != nil {
			return err
		}

		book.Authors = authors
		book.Genres = genres
		return nil
	})
	if err != nil {
		return nil, err
	}

	return book, nil
}

// UpdateBook replaces title, price, and both association sets wholesale; there
// are no partial-patch semantics.
func (svc *Service) UpdateBook(ctx context.Context, id int, opts UpdateBookOptions) (*models.Book, error) {
	var book *models.Book

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		book, err = retrieveBook(ctx, tx, id)
		if err != nil {
			return err
		}

		if len(opts.AuthorIDs) == 0 {
			return errcodes.BadRequest("Cannot update book without authors")
		}

		authors, err := resolveAuthors(ctx, tx, opts.AuthorIDs)
		if err != nil {
			return err
		}
		genres, err := resolveGenres(ctx, tx, opts.GenreIDs)
		if err != nil {
			return err
		}

		book.Title = opts.Title
		book.Price = opts.Price
		book.UpdatedAt = time.Now()

		_, err = tx.
			NewUpdate().
			Model(book).
			Column("title", "price", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if err := deleteAssociations(ctx, tx, id); err != nil {
			return err
		}
		if err := insertAssociations(ctx, tx, id, authors, genres); err != nil {
			return err
		}

		book.Authors = authors
		book.Genres = genres
		return nil
	})
	if err != nil {
		return nil, err
	}

	return book, nil
}

// DeleteBook removes the book and its join rows. Authors and genres themselves
// are untouched.
func (svc *Service) DeleteBook(ctx context.Context, id int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := retrieveBook(ctx, tx, id); err != nil {
			return err
		}

		if err := deleteAssociations(ctx, tx, id); err != nil {
			return err
		}

		_, err := tx.
			NewDelete().
			Model((*models.Book)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

func retrieveBook(ctx context.Context, idb bun.IDB, id int) (*models.Book, error) {
	book := &models.Book{}

	err := idb.
		NewSelect().
		Model(book).
		Where("b.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFoundWithID("Book", id)
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

// resolveAuthors validates every referenced author id and returns the records
// in request order, skipping duplicates. A dangling id is the caller's fault,
// so it surfaces as a bad request rather than a not-found.
func resolveAuthors(ctx context.Context, idb bun.IDB, ids []int) ([]*models.Author, error) {
	authors := make([]*models.Author, 0, len(ids))
	seen := make(map[int]bool, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		author := &models.Author{}
		err := idb.
			NewSelect().
			Model(author).
			Where("a.id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, errcodes.BadRequest(fmt.Sprintf("Author not found with ID: %d", id))
			}
			return nil, errors.WithStack(err)
		}
		authors = append(authors, author)
	}

	return authors, nil
}

func resolveGenres(ctx context.Context, idb bun.IDB, ids []int) ([]*models.Genre, error) {
	genres := make([]*models.Genre, 0, len(ids))
	seen := make(map[int]bool, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		genre := &models.Genre{}
		err := idb.
			NewSelect().
			Model(genre).
			Where("g.id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, errcodes.BadRequest(fmt.Sprintf("Genre not found with ID: %d", id))
			}
			return nil, errors.WithStack(err)
		}
		genres = append(genres, genre)
	}

	return genres, nil
}

func insertAssociations(ctx context.Context, idb bun.IDB, bookID int, authors []*models.Author, genres []*models.Genre) error {
	if len(authors) > 0 {
		rows := make([]*models.BookAuthor, len(authors))
		for i, author := range authors {
			rows[i] = &models.BookAuthor{
				BookID:    bookID,
				AuthorID:  author.ID,
				SortOrder: i + 1,
			}
		}
		_, err := idb.
			NewInsert().
			Model(&rows).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	if len(genres) > 0 {
		rows := make([]*models.BookGenre, len(genres))
		for i, genre := range genres {
			rows[i] = &models.BookGenre{
				BookID:    bookID,
				GenreID:   genre.ID,
				SortOrder: i + 1,
			}
		}
		_, err := idb.
			NewInsert().
			Model(&rows).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	return nil
}

func deleteAssociations(ctx context.Context, idb bun.IDB, bookID int) error {
	_, err := idb.
		NewDelete().
		Model((*models.BookAuthor)(nil)).
		Where("book_id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = idb.
		NewDelete().
		Model((*models.BookGenre)(nil)).
		Where("book_id = ?", bookID).
		Exec(ctx)
	return errors.WithStack(err)
}

// loadAssociations eagerly fetches the author and genre sets for the given
// books in persisted sort_order.
func loadAssociations(ctx context.Context, idb bun.IDB, books []*models.Book) error {
	if len(books) == 0 {
		return nil
	}

	ids := make([]int, len(books))
	byID := make(map[int]*models.Book, len(books))
	for i, book := range books {
		ids[i] = book.ID
		book.Authors = []*models.Author{}
		book.Genres = []*models.Genre{}
		byID[book.ID] = book
	}

	bookAuthors := []*models.BookAuthor{}
	err := idb.
		NewSelect().
		Model(&bookAuthors).
		Relation("Author").
		Where("ba.book_id IN (?)", bun.In(ids)).
		OrderExpr("ba.book_id ASC, ba.sort_order ASC").
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, row := range bookAuthors {
		if book, ok := byID[row.BookID]; ok {
			book.Authors = append(book.Authors, row.Author)
		}
	}

	bookGenres := []*models.BookGenre{}
	err = idb.
		NewSelect().
		Model(&bookGenres).
		Relation("Genre").
		Where("bg.book_id IN (?)", bun.In(ids)).
		OrderExpr("bg.book_id ASC, bg.sort_order ASC").
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, row := range bookGenres {
		if book, ok := byID[row.BookID]; ok {
			book.Genres = append(book.Genres, row.Genre)
		}
	}

	return nil
}

func containsPattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
