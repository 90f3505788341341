package authors

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/azulbooks/bookstore/pkg/database"
	"github.com/azulbooks/bookstore/pkg/errcodes"
	"github.com/azulbooks/bookstore/pkg/models"
	"github.com/azulbooks/bookstore/pkg/pagination"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type ListAuthorsOptions struct {
	// Name filters by case-insensitive substring match.
	Name *string
	Page pagination.Request
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) RetrieveAuthor(ctx context.Context, id int) (*models.Author, error) {
	return retrieveAuthor(ctx, svc.db, id)
}

// RetrieveAuthorByName looks up an author by case-insensitive exact match. An
// empty or blank name never matches any record; this is a deliberate rule for
// exact-match lookups, distinct from substring search.
func (svc *Service) RetrieveAuthorByName(ctx context.Context, name string) (*models.Author, error) {
	return retrieveAuthorByName(ctx, svc.db, name)
}

// ExistsByName reports whether an author with the given name exists,
// case-insensitively. Empty names report false.
func (svc *Service) ExistsByName(ctx context.Context, name string) (bool, error) {
	_, err := svc.RetrieveAuthorByName(ctx, name)
	if err != nil {
		if errors.Is(err, errcodes.NotFound("Author")) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (svc *Service) ListAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	authors := []*models.Author{}

	q := svc.db.
		NewSelect().
		Model(&authors)

	if opts.Name != nil {
		if name := strings.TrimSpace(*opts.Name); name != "" {
			q = q.Where("LOWER(a.name) LIKE ?", containsPattern(name))
		}
	}
	for _, expr := range opts.Page.OrderExprs("a") {
		q = q.OrderExpr(expr)
	}
	q = q.Limit(opts.Page.Limit()).Offset(opts.Page.Offset())

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return authors, total, nil
}

func (svc *Service) CreateAuthor(ctx context.Context, name string) (*models.Author, error) {
	author := &models.Author{Name: name}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		existing, err := retrieveAuthorByName(ctx, tx, name)
		if err == nil && existing != nil {
			return errcodes.Conflict("Author already exists with name: " + name)
		}
		if err != nil && !errors.Is(err, errcodes.NotFound("Author")) {
			return err
		}

		now := time.Now()
		author.CreatedAt = now
		author.UpdatedAt = now

		_, err = tx.
			NewInsert().
			Model(author).
			Returning("*").
			Exec(ctx)
		if err != nil {
			// Two concurrent creates can both pass the check above; the
			// loser hits the unique index and gets the same conflict.
			if database.IsUniqueViolation(err) {
				return errcodes.Conflict("Author already exists with name: " + name)
			}
			return errors.WithStack(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return author, nil
}

func (svc *Service) UpdateAuthor(ctx context.Context, id int, name string) (*models.Author, error) {
	var author *models.Author

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		author, err = retrieveAuthor(ctx, tx, id)
		if err != nil {
			return err
		}

		// Renaming to a name held by a different record is rejected; renaming
		// to one's own current name, including a pure case change, succeeds.
		existing, err := retrieveAuthorByName(ctx, tx, name)
		if err == nil && existing.ID != id {
			return errcodes.Conflict("Author already exists with name: " + name)
		}
		if err != nil && !errors.Is(err, errcodes.NotFound("Author")) {
			return err
		}

		author.Name = name
		author.UpdatedAt = time.Now()

		_, err = tx.
			NewUpdate().
			Model(author).
			Column("name", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return errcodes.Conflict("Author already exists with name: " + name)
			}
			return errors.WithStack(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return author, nil
}

func (svc *Service) DeleteAuthor(ctx context.Context, id int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		author, err := retrieveAuthor(ctx, tx, id)
		if err != nil {
			return err
		}

		count, err := tx.
			NewSelect().
			Model((*models.BookAuthor)(nil)).
			Where("author_id = ?", id).
			Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if count > 0 {
			return errcodes.Conflict("Cannot delete author " + author.Name + " - has associated books")
		}

		_, err = tx.
			NewDelete().
			Model((*models.Author)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// GetBooks returns the books referencing this author. The back-reference is a
// derived query, not a maintained collection.
func (svc *Service) GetBooks(ctx context.Context, authorID int) ([]*models.Book, error) {
	books := []*models.Book{}

	err := svc.db.
		NewSelect().
		Model(&books).
		Join("INNER JOIN book_authors ba ON ba.book_id = b.id").
		Where("ba.author_id = ?", authorID).
		Order("b.title ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}

func retrieveAuthor(ctx context.Context, idb bun.IDB, id int) (*models.Author, error) {
	author := &models.Author{}

	err := idb.
		NewSelect().
		Model(author).
		Where("a.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFoundWithID("Author", id)
		}
		return nil, errors.WithStack(err)
	}

	return author, nil
}

func retrieveAuthorByName(ctx context.Context, idb bun.IDB, name string) (*models.Author, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errcodes.NotFound("Author")
	}

	author := &models.Author{}

	err := idb.
		NewSelect().
		Model(author).
		Where("LOWER(a.name) = LOWER(?)", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Author")
		}
		return nil, errors.WithStack(err)
	}

	return author, nil
}

func containsPattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
