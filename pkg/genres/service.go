package genres

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

type ListGenresOptions struct {
	Name *string
	Page pagination.Request
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) RetrieveGenre(ctx context.Context, id int) (*models.Genre, error) {
	return retrieveGenre(ctx, svc.db, id)
}

// RetrieveGenreByName is a case-insensitive exact-match lookup. Blank names
// never match, unlike the contains semantics of list filtering.
func (svc *Service) RetrieveGenreByName(ctx context.Context, name string) (*models.Genre, error) {
	return retrieveGenreByName(ctx, svc.db, name)
}

func (svc *Service) ExistsByName(ctx context.Context, name string) (bool, error) {
	_, err := svc.RetrieveGenreByName(ctx, name)
	if err != nil {
		if errors.Is(err, errcodes.NotFound("Genre")) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (svc *Service) ListGenresWithTotal(ctx context.Context, opts ListGenresOptions) ([]*models.Genre, int, error) {
	genres := []*models.Genre{}

	q := svc.db.
		NewSelect().
		Model(&genres)

	if opts.Name != nil {
		if name := strings.TrimSpace(*opts.Name); name != "" {
			q = q.Where("LOWER(g.name) LIKE ?", "%"+strings.ToLower(name)+"%")
		}
	}
	for _, expr := range opts.Page.OrderExprs("g") {
		q = q.OrderExpr(expr)
	}
	q = q.Limit(opts.Page.Limit()).Offset(opts.Page.Offset())

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return genres, total, nil
}

func (svc *Service) CreateGenre(ctx context.Context, name string) (*models.Genre, error) {
	genre := &models.Genre{Name: name}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		existing, err := retrieveGenreByName(ctx, tx, name)
		if err == nil && existing != nil {
			return errcodes.Conflict("Genre already exists with name: " + name)
		}
		if err != nil && !errors.Is(err, errcodes.NotFound("Genre")) {
			return err
		}

		now := time.Now()
		genre.CreatedAt = now
		genre.UpdatedAt = now

		_, err = tx.
			NewInsert().
			Model(genre).
			Returning("*").
			Exec(ctx)
		if err != nil {
			// The unique index closes the race the application check leaves
			// open; callers can't tell the two paths apart.
			if database.IsUniqueViolation(err) {
				return errcodes.Conflict("Genre already exists with name: " + name)
			}
			return errors.WithStack(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return genre, nil
}

func (svc *Service) UpdateGenre(ctx context.Context, id int, name string) (*models.Genre, error) {
	var genre *models.Genre

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		genre, err = retrieveGenre(ctx, tx, id)
		if err != nil {
			return err
		}

		existing, err := retrieveGenreByName(ctx, tx, name)
		if err == nil && existing.ID != id {
			return errcodes.Conflict("Genre already exists with name: " + name)
		}
		if err != nil && !errors.Is(err, errcodes.NotFound("Genre")) {
			return err
		}

		genre.Name = name
		genre.UpdatedAt = time.Now()

		_, err = tx.
			NewUpdate().
			Model(genre).
			Column("name", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return errcodes.Conflict("Genre already exists with name: " + name)
			}
			return errors.WithStack(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return genre, nil
}

func (svc *Service) DeleteGenre(ctx context.Context, id int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		genre, err := retrieveGenre(ctx, tx, id)
		if err != nil {
			return err
		}

		count, err := tx.
			NewSelect().
			Model((*models.BookGenre)(nil)).
			Where("genre_id = ?", id).
			Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if count > 0 {
			return errcodes.Conflict("Cannot delete genre " + genre.Name + " - has associated books")
		}

		_, err = tx.
			NewDelete().
			Model((*models.Genre)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// GetBooks returns the books tagged with this genre.
func (svc *Service) GetBooks(ctx context.Context, genreID int) ([]*models.Book, error) {
	books := []*models.Book{}

	err := svc.db.
		NewSelect().
		Model(&books).
		Join("INNER JOIN book_genres bg ON bg.book_id = b.id").
		Where("bg.genre_id = ?", genreID).
		Order("b.title ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}

func retrieveGenre(ctx context.Context, idb bun.IDB, id int) (*models.Genre, error) {
	genre := &models.Genre{}

	err := idb.
		NewSelect().
		Model(genre).
		Where("g.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFoundWithID("Genre", id)
		}
		return nil, errors.WithStack(err)
	}

	return genre, nil
}

func retrieveGenreByName(ctx context.Context, idb bun.IDB, name string) (*models.Genre, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errcodes.NotFound("Genre")
	}

	genre := &models.Genre{}

	err := idb.
		NewSelect().
		Model(genre).
		Where("LOWER(g.name) = LOWER(?)", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Genre")
		}
		return nil, errors.WithStack(err)
	}

	return genre, nil
}
