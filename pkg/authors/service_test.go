package authors

import (
	"context"
	"database/sql"
	"testing"

	"github.com/azulbooks/bookstore/pkg/errcodes"
	"github.com/azulbooks/bookstore/pkg/migrations"
	"github.com/azulbooks/bookstore/pkg/models"
	"github.com/azulbooks/bookstore/pkg/pagination"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
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

func TestCreateAuthor_ConflictIsCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	created, err := svc.CreateAuthor(ctx, "Stephen King")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Stephen King", created.Name)

	_, err = svc.CreateAuthor(ctx, "stephen king")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcodes.Conflict("Author already exists with name: stephen king")))

	// The original row is untouched.
	count, err := db.NewSelect().Model((*models.Author)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpdateAuthor_CaseChangeOnSelfIsAllowed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	created, err := svc.CreateAuthor(ctx, "ursula le guin")
	require.NoError(t, err)

	updated, err := svc.UpdateAuthor(ctx, created.ID, "Ursula Le Guin")
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Ursula Le Guin", updated.Name)
}

func TestUpdateAuthor_RenameToExistingNameConflicts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	_, err := svc.CreateAuthor(ctx, "Ann Leckie")
	require.NoError(t, err)
	other, err := svc.CreateAuthor(ctx, "Becky Chambers")
	require.NoError(t, err)

	_, err = svc.UpdateAuthor(ctx, other.ID, "ANN LECKIE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcodes.Conflict("Author already exists with name: ANN LECKIE")))
}

func TestUpdateAuthor_NotFound(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	_, err := svc.UpdateAuthor(ctx, 999, "Nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcodes.NotFoundWithID("Author", 999)))
}

func TestDeleteAuthor_BlockedWhileReferenced(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	author, err := svc.CreateAuthor(ctx, "Frank Herbert")
	require.NoError(t, err)

	book := &models.Book{Title: "Dune", Price: decimal.RequireFromString("9.99")}
	_, err = db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&models.BookAuthor{BookID: book.ID, AuthorID: author.ID, SortOrder: 1}).Exec(ctx)
	require.NoError(t, err)

	err = svc.DeleteAuthor(ctx, author.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcodes.Conflict("Cannot delete author Frank Herbert - has associated books")))

	// Dissociate and the delete goes through.
	_, err = db.NewDelete().Model((*models.BookAuthor)(nil)).Where("author_id = ?", author.ID).Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAuthor(ctx, author.ID))

	_, err = svc.RetrieveAuthor(ctx, author.ID)
	assert.True(t, errors.Is(err, errcodes.NotFoundWithID("Author", author.ID)))
}

func TestListAuthors_NameFilterMatchesSubstring(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	for _, name := range []string{"Stephen King", "Tabitha King", "Peter Straub"} {
		_, err := svc.CreateAuthor(ctx, name)
		require.NoError(t, err)
	}

	name := "king"
	authors, total, err := svc.ListAuthorsWithTotal(ctx, ListAuthorsOptions{
		Name: &name,
		Page: pagination.NewRequest(0, 20, []pagination.Order{{Column: "name", Direction: "ASC"}}),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, authors, 2)
	assert.Equal(t, "Stephen King", authors[0].Name)
	assert.Equal(t, "Tabitha King", authors[1].Name)
}

func TestListAuthors_BlankFilterReturnsEverything(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	for _, name := range []string{"A Author", "B Author"} {
		_, err := svc.CreateAuthor(ctx, name)
		require.NoError(t, err)
	}

	name := "   "
	authors, total, err := svc.ListAuthorsWithTotal(ctx, ListAuthorsOptions{
		Name: &name,
		Page: pagination.NewRequest(0, 20, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, authors, 2)
}

func TestRetrieveAuthorByName_ExactMatchOnly(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	_, err := svc.CreateAuthor(ctx, "Stephen King")
	require.NoError(t, err)

	author, err := svc.RetrieveAuthorByName(ctx, "STEPHEN KING")
	require.NoError(t, err)
	assert.Equal(t, "Stephen King", author.Name)

	// Substrings don't match, unlike the list filter.
	_, err = svc.RetrieveAuthorByName(ctx, "King")
	assert.True(t, errors.Is(err, errcodes.NotFound("Author")))

	_, err = svc.RetrieveAuthorByName(ctx, "  ")
	assert.True(t, errors.Is(err, errcodes.NotFound("Author")))
}

func TestGetBooks_OrderedByTitle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	author, err := svc.CreateAuthor(ctx, "Iain Banks")
	require.NoError(t, err)

	for _, title := range []string{"Use of Weapons", "Consider Phlebas", "The Player of Games"} {
		book := &models.Book{Title: title, Price: decimal.RequireFromString("7.50")}
		_, err = db.NewInsert().Model(book).Exec(ctx)
		require.NoError(t, err)
		_, err = db.NewInsert().Model(&models.BookAuthor{BookID: book.ID, AuthorID: author.ID, SortOrder: 1}).Exec(ctx)
		require.NoError(t, err)
	}

	books, err := svc.GetBooks(ctx, author.ID)
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "Consider Phlebas", books[0].Title)
	assert.Equal(t, "The Player of Games", books[1].Title)
	assert.Equal(t, "Use of Weapons", books[2].Title)
}
