package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest_Clamping(t *testing.T) {
	req := NewRequest(-3, 0, nil)
	assert.Equal(t, 0, req.Page)
	assert.Equal(t, DefaultSize, req.Size)

	req = NewRequest(2, 150, nil)
	assert.Equal(t, 2, req.Page)
	assert.Equal(t, MaxSize, req.Size)
	assert.Equal(t, 200, req.Offset())
}

func TestOrderExprs_AppendsIDTiebreaker(t *testing.T) {
	req := NewRequest(0, 20, []Order{{Column: "name", Direction: "ASC"}})
	assert.Equal(t, []string{"a.name ASC", "a.id DESC"}, req.OrderExprs("a"))

	// A sort that already mentions id gets no extra tiebreaker.
	req = NewRequest(0, 20, []Order{{Column: "id", Direction: "ASC"}})
	assert.Equal(t, []string{"a.id ASC"}, req.OrderExprs("a"))

	req = NewRequest(0, 20, nil)
	assert.Equal(t, []string{"b.id DESC"}, req.OrderExprs("b"))
}

func TestParseSort(t *testing.T) {
	orders, err := ParseSort([]string{"name,desc", "created_at"}, "id", "name", "created_at")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, Order{Column: "name", Direction: "DESC"}, orders[0])
	assert.Equal(t, Order{Column: "created_at", Direction: "ASC"}, orders[1])

	_, err = ParseSort([]string{"password,asc"}, "id", "name")
	assert.Error(t, err)

	_, err = ParseSort([]string{"name,sideways"}, "id", "name")
	assert.Error(t, err)

	orders, err = ParseSort(nil, "id", "name")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestNewPage_Totals(t *testing.T) {
	req := NewRequest(0, 20, nil)

	page := NewPage([]int{1, 2, 3}, req, 43)
	assert.Equal(t, 3, len(page.Content))
	assert.Equal(t, 43, page.Page.TotalElements)
	assert.Equal(t, 3, page.Page.TotalPages)
	assert.Equal(t, 20, page.Page.Size)
	assert.Equal(t, 0, page.Page.Number)

	// Zero matches yield zero pages and an empty (not nil) content slice.
	page = NewPage[int](nil, req, 0)
	assert.NotNil(t, page.Content)
	assert.Empty(t, page.Content)
	assert.Equal(t, 0, page.Page.TotalPages)
}
