package pagination

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimit(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Limit(0))
	assert.Equal(t, 5, Limit(5))
	assert.Equal(t, MaxPageSize, Limit(10_000))
}

func TestBuildCursorPageInfo(t *testing.T) {
	items := []int{1, 2, 3}

	page, info, err := BuildCursorPageInfo(items, 2, strconv.Itoa)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, page)
	assert.True(t, info.HasMore)

	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "2", cursor.ID)

	page, info, err = BuildCursorPageInfo(items, 3, strconv.Itoa)
	require.NoError(t, err)
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}
