package postgres

import (
	"testing"
	"time"

	"import-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCopyRows_MatchColumns(t *testing.T) {
	city := "Tokyo"
	list := &domain.ListAggregate{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Places: []domain.ListPlace{
			{PlaceID: uuid.New(), DisplayOrder: 0, Note: "first", Place: domain.NormalizedPlace{Name: "A", City: &city, Precision: domain.PrecisionSource}},
			{PlaceID: uuid.New(), DisplayOrder: 1, Place: domain.NormalizedPlace{Name: "B", Precision: domain.PrecisionPlaceholder}},
		},
	}

	places, memberships := toCopyRows(list)
	require.Len(t, places, 2)
	require.Len(t, memberships, 2)

	for _, row := range places {
		assert.Len(t, row, len(placeColumns))
	}
	for _, row := range memberships {
		assert.Len(t, row, len(listPlaceColumns))
	}

	assert.Equal(t, list.Places[0].PlaceID, places[0][0])
	assert.Equal(t, "placeholder", places[1][12])
	assert.Equal(t, list.ID, memberships[1][0])
	assert.Equal(t, 1, memberships[1][2])
	assert.Equal(t, "first", memberships[0][3])
}

func TestMigrationsEmbedded(t *testing.T) {
	data, err := migrationsFS.ReadFile("migrations/001_lists.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS list_places")
}
