package database

import (
	"path/filepath"
	"testing"

	"hubbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.Nop()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testHubs() []*models.Hub {
	return []*models.Hub{
		{ID: 1, Name: "Central Hub", Timezone: "Asia/Manila", DefaultSlots: []string{"09:00", "09:30", "10:00"}, Active: true},
		{ID: 2, Name: "North Hub", Timezone: "Asia/Manila", DefaultSlots: []string{"08:00", "08:30"}, Active: true},
		{ID: 3, Name: "Closed Hub", Timezone: "Asia/Manila", DefaultSlots: []string{"10:00"}, Active: false},
	}
}

func TestGetHub(t *testing.T) {
	db := setupTestDB(t)
	db.SetHubs(testHubs())

	hub, err := db.GetHub(1)
	require.NoError(t, err)
	assert.Equal(t, "Central Hub", hub.Name)
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, hub.DefaultSlots)

	_, err = db.GetHub(99)
	assert.ErrorIs(t, err, ErrHubNotFound)

	// Inactive hubs are invisible to the booking surface.
	_, err = db.GetHub(3)
	assert.ErrorIs(t, err, ErrHubNotFound)
}

func TestGetHubsKeepsOrder(t *testing.T) {
	db := setupTestDB(t)
	db.SetHubs(testHubs())

	hubs := db.GetHubs()
	require.Len(t, hubs, 3)
	assert.Equal(t, int64(1), hubs[0].ID)
	assert.Equal(t, int64(2), hubs[1].ID)
	assert.Equal(t, int64(3), hubs[2].ID)
}

func TestSetHubsReplacesCatalog(t *testing.T) {
	db := setupTestDB(t)
	db.SetHubs(testHubs())

	db.SetHubs([]*models.Hub{
		{ID: 7, Name: "Replacement", Active: true},
	})

	_, err := db.GetHub(1)
	assert.ErrorIs(t, err, ErrHubNotFound)

	hub, err := db.GetHub(7)
	require.NoError(t, err)
	assert.Equal(t, "Replacement", hub.Name)
}
