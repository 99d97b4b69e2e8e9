package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"villa-api/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEncode(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	villa := &domain.Villa{ID: 3, Name: "Lake View"}
	event := NewEvent(ActionCreated, villa.ID, villa, at)

	body, err := event.Encode()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "villa.created", decoded["action"])
	assert.Equal(t, float64(3), decoded["villa_id"])
	assert.Equal(t, "Lake View", decoded["villa"].(map[string]interface{})["name"])
	assert.Equal(t, "2024-05-01T10:00:00Z", decoded["occurred_at"])
	assert.True(t, event.OccurredAt.Equal(at))
}

func TestEventEncode_DeleteOmitsVilla(t *testing.T) {
	body, err := NewEvent(ActionDeleted, 1, nil, time.Now()).Encode()
	require.NoError(t, err)
	assert.NotContains(t, string(body), `"villa":`)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), NewEvent(ActionUpdated, 1, nil, time.Now())))
	assert.NoError(t, p.Close())
}
