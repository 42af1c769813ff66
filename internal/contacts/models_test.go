package contacts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestContact_ToRecord(t *testing.T) {
	id := primitive.NewObjectID()
	created := time.Date(2025, 7, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	lastMessage := time.Date(2025, 7, 19, 8, 0, 0, 0, time.UTC)

	c := Contact{
		ID:              id,
		OwnerID:         "owner-1",
		Name:            "Ann",
		Tags:            []string{"vip"},
		WhatsappOptedIn: true,
		CustomFields: map[string]interface{}{
			"tier":     "gold",
			"score":    int32(42),
			"renewal":  primitive.NewDateTimeFromTime(lastMessage),
			"deleted":  nil,
			"birthday": "2024-02-29T00:00:00Z",
			"signup":   "2025-07-14",
			"code":     "2025-7-14",
		},
		CreatedAt:     created,
		LastMessageAt: &lastMessage,
	}

	record := c.ToRecord()

	assert.Equal(t, id.Hex(), record["id"])
	assert.Equal(t, "Ann", record["name"])
	assert.NotContains(t, record, "email")
	assert.NotContains(t, record, "phone")
	assert.Equal(t, true, record["whatsappOptedIn"])
	assert.Equal(t, created.UTC(), record["createdAt"])
	assert.Equal(t, lastMessage, record["lastMessageAt"])
	assert.Equal(t, []interface{}{"vip"}, record["tags"])

	custom := record["customFields"].(map[string]interface{})
	assert.Equal(t, "gold", custom["tier"])
	assert.Equal(t, 42.0, custom["score"])
	assert.Equal(t, lastMessage, custom["renewal"])
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), custom["birthday"])
	assert.Equal(t, time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), custom["signup"])
	assert.Equal(t, "2025-7-14", custom["code"])
	assert.NotContains(t, custom, "deleted")
}

func TestContact_ToRecord_NoActivity(t *testing.T) {
	record := (&Contact{ID: primitive.NewObjectID()}).ToRecord()
	assert.NotContains(t, record, "lastMessageAt")
	assert.Equal(t, []interface{}{}, record["tags"])
	assert.Equal(t, map[string]interface{}{}, record["customFields"])
}

func TestContactFromPayload(t *testing.T) {
	id := primitive.NewObjectID()

	t.Run("valid", func(t *testing.T) {
		c, err := ContactFromPayload(map[string]interface{}{
			"id":           id.Hex(),
			"ownerId":      "owner-1",
			"name":         "Ann",
			"createdAt":    "2025-07-01T10:00:00Z",
			"customFields": map[string]interface{}{"score": 12.5},
		})
		require.NoError(t, err)
		assert.Equal(t, id, c.ID)
		assert.Equal(t, "owner-1", c.Scope().OwnerID)
		assert.Equal(t, 12.5, c.CustomFields["score"])
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := ContactFromPayload(map[string]interface{}{"ownerId": "owner-1"})
		assert.ErrorContains(t, err, "no id")
	})

	t.Run("missing owner", func(t *testing.T) {
		_, err := ContactFromPayload(map[string]interface{}{"id": id.Hex()})
		assert.ErrorContains(t, err, "no owner")
	})

	t.Run("bad id", func(t *testing.T) {
		_, err := ContactFromPayload(map[string]interface{}{"id": "nope", "ownerId": "o"})
		assert.Error(t, err)
	})
}

func TestPage(t *testing.T) {
	tests := []struct {
		in       Page
		want     Page
		wantSkip int64
	}{
		{in: Page{}, want: Page{Number: 1, Limit: 50}, wantSkip: 0},
		{in: Page{Number: 3, Limit: 20}, want: Page{Number: 3, Limit: 20}, wantSkip: 40},
		{in: Page{Number: 2, Limit: 10_000}, want: Page{Number: 2, Limit: 500}, wantSkip: 500},
	}

	for _, tt := range tests {
		got := tt.in.Normalize()
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.wantSkip, got.Skip())
	}
}
