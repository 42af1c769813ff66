package contacts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"wacrm/internal/constants"
	"wacrm/internal/segment"
)

// Contact is a document of the contacts collection.
type Contact struct {
	ID              primitive.ObjectID     `bson:"_id" json:"id"`
	OwnerID         string                 `bson:"ownerId" json:"ownerId"`
	CompanyID       string                 `bson:"companyId,omitempty" json:"companyId,omitempty"`
	Name            string                 `bson:"name,omitempty" json:"name,omitempty"`
	Email           string                 `bson:"email,omitempty" json:"email,omitempty"`
	Phone           string                 `bson:"phone,omitempty" json:"phone,omitempty"`
	Tags            []string               `bson:"tags,omitempty" json:"tags,omitempty"`
	WhatsappOptedIn bool                   `bson:"whatsappOptedIn" json:"whatsappOptedIn"`
	CustomFields    map[string]interface{} `bson:"customFields,omitempty" json:"customFields,omitempty"`
	CreatedAt       time.Time              `bson:"createdAt" json:"createdAt"`
	LastMessageAt   *time.Time             `bson:"lastMessageAt,omitempty" json:"lastMessageAt,omitempty"`
}

// ContactGroup is a document of the contact_groups collection.
type ContactGroup struct {
	ID        primitive.ObjectID   `bson:"_id" json:"id"`
	OwnerID   string               `bson:"ownerId" json:"ownerId"`
	CompanyID string               `bson:"companyId,omitempty" json:"companyId,omitempty"`
	Name      string               `bson:"name" json:"name"`
	IsActive  bool                 `bson:"isActive" json:"isActive"`
	Contacts  []primitive.ObjectID `bson:"contacts" json:"contacts"`
}

// Page selects one window of a search, 1-based.
type Page struct {
	Number int `form:"page,default=1" binding:"min=1" json:"page"`
	Limit  int `form:"limit,default=50" binding:"min=1,max=500" json:"limit"`
}

// Normalize clamps the page into the supported range.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = constants.DefaultPageSize
	}
	if p.Limit > constants.MaxPageSize {
		p.Limit = constants.MaxPageSize
	}
	return p
}

func (p Page) Skip() int64 {
	return int64(p.Number-1) * int64(p.Limit)
}

// ContactFromPayload decodes a contact carried in an event payload.
func ContactFromPayload(payload map[string]interface{}) (*Contact, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal contact payload: %w", err)
	}
	var contact Contact
	if err := json.Unmarshal(raw, &contact); err != nil {
		return nil, fmt.Errorf("failed to decode contact payload: %w", err)
	}
	if contact.ID.IsZero() {
		return nil, fmt.Errorf("contact payload has no id")
	}
	if contact.OwnerID == "" {
		return nil, fmt.Errorf("contact %s has no owner", contact.ID.Hex())
	}
	return &contact, nil
}

func (c *Contact) Scope() segment.Scope {
	return segment.Scope{OwnerID: c.OwnerID, CompanyID: c.CompanyID}
}

// ToRecord flattens the contact into the variable map filters are evaluated
// against. Unset text fields and null custom values are left out so they
// read as unknown, the same way the stored document omits them.
func (c *Contact) ToRecord() map[string]interface{} {
	record := map[string]interface{}{
		"id":              c.ID.Hex(),
		"whatsappOptedIn": c.WhatsappOptedIn,
		"createdAt":       c.CreatedAt.UTC(),
	}

	for key, value := range map[string]string{"name": c.Name, "email": c.Email, "phone": c.Phone} {
		if value != "" {
			record[key] = value
		}
	}

	if c.LastMessageAt != nil {
		record["lastMessageAt"] = c.LastMessageAt.UTC()
	}

	tags := make([]interface{}, 0, len(c.Tags))
	for _, tag := range c.Tags {
		tags = append(tags, tag)
	}
	record["tags"] = tags

	custom := make(map[string]interface{}, len(c.CustomFields))
	for key, value := range c.CustomFields {
		if normalized, ok := normalizeCustomValue(value); ok {
			custom[key] = normalized
		}
	}
	record["customFields"] = custom

	return record
}

// normalizeCustomValue maps stored and decoded values onto the types the
// evaluator compares: float64, string, bool and time.Time. RFC 3339
// timestamps and YYYY-MM-DD dates (midnight UTC) arriving as JSON strings
// become times, matching how date custom fields are stored.
func normalizeCustomValue(value interface{}) (interface{}, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case string:
		if t, ok := parseStoredDate(v); ok {
			return t, true
		}
		return v, true
	case bool:
		return v, true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return v.String(), true
		}
		return f, true
	case time.Time:
		return v.UTC(), true
	case primitive.DateTime:
		return v.Time().UTC(), true
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return nil, false
		}
		return f, true
	default:
		return v, true
	}
}

func parseStoredDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
