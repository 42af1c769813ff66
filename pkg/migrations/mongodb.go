package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wacrm/internal/constants"
)

// ContactIndexes back the scoped, sorted contact search.
func ContactIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "lastMessageAt", Value: -1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_contacts_owner_recent"),
		},
		{
			Keys:    bson.D{{Key: "companyId", Value: 1}, {Key: "ownerId", Value: 1}, {Key: "lastMessageAt", Value: -1}},
			Options: options.Index().SetName("idx_contacts_company_owner_recent"),
		},
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "tags", Value: 1}},
			Options: options.Index().SetName("idx_contacts_owner_tags"),
		},
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "whatsappOptedIn", Value: 1}},
			Options: options.Index().SetName("idx_contacts_owner_opt_in"),
		},
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_contacts_owner_created"),
		},
	}
}

func ContactGroupIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index().SetName("idx_contact_groups_owner_active"),
		},
		{
			Keys:    bson.D{{Key: "companyId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index().SetName("idx_contact_groups_company_active"),
		},
	}
}

// EnsureMongoIndexes creates the contact and contact group indexes. Existing
// indexes with the same name are left alone.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	collections := map[string][]mongo.IndexModel{
		constants.ContactsCollection:      ContactIndexes(),
		constants.ContactGroupsCollection: ContactGroupIndexes(),
	}

	for name, indexes := range collections {
		_, err := db.Collection(name).Indexes().CreateMany(ctx, indexes)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}
