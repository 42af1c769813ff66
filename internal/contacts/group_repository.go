package contacts

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"wacrm/internal/constants"
	"wacrm/internal/segment"
)

// GroupRepository reads contact groups for membership resolution.
type GroupRepository struct {
	collection *mongo.Collection
}

func NewGroupRepository(db *mongo.Database) *GroupRepository {
	return &GroupRepository{
		collection: db.Collection(constants.ContactGroupsCollection),
	}
}

// FindActiveGroups loads the active groups among refs owned by scope in a
// single query. Refs that are not valid ids cannot name a group and are
// ignored.
func (r *GroupRepository) FindActiveGroups(ctx context.Context, scope segment.Scope, refs []string) ([]segment.Group, error) {
	ids := make(bson.A, 0, len(refs))
	for _, ref := range refs {
		id, err := primitive.ObjectIDFromHex(ref)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	filter := ScopeFilter(scope)
	filter["_id"] = bson.M{"$in": ids}
	filter["isActive"] = true

	opts := options.Find().SetProjection(bson.M{"contacts": 1})

	start := time.Now()
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		observeQuery("find_groups", start, err)
		return nil, fmt.Errorf("failed to find contact groups: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []ContactGroup
	if err := cursor.All(ctx, &docs); err != nil {
		observeQuery("find_groups", start, err)
		return nil, fmt.Errorf("failed to decode contact groups: %w", err)
	}
	observeQuery("find_groups", start, nil)

	groups := make([]segment.Group, 0, len(docs))
	for _, doc := range docs {
		members := make([]string, 0, len(doc.Contacts))
		for _, id := range doc.Contacts {
			members = append(members, id.Hex())
		}
		groups = append(groups, segment.Group{ID: doc.ID.Hex(), MemberIDs: members})
	}
	return groups, nil
}
