package registry

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// MongoStore keeps field definitions in a MongoDB collection. Numeric ids
// are drawn from a counter document so that they match the SQL store.
type MongoStore struct {
	Client   *mongo.Client
	Database string
}

type mongoField struct {
	ID           int64    `bson:"_id"`
	EntityType   string   `bson:"entity_type"`
	FieldName    string   `bson:"field_name"`
	FieldLabel   string   `bson:"field_label"`
	FieldType    string   `bson:"field_type"`
	IsRequired   bool     `bson:"is_required"`
	IsHidden     bool     `bson:"is_hidden"`
	Options      []string `bson:"options,omitempty"`
	Placeholder  string   `bson:"placeholder,omitempty"`
	DefaultValue string   `bson:"default_value,omitempty"`
	SortOrder    int      `bson:"sort_order"`
	Validator    string   `bson:"validator,omitempty"`
	Aliases      []string `bson:"aliases,omitempty"`
}

func toMongo(d customfield.FieldDefinition) mongoField {
	return mongoField{
		ID: d.ID, EntityType: string(d.EntityType), FieldName: d.FieldName, FieldLabel: d.FieldLabel,
		FieldType: string(d.FieldType), IsRequired: d.IsRequired, IsHidden: d.IsHidden, Options: d.Options,
		Placeholder: d.Placeholder, DefaultValue: d.DefaultValue, SortOrder: d.SortOrder,
		Validator: d.Validator, Aliases: d.Aliases,
	}
}

func (m mongoField) definition() customfield.FieldDefinition {
	return customfield.FieldDefinition{
		ID: m.ID, EntityType: customfield.EntityType(m.EntityType), FieldName: m.FieldName, FieldLabel: m.FieldLabel,
		FieldType: customfield.FieldType(m.FieldType), IsRequired: m.IsRequired, IsHidden: m.IsHidden, Options: m.Options,
		Placeholder: m.Placeholder, DefaultValue: m.DefaultValue, SortOrder: m.SortOrder,
		Validator: m.Validator, Aliases: m.Aliases,
	}
}

func (s *MongoStore) coll() *mongo.Collection {
	return s.Client.Database(s.Database).Collection("field_definitions")
}

func (s *MongoStore) Fields(ctx context.Context, et customfield.EntityType) ([]customfield.FieldDefinition, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sort_order", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll().Find(ctx, bson.M{"entity_type": string(et)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []customfield.FieldDefinition
	for cur.Next(ctx) {
		var m mongoField
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, m.definition())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) Get(ctx context.Context, et customfield.EntityType, id int64) (customfield.FieldDefinition, error) {
	var m mongoField
	err := s.coll().FindOne(ctx, bson.M{"_id": id, "entity_type": string(et)}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return customfield.FieldDefinition{}, customfield.ErrNotFound
	}
	if err != nil {
		return customfield.FieldDefinition{}, err
	}
	return m.definition(), nil
}

func (s *MongoStore) Create(ctx context.Context, def customfield.FieldDefinition) (customfield.FieldDefinition, error) {
	existing, err := s.Fields(ctx, def.EntityType)
	if err != nil {
		return def, err
	}
	def, err = prepareCreate(def, existing)
	if err != nil {
		return def, err
	}
	id, err := s.nextID(ctx)
	if err != nil {
		return def, fmt.Errorf("allocate id: %w", err)
	}
	def.ID = id
	if _, err := s.coll().InsertOne(ctx, toMongo(def)); err != nil {
		return def, err
	}
	return def, nil
}

func (s *MongoStore) Update(ctx context.Context, def customfield.FieldDefinition) (customfield.FieldDefinition, error) {
	old, err := s.Get(ctx, def.EntityType, def.ID)
	if err != nil {
		return def, err
	}
	def.FieldName = old.FieldName
	if err := def.Check(); err != nil {
		return def, err
	}
	filter := bson.M{"_id": def.ID, "entity_type": string(def.EntityType)}
	if _, err := s.coll().ReplaceOne(ctx, filter, toMongo(def)); err != nil {
		return def, err
	}
	return def, nil
}

func (s *MongoStore) Delete(ctx context.Context, et customfield.EntityType, id int64) error {
	res, err := s.coll().DeleteOne(ctx, bson.M{"_id": id, "entity_type": string(et)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return customfield.ErrNotFound
	}
	return nil
}

func (s *MongoStore) nextID(ctx context.Context) (int64, error) {
	counters := s.Client.Database(s.Database).Collection("counters")
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := counters.FindOneAndUpdate(ctx, bson.M{"_id": "field_definitions"}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&doc)
	return doc.Seq, err
}
