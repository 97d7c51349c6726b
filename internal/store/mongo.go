package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dilla-go/dilla/internal/schema"
)

// Mongo writes one document per instance into the collection named by the
// model's table. Many-to-many links become arrays of ids on the source
// document.
type Mongo struct {
	client   *mongo.Client
	database string
}

// OpenMongo connects to MongoDB and pings it.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if database == "" {
		return nil, fmt.Errorf("mongodb store requires store.database")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}
	return &Mongo{client: client, database: database}, nil
}

func (m *Mongo) collection(model *schema.Model) *mongo.Collection {
	return m.client.Database(m.database).Collection(model.Table)
}

// document converts instance values to a BSON document keyed by column.
func document(inst *Instance) bson.D {
	cols, vals := columns(inst)
	doc := make(bson.D, 0, len(cols))
	for i, c := range cols {
		if f := primaryKey(inst.Model); f != nil && f.Column == c {
			c = "_id"
		}
		doc = append(doc, bson.E{Key: c, Value: vals[i]})
	}
	return doc
}

func (m *Mongo) Save(ctx context.Context, inst *Instance) error {
	res, err := m.collection(inst.Model).InsertOne(ctx, document(inst))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("saving %s: %w: %v", inst.Model.Key(), ErrUniqueViolation, err)
		}
		return fmt.Errorf("saving %s: %w", inst.Model.Key(), err)
	}
	inst.ID = res.InsertedID
	return nil
}

func (m *Mongo) Link(ctx context.Context, inst *Instance, rel *schema.Relation, ids []any) error {
	if len(ids) == 0 {
		return nil
	}
	update := bson.D{{Key: "$addToSet", Value: bson.D{
		{Key: rel.Name, Value: bson.D{{Key: "$each", Value: ids}}},
	}}}
	if _, err := m.collection(inst.Model).UpdateByID(ctx, inst.ID, update); err != nil {
		return fmt.Errorf("linking %s.%s: %w", inst.Model.Key(), rel.Name, err)
	}
	if inst.Links == nil {
		inst.Links = make(map[string][]any)
	}
	inst.Links[rel.Name] = append(inst.Links[rel.Name], ids...)
	return nil
}

// Sample uses $sample, which picks documents at random server side.
func (m *Mongo) Sample(ctx context.Context, model *schema.Model, n int) ([]*Instance, error) {
	pipeline := bson.A{
		bson.D{{Key: "$sample", Value: bson.D{{Key: "size", Value: n}}}},
		bson.D{{Key: "$project", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cursor, err := m.collection(model).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("sampling documents from %s: %w", model.Table, err)
	}
	defer cursor.Close(ctx)

	var out []*Instance
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding sample document: %w", err)
		}
		inst := NewInstance(model)
		inst.ID = doc["_id"]
		out = append(out, inst)
	}
	return out, cursor.Err()
}

func (m *Mongo) Count(ctx context.Context, model *schema.Model) (int64, error) {
	count, err := m.collection(model).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("counting documents in %s: %w", model.Table, err)
	}
	return count, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
