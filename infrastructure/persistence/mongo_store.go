package persistence

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
)

// MongoStore is the production IStore. Documents are keyed by _id; filter field
// names are the documents' bson names.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{db: client.Database(database)}
}

func (s *MongoStore) Get(ctx context.Context, collection, key string, out interface{}) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.ErrNotFound
	}
	return err
}

func (s *MongoStore) Set(ctx context.Context, collection, key string, doc interface{}) error {
	_, err := s.db.Collection(collection).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: key}}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) Delete(ctx context.Context, collection, key string) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.D{{Key: "_id", Value: key}})
	return err
}

func (s *MongoStore) Query(ctx context.Context, collection string, f repository.Filter, out interface{}) error {
	opts := options.Find()
	if f.SortField != "" {
		dir := 1
		if f.Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: f.SortField, Value: dir}})
	}
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cursor, err := s.db.Collection(collection).Find(ctx, mongoFilter(f), opts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}

func mongoFilter(f repository.Filter) bson.D {
	filter := bson.D{}
	for k, v := range f.Equals {
		filter = append(filter, bson.E{Key: k, Value: v})
	}
	for _, k := range f.Missing {
		filter = append(filter, bson.E{Key: k, Value: nil})
	}
	if f.SinceField != "" && f.Since != nil {
		filter = append(filter, bson.E{Key: f.SinceField, Value: bson.D{{Key: "$gte", Value: *f.Since}}})
	}
	return filter
}
