package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"flight-scraper/models"
)

const flightsCollection = "flights"

// MongoStore persists cached search entries in MongoDB. A unique compound
// index on the search key tuple is the storage-level guarantee that two
// concurrent creators cannot both succeed.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects, pings and ensures the key index.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	collection := client.Database(database).Collection(flightsCollection)

	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "from", Value: 1},
			{Key: "to", Value: 1},
			{Key: "departureDate", Value: 1},
			{Key: "returnDate", Value: 1},
			{Key: "travelClass", Value: 1},
			{Key: "airline", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := collection.Indexes().CreateOne(connectCtx, indexModel); err != nil {
		return nil, fmt.Errorf("mongo: create index: %w", err)
	}

	return &MongoStore{client: client, collection: collection}, nil
}

func keyFilter(key models.SearchKey) bson.M {
	return bson.M{
		"from":          key.From,
		"to":            key.To,
		"departureDate": key.DepartureDate,
		"returnDate":    key.ReturnDate,
		"travelClass":   key.TravelClass,
		"airline":       key.Airline,
	}
}

// Upsert applies the freshness rule with a conditional update first, so a
// stale entry is replaced in one atomic write and two concurrent refreshers
// cannot interleave a read-modify-write.
func (s *MongoStore) Upsert(ctx context.Context, key models.SearchKey, flights []models.FlightRecord, window time.Duration) (*models.CachedSearchEntry, UpsertOutcome, error) {
	now := time.Now().UTC()
	staleBound := now.Add(-window)

	staleFilter := keyFilter(key)
	staleFilter["lastUpdatedAt"] = bson.M{"$lte": staleBound}

	res, err := s.collection.UpdateOne(ctx, staleFilter, bson.M{"$set": bson.M{
		"flights":       flights,
		"lastUpdatedAt": now,
	}})
	if err != nil {
		return nil, "", fmt.Errorf("mongo: refresh: %w", err)
	}
	if res.ModifiedCount > 0 {
		entry, err := s.findByKey(ctx, key)
		if err != nil {
			return nil, "", err
		}
		return entry, OutcomeRefreshed, nil
	}

	entry, err := s.findByKey(ctx, key)
	if err == nil {
		return entry, OutcomeHit, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, "", err
	}

	doc := models.CachedSearchEntry{
		ID:            primitive.NewObjectID().Hex(),
		From:          key.From,
		To:            key.To,
		DepartureDate: key.DepartureDate,
		ReturnDate:    key.ReturnDate,
		TravelClass:   key.TravelClass,
		Airline:       key.Airline,
		Flights:       flights,
		LastUpdatedAt: now,
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		// Another caller created the entry between our lookup and insert;
		// the unique index turned that race into a duplicate-key error.
		if mongo.IsDuplicateKeyError(err) {
			existing, findErr := s.findByKey(ctx, key)
			if findErr != nil {
				return nil, "", findErr
			}
			return existing, OutcomeHit, nil
		}
		return nil, "", fmt.Errorf("mongo: insert: %w", err)
	}

	created, err := s.findByKey(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return created, OutcomeCreated, nil
}

func (s *MongoStore) findByKey(ctx context.Context, key models.SearchKey) (*models.CachedSearchEntry, error) {
	var entry models.CachedSearchEntry
	err := s.collection.FindOne(ctx, keyFilter(key)).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		return nil, fmt.Errorf("mongo: find: %w", err)
	}
	return &entry, nil
}

func (s *MongoStore) Read(ctx context.Context, from, to, departureDate, travelClass string) ([]*models.CachedSearchEntry, error) {
	cursor, err := s.collection.Find(ctx, bson.M{
		"from":          from,
		"to":            to,
		"departureDate": departureDate,
		"travelClass":   travelClass,
	})
	if err != nil {
		return nil, fmt.Errorf("mongo: read: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*models.CachedSearchEntry
	for cursor.Next(ctx) {
		var entry models.CachedSearchEntry
		if err := cursor.Decode(&entry); err != nil {
			return nil, fmt.Errorf("mongo: decode: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo: cursor: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
