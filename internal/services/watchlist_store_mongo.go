package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vikasavnish/stockwatch/internal/models"
)

// WatchlistCollection is the collection holding watchlist documents.
const WatchlistCollection = "watchlists"

// mongoWatchlistStore implements WatchlistStore on a MongoDB collection
type mongoWatchlistStore struct {
	coll *mongo.Collection
}

// NewMongoWatchlistStore creates a watchlist store on db and ensures the
// (userId, symbol) unique index exists.
func NewMongoWatchlistStore(ctx context.Context, db *mongo.Database) (WatchlistStore, error) {
	coll := db.Collection(WatchlistCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "symbol", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("userId_symbol"),
	})
	if err != nil {
		return nil, fmt.Errorf("create watchlist index: %w", err)
	}

	return &mongoWatchlistStore{coll: coll}, nil
}

func (s *mongoWatchlistStore) Exists(ctx context.Context, userID, symbol string) (bool, error) {
	userID, symbol = normalizeKey(userID, symbol)
	if userID == "" || symbol == "" {
		return false, nil
	}

	err := s.coll.FindOne(ctx, bson.M{"userId": userID, "symbol": symbol}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check watchlist entry: %w", err)
	}
	return true, nil
}

func (s *mongoWatchlistStore) Add(ctx context.Context, userID, symbol, company string) error {
	userID, symbol = normalizeKey(userID, symbol)
	if userID == "" || symbol == "" {
		return nil
	}

	exists, err := s.Exists(ctx, userID, symbol)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return s.insert(ctx, userID, symbol, company)
}

// insert creates the document without checking for it first. A duplicate
// that trips the unique index is not an error.
func (s *mongoWatchlistStore) insert(ctx context.Context, userID, symbol, company string) error {
	doc := models.WatchlistEntry{
		UserID:  userID,
		Symbol:  symbol,
		Company: strings.TrimSpace(company),
		AddedAt: time.Now().UTC(),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("add watchlist entry: %w", err)
	}
	return nil
}

func (s *mongoWatchlistStore) Remove(ctx context.Context, userID, symbol string) error {
	userID, symbol = normalizeKey(userID, symbol)
	if userID == "" || symbol == "" {
		return nil
	}

	exists, err := s.Exists(ctx, userID, symbol)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if _, err := s.coll.DeleteOne(ctx, bson.M{"userId": userID, "symbol": symbol}); err != nil {
		return fmt.Errorf("remove watchlist entry: %w", err)
	}
	return nil
}

// ListForUser returns the user's documents in insertion order
func (s *mongoWatchlistStore) ListForUser(ctx context.Context, userID string) ([]models.WatchlistEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		UserID  string    `bson:"userId"`
		Symbol  string    `bson:"symbol"`
		Company string    `bson:"company"`
		AddedAt time.Time `bson:"addedAt"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode watchlist: %w", err)
	}

	entries := make([]models.WatchlistEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, normalizeEntry(models.WatchlistEntry{
			UserID:  d.UserID,
			Symbol:  d.Symbol,
			Company: d.Company,
			AddedAt: d.AddedAt,
		}))
	}
	return entries, nil
}
