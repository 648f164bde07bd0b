package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sidvijay2004/trading-agent/internal/model"
)

// Database and collection names shared with existing deployments.
const (
	SentimentDB        = "sentimentData"
	TradingDB          = "tradingData"
	DecisionCollection = "trade_decisions"
)

// Mongo is the document-store implementation.
type Mongo struct {
	client    *mongo.Client
	sentiment *mongo.Database
	decisions *mongo.Collection
}

// NewMongo connects and pings the deployment at uri.
func NewMongo(ctx context.Context, uri string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Mongo{
		client:    client,
		sentiment: client.Database(SentimentDB),
		decisions: client.Database(TradingDB).Collection(DecisionCollection),
	}, nil
}

func (m *Mongo) Recent(ctx context.Context, collection string, limit int) ([]model.SentimentObservation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "observed_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := m.sentiment.Collection(collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find recent %s: %w", collection, err)
	}
	var out []model.SentimentObservation
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode recent %s: %w", collection, err)
	}
	return out, nil
}

func (m *Mongo) Exists(ctx context.Context, collection, externalID string) (bool, error) {
	n, err := m.sentiment.Collection(collection).CountDocuments(ctx,
		bson.D{{Key: "external_id", Value: externalID}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", collection, err)
	}
	return n > 0, nil
}

func (m *Mongo) InsertObservation(ctx context.Context, collection string, obs *model.SentimentObservation) error {
	_, err := m.sentiment.Collection(collection).InsertOne(ctx, obs)
	return err
}

func (m *Mongo) InsertDecision(ctx context.Context, d *model.TradeDecision) error {
	_, err := m.decisions.InsertOne(ctx, bson.M{
		"kind":            model.KindDecision,
		"cycle_id":        d.CycleID,
		"stock":           d.Ticker,
		"decision":        string(d.Action),
		"sentiment_score": d.SentimentScore,
		"expected_impact": d.ExpectedImpact,
		"reason":          d.Reason,
		"timestamp":       d.DecidedAt,
	})
	return err
}

func (m *Mongo) InsertExecution(ctx context.Context, e *model.ExecutionRecord) error {
	doc := bson.M{
		"kind":             model.KindExecution,
		"cycle_id":         e.CycleID,
		"stock":            e.Ticker,
		"decision":         string(e.Action),
		"quantity":         e.Quantity,
		"order_id":         e.OrderID,
		"status":           e.Status,
		"filled_avg_price": nil,
		"submitted_at":     e.SubmittedAt,
		"timestamp":        e.RecordedAt,
	}
	if e.FilledAvgPrice != nil {
		doc["filled_avg_price"] = e.FilledAvgPrice.InexactFloat64()
	}
	_, err := m.decisions.InsertOne(ctx, doc)
	return err
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
