// Package store implements C8: the durable signal log and its
// outcome-resolution / retention-purge background loops.
package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"scanner-go/internal/model"
)

// Store owns the signal collection and its background loops.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// New connects to Mongo and verifies the connection with a ping.
func New(ctx context.Context, mongoURI string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	collection := client.Database("scanner").Collection("signals")
	log.Println("✅ MongoDB connected successfully")

	return &Store{client: client, collection: collection}, nil
}

// Close disconnects from Mongo.
func (s *Store) Close(ctx context.Context) error {
	closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.client.Disconnect(closeCtx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	log.Println("🔌 MongoDB connection closed")
	return nil
}

// Save inserts signal, deduplicating by (market_id, created_at) —
// logging the same signal twice never creates two rows.
func (s *Store) Save(ctx context.Context, signal *model.Signal) error {
	saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"market_id": signal.MarketID, "created_at": signal.CreatedAt}
	existing := s.collection.FindOne(saveCtx, filter)
	if existing.Err() == nil {
		log.Printf("⏭️  [Store] Duplicate signal for %s at %s, skipping", signal.MarketID, signal.CreatedAt)
		return nil
	}
	if existing.Err() != mongo.ErrNoDocuments {
		return fmt.Errorf("check duplicate: %w", existing.Err())
	}

	if _, err := s.collection.InsertOne(saveCtx, signal); err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	log.Printf("💾 [Store] Signal saved: %s %s", signal.MarketID, signal.Side)
	return nil
}

// TickSource lets the resolution loop consult the latest tick seen
// for a market without store depending on the poller/orchestrator
// packages.
type TickSource interface {
	LatestTick(marketID string) (model.Tick, bool)
}

// ResolveOutcomes runs one pass of C8's outcome-resolution loop over
// every open signal, settling WIN/LOSS/VOID per spec.md §4.8.
func (s *Store) ResolveOutcomes(ctx context.Context, ticks TickSource, now time.Time) error {
	resolveCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cursor, err := s.collection.Find(resolveCtx, bson.M{"outcome": bson.M{"$in": []interface{}{nil, ""}}})
	if err != nil {
		return fmt.Errorf("find open signals: %w", err)
	}
	defer cursor.Close(resolveCtx)

	for cursor.Next(resolveCtx) {
		var sig model.Signal
		if err := cursor.Decode(&sig); err != nil {
			log.Printf("⚠️  [Store] decode signal: %v", err)
			continue
		}
		s.resolveOne(resolveCtx, &sig, ticks, now)
	}
	return cursor.Err()
}

func (s *Store) resolveOne(ctx context.Context, sig *model.Signal, ticks TickSource, now time.Time) {
	tick, ok := ticks.LatestTick(sig.MarketID)

	switch {
	case ok && Settled(tick):
		s.settle(ctx, sig, tick, now)
	case now.Sub(sig.CreatedAt) > 24*time.Hour:
		s.void(ctx, sig, now)
	}
}

// Settled is the preserved plain-OR settlement check (Open Question 2):
// closed flag OR settlement-minutes <= 0 OR price extreme. Exported so
// callers outside the resolution loop (the portfolio close trigger)
// can reuse the same rule.
func Settled(tick model.Tick) bool {
	closed := tick.Reason == "market_closed"
	expired := tick.SettlementMinutesLeft <= 0
	priceExtreme := tick.Prices.Yes >= 0.9 || tick.Prices.Yes <= 0.1
	return closed || expired || priceExtreme
}

func (s *Store) settle(ctx context.Context, sig *model.Signal, tick model.Tick, now time.Time) {
	won := (sig.Side == model.SideUp && tick.Prices.Yes > 0.5) || (sig.Side == model.SideDown && tick.Prices.Yes <= 0.5)

	outcome := model.OutcomeLoss
	var entryPrice float64
	if sig.Side == model.SideUp {
		entryPrice = sig.MarketYes
	} else {
		entryPrice = sig.MarketNo
	}

	var pnlPct float64
	if won {
		outcome = model.OutcomeWin
		if entryPrice > 0 {
			pnlPct = (1 - entryPrice) / entryPrice
		}
	} else {
		pnlPct = -1
	}

	update := bson.M{
		"$set": bson.M{
			"outcome":           outcome,
			"outcome_price_yes": tick.Prices.Yes,
			"outcome_price_no":  tick.Prices.No,
			"settled_at":        now,
			"pnl_pct":           pnlPct,
		},
	}
	s.applyUpdate(ctx, sig.ID, update)
}

func (s *Store) void(ctx context.Context, sig *model.Signal, now time.Time) {
	update := bson.M{"$set": bson.M{"outcome": model.OutcomeVoid, "settled_at": now}}
	s.applyUpdate(ctx, sig.ID, update)
}

// applyUpdate is idempotent: resolving the same signal id twice (a
// retried outcome pass racing the timer) produces the same final row,
// since it only ever transitions outcome=null -> a terminal value via
// a filtered update.
func (s *Store) applyUpdate(ctx context.Context, id string, update bson.M) {
	filter := bson.M{"id": id, "outcome": bson.M{"$in": []interface{}{nil, ""}}}
	if _, err := s.collection.UpdateOne(ctx, filter, update); err != nil {
		log.Printf("⚠️  [Store] resolve outcome for %s: %v", id, err)
	}
}

// Purge deletes signals older than retentionDays.
func (s *Store) Purge(ctx context.Context, retentionDays int, now time.Time) (int64, error) {
	purgeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := now.AddDate(0, 0, -retentionDays)
	result, err := s.collection.DeleteMany(purgeCtx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("purge signals: %w", err)
	}
	if result.DeletedCount > 0 {
		log.Printf("🧹 [Store] Purged %d signals older than %d days", result.DeletedCount, retentionDays)
	}
	return result.DeletedCount, nil
}

// SettledOutcomes loads every settled signal for the weight learner.
func (s *Store) SettledOutcomes(ctx context.Context) ([]model.Signal, error) {
	findCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cursor, err := s.collection.Find(findCtx, bson.M{"outcome": bson.M{"$in": []interface{}{model.OutcomeWin, model.OutcomeLoss}}})
	if err != nil {
		return nil, fmt.Errorf("find settled signals: %w", err)
	}
	defer cursor.Close(findCtx)

	var out []model.Signal
	if err := cursor.All(findCtx, &out); err != nil {
		return nil, fmt.Errorf("decode settled signals: %w", err)
	}
	return out, nil
}
