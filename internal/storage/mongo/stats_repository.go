package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/db"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/links"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	dailyCollection   = "clicks_daily"
	appliedCollection = "clicks_daily_applied"

	// Redelivery after this long is counted again.
	appliedRetention = 7 * 24 * time.Hour
	indexTimeout     = 10 * time.Second
)

// ClickStatsRepository holds per-day click totals projected from the click
// stream, plus one marker per applied event id.
type ClickStatsRepository struct {
	daily   *mongo.Collection
	applied *mongo.Collection
}

type dailyDoc struct {
	Code     string  `bson:"code"`
	Date     string  `bson:"date"`
	Count    int64   `bson:"count"`
	Earnings float64 `bson:"earnings"`
}

func NewClickStatsRepository(m *db.Mongo) (*ClickStatsRepository, error) {
	repo := &ClickStatsRepository{
		daily:   m.Collection(dailyCollection),
		applied: m.Collection(appliedCollection),
	}

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()
	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("click stats indexes: %w", err)
	}
	return repo, nil
}

func (r *ClickStatsRepository) ensureIndexes(ctx context.Context) error {
	// One document per code and day; range reads walk the same index.
	if _, err := r.daily.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("code_date"),
	}); err != nil {
		return err
	}
	_, err := r.applied.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "appliedAt", Value: 1}},
		Options: options.Index().
			SetExpireAfterSeconds(int32(appliedRetention / time.Second)).
			SetName("applied_ttl"),
	})
	return err
}

// IncDaily adds one click and its earnings to code's total for the UTC day
// of at. It reports false when eventID was already applied. An empty eventID
// is always applied.
func (r *ClickStatsRepository) IncDaily(ctx context.Context, eventID, code string, at time.Time, earned float64) (bool, error) {
	if eventID != "" {
		marker := bson.D{
			{Key: "_id", Value: eventID},
			{Key: "code", Value: code},
			{Key: "appliedAt", Value: time.Now().UTC()},
		}
		if _, err := r.applied.InsertOne(ctx, marker); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return false, nil
			}
			return false, fmt.Errorf("mark click event: %w", err)
		}
	}

	day := dayKey(at)
	_, err := r.daily.UpdateOne(ctx,
		bson.D{{Key: "code", Value: code}, {Key: "date", Value: day}},
		bson.D{{Key: "$inc", Value: bson.D{
			{Key: "count", Value: int64(1)},
			{Key: "earnings", Value: earned},
		}}},
		options.Update().SetUpsert(true),
	)
	if err == nil {
		return true, nil
	}

	// Drop the marker so the redelivered event is not mistaken for a duplicate.
	if eventID != "" {
		if _, derr := r.applied.DeleteOne(context.WithoutCancel(ctx), bson.D{{Key: "_id", Value: eventID}}); derr != nil {
			err = errors.Join(err, fmt.Errorf("unmark click event: %w", derr))
		}
	}
	return false, fmt.Errorf("increment daily clicks: %w", err)
}

// GetDaily returns the stored days for code between from and to inclusive,
// oldest first. Days without clicks are absent.
func (r *ClickStatsRepository) GetDaily(ctx context.Context, code string, from, to time.Time) ([]links.DailyCount, error) {
	filter := bson.D{
		{Key: "code", Value: code},
		{Key: "date", Value: bson.D{
			{Key: "$gte", Value: dayKey(from)},
			{Key: "$lte", Value: dayKey(to)},
		}},
	}
	cur, err := r.daily.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find daily clicks: %w", err)
	}

	var docs []dailyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode daily clicks: %w", err)
	}
	out := make([]links.DailyCount, len(docs))
	for i, d := range docs {
		out[i] = links.DailyCount{Date: d.Date, Count: d.Count}
	}
	return out, nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
