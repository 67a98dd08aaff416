package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	analysisCollection = "daily_analysis"
	queryCollection    = "query_history"
)

// ErrNotFound signals that no analyses exist for the requested date.
var ErrNotFound = errors.New("no analyses found")

// AnalysisRecord is one stored synthesis, keyed by (date, type).
type AnalysisRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Date      string             `bson:"date" json:"date"`
	Type      string             `bson:"type" json:"type"`
	Summary   string             `bson:"summary" json:"summary"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any     `bson:"metadata" json:"metadata"`
}

// QueryRecord is one ad-hoc question/answer pair, append-only.
type QueryRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Query     string             `bson:"query" json:"query"`
	Response  string             `bson:"response" json:"response"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any     `bson:"metadata" json:"metadata"`
}

// DailySummaries collects one day's analyses, one field per type. Types that
// were never stored for the date stay null.
type DailySummaries struct {
	Date         string  `json:"date"`
	RecentTrends *string `json:"recent_trends"`
	Clinical     *string `json:"clinical"`
	Research     *string `json:"research"`
}

// Stats summarizes the stored analysis corpus.
type Stats struct {
	TotalAnalyses int64            `json:"total_analyses"`
	UniqueDates   int              `json:"unique_dates"`
	AnalysisTypes []string         `json:"analysis_types"`
	TypeCounts    map[string]int64 `json:"type_counts"`
	LatestDate    string           `json:"latest_date"`
	Status        string           `json:"status"`
}

// Client wraps the MongoDB driver with helpers for the two collections this
// service owns.
type Client struct {
	client   *mongo.Client
	database string
	log      *slog.Logger
}

// New connects to MongoDB and verifies the connection with a ping.
func New(ctx context.Context, uri, database string, logger *slog.Logger) (*Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{client: client, database: database, log: logger}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Ping checks connectivity for health reporting.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

func (c *Client) analyses() *mongo.Collection {
	return c.client.Database(c.database).Collection(analysisCollection)
}

func (c *Client) queries() *mongo.Collection {
	return c.client.Database(c.database).Collection(queryCollection)
}

// StoreDailyAnalysis upserts a synthesis keyed by (date, type). A repeated
// write for the same key overwrites the earlier record; last write wins.
func (c *Client) StoreDailyAnalysis(ctx context.Context, date, typ, summary string, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}

	update := bson.M{"$set": bson.M{
		"date":      date,
		"type":      typ,
		"summary":   summary,
		"timestamp": time.Now().UTC(),
		"metadata":  metadata,
	}}

	_, err := c.analyses().UpdateOne(ctx,
		bson.M{"date": date, "type": typ},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("store %s analysis for %s: %w", typ, date, err)
	}

	c.log.Info("stored daily analysis", slog.String("date", date), slog.String("type", typ))
	return nil
}

// StoreQueryResult appends an ad-hoc query/response pair to the history log.
func (c *Client) StoreQueryResult(ctx context.Context, query, response string, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}

	record := QueryRecord{
		Query:     query,
		Response:  response,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}

	if _, err := c.queries().InsertOne(ctx, record); err != nil {
		return fmt.Errorf("store query result: %w", err)
	}
	return nil
}

// Dates lists every date with at least one stored analysis, newest first.
func (c *Client) Dates(ctx context.Context) ([]string, error) {
	raw, err := c.analyses().Distinct(ctx, "date", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list analysis dates: %w", err)
	}

	dates := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			dates = append(dates, s)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	return dates, nil
}

// HasDate reports whether any analysis exists for the given date.
func (c *Client) HasDate(ctx context.Context, date string) (bool, error) {
	count, err := c.analyses().CountDocuments(ctx, bson.M{"date": date}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check analyses for %s: %w", date, err)
	}
	return count > 0, nil
}

// SummariesByDate returns the day's analyses or ErrNotFound when the date
// has no records at all.
func (c *Client) SummariesByDate(ctx context.Context, date string) (*DailySummaries, error) {
	cursor, err := c.analyses().Find(ctx, bson.M{"date": date})
	if err != nil {
		return nil, fmt.Errorf("find analyses for %s: %w", date, err)
	}

	var records []AnalysisRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode analyses for %s: %w", date, err)
	}

	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return buildSummaries(date, records), nil
}

// LatestSummaries returns the most recent date's analyses.
func (c *Client) LatestSummaries(ctx context.Context) (*DailySummaries, error) {
	var latest AnalysisRecord
	err := c.analyses().FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})).Decode(&latest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find latest analysis date: %w", err)
	}

	return c.SummariesByDate(ctx, latest.Date)
}

// Statistics counts the stored corpus for the stats endpoint.
func (c *Client) Statistics(ctx context.Context) (*Stats, error) {
	coll := c.analyses()

	total, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("count analyses: %w", err)
	}

	dates, err := c.Dates(ctx)
	if err != nil {
		return nil, err
	}

	rawTypes, err := coll.Distinct(ctx, "type", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list analysis types: %w", err)
	}

	types := make([]string, 0, len(rawTypes))
	counts := make(map[string]int64, len(rawTypes))
	for _, v := range rawTypes {
		typ, ok := v.(string)
		if !ok {
			continue
		}
		types = append(types, typ)

		n, err := coll.CountDocuments(ctx, bson.M{"type": typ})
		if err != nil {
			return nil, fmt.Errorf("count %s analyses: %w", typ, err)
		}
		counts[typ] = n
	}
	sort.Strings(types)

	stats := &Stats{
		TotalAnalyses: total,
		UniqueDates:   len(dates),
		AnalysisTypes: types,
		TypeCounts:    counts,
		Status:        "no data",
	}
	if len(dates) > 0 {
		stats.LatestDate = dates[0]
		stats.Status = "active"
	}

	return stats, nil
}

// RecentQueries returns the newest ad-hoc query records.
func (c *Client) RecentQueries(ctx context.Context, limit int) ([]QueryRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	cursor, err := c.queries().Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("find recent queries: %w", err)
	}

	var records []QueryRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode recent queries: %w", err)
	}
	return records, nil
}

// Dump returns the raw analysis collection for the debug endpoint.
func (c *Client) Dump(ctx context.Context) (map[string]any, error) {
	cursor, err := c.analyses().Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("dump analyses: %w", err)
	}

	var records []AnalysisRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode analysis dump: %w", err)
	}

	dates, err := c.Dates(ctx)
	if err != nil {
		return nil, err
	}

	typeSet := map[string]struct{}{}
	for _, r := range records {
		typeSet[r.Type] = struct{}{}
	}
	types := make([]string, 0, len(typeSet))
	for typ := range typeSet {
		types = append(types, typ)
	}
	sort.Strings(types)

	sample := records
	if len(sample) > 5 {
		sample = sample[:5]
	}

	return map[string]any{
		"total_documents":  len(records),
		"sample_documents": sample,
		"unique_dates":     dates,
		"unique_types":     types,
		"collection_name":  analysisCollection,
		"database_name":    c.database,
	}, nil
}

func buildSummaries(date string, records []AnalysisRecord) *DailySummaries {
	out := &DailySummaries{Date: date}
	for _, record := range records {
		summary := record.Summary
		switch record.Type {
		case "recent_trends":
			out.RecentTrends = &summary
		case "clinical":
			out.Clinical = &summary
		case "research":
			out.Research = &summary
		}
	}
	return out
}
