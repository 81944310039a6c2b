package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const comparisonsCollection = "comparisons"

// MaxHistoryLimit caps how many records RecentComparisons returns
const MaxHistoryLimit = 100

// MongoStore keeps a history of finished comparisons in MongoDB
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// ComparisonRecord is one finished comparison as stored in MongoDB
type ComparisonRecord struct {
	RecordID       string             `bson:"record_id" json:"record_id"`
	RequestID      string             `bson:"request_id" json:"request_id"`
	Source         string             `bson:"source" json:"source"` // "image" or "text"
	OCRProvider    string             `bson:"ocr_provider,omitempty" json:"ocr_provider,omitempty"`
	ExtractedText  string             `bson:"extracted_text" json:"extracted_text"`
	Answers        map[string]string  `bson:"answers" json:"answers"`
	QualityScores  map[string]float64 `bson:"quality_scores" json:"quality_scores"`
	ConsensusLevel string             `bson:"consensus_level" json:"consensus_level"`
	CommonThemes   []string           `bson:"common_themes" json:"common_themes"`
	BestProvider   string             `bson:"best_provider,omitempty" json:"best_provider,omitempty"`
	DurationMS     int64              `bson:"duration_ms" json:"duration_ms"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

// InitMongoDB initializes MongoDB connection
func InitMongoDB(uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Println("✅ Connected to MongoDB successfully!")
	return &MongoStore{client: client, db: client.Database(dbName)}, nil
}

// Close closes MongoDB connection
func (s *MongoStore) Close() {
	if s == nil || s.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.client.Disconnect(ctx)
	log.Println("MongoDB connection closed")
}

// SaveComparison inserts a finished comparison
func (s *MongoStore) SaveComparison(ctx context.Context, record ComparisonRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	if _, err := s.db.Collection(comparisonsCollection).InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to save comparison: %w", err)
	}
	return nil
}

// RecentComparisons returns the newest comparisons first
func (s *MongoStore) RecentComparisons(ctx context.Context, limit int) ([]ComparisonRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(ClampHistoryLimit(limit)))

	cursor, err := s.db.Collection(comparisonsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparisons: %w", err)
	}
	defer cursor.Close(ctx)

	records := []ComparisonRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode comparisons: %w", err)
	}
	return records, nil
}

// ClampHistoryLimit keeps a requested page size within 1..MaxHistoryLimit (default 20)
func ClampHistoryLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
