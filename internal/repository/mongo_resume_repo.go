package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hitoshi/resumekit/internal/database"
	"github.com/hitoshi/resumekit/internal/model"
)

const resumeCollection = "resumes"

// resumeDocument はresumesコレクションのドキュメント。
type resumeDocument struct {
	ID                  bson.ObjectID `bson:"_id,omitempty"`
	OwnerID             string        `bson:"ownerId"`
	model.ResumeContent `bson:",inline"`
	Analytics           model.Analytics `bson:"analytics"`
	Active              bool            `bson:"active"`
	CreatedAt           time.Time       `bson:"createdAt"`
	UpdatedAt           time.Time       `bson:"updatedAt"`
}

func (d *resumeDocument) toModel() *model.Resume {
	return &model.Resume{
		ID:            d.ID.Hex(),
		OwnerID:       d.OwnerID,
		ResumeContent: d.ResumeContent,
		Analytics:     d.Analytics,
		Active:        d.Active,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// EnsureResumeIndexes は所有者別一覧と保持期間切れ削除のためのインデックスを作成する。
func EnsureResumeIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(resumeCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "active", Value: 1}, {Key: "updatedAt", Value: -1}}},
		{Keys: bson.D{{Key: "active", Value: 1}, {Key: "updatedAt", Value: 1}}},
	})
	if err != nil {
		return unavailable("create resume indexes", err)
	}
	return nil
}

// MongoResumeRepo はMongoDBを使用したレジュメリポジトリ。
type MongoResumeRepo struct {
	store *database.MongoStore
}

// NewMongoResumeRepo はMongoResumeRepoを生成する。
func NewMongoResumeRepo(store *database.MongoStore) *MongoResumeRepo {
	return &MongoResumeRepo{store: store}
}

func (r *MongoResumeRepo) collection(ctx context.Context) (*mongo.Collection, error) {
	coll, err := r.store.Collection(ctx, resumeCollection)
	if err != nil {
		return nil, unavailable("connect to mongodb", err)
	}
	return coll, nil
}

// FindByOwner は所有者の有効なレジュメのサマリーを更新日時の降順で返す。
func (r *MongoResumeRepo) FindByOwner(ctx context.Context, ownerID string) ([]model.ResumeSummary, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx,
		bson.M{"ownerId": ownerID, "active": true},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}),
	)
	if err != nil {
		return nil, unavailable("list resumes by owner", err)
	}
	defer cursor.Close(ctx)

	summaries := []model.ResumeSummary{}
	for cursor.Next(ctx) {
		var doc resumeDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, unavailable("decode resume", err)
		}
		summaries = append(summaries, doc.toModel().Summary())
	}
	if err := cursor.Err(); err != nil {
		return nil, unavailable("iterate resumes", err)
	}
	return summaries, nil
}

// FindByID は指定IDの有効なレジュメを取得する。見つからない場合はnilを返す。
func (r *MongoResumeRepo) FindByID(ctx context.Context, id string) (*model.Resume, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	var doc resumeDocument
	err = coll.FindOne(ctx, bson.M{"_id": objectID, "active": true}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find resume by ID", err)
	}
	return doc.toModel(), nil
}

// Create はレジュメを作成する。
func (r *MongoResumeRepo) Create(ctx context.Context, resume *model.Resume) (*model.Resume, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := resumeDocument{
		ID:            bson.NewObjectID(),
		OwnerID:       resume.OwnerID,
		ResumeContent: resume.ResumeContent,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return nil, unavailable("insert resume", err)
	}
	return doc.toModel(), nil
}

// Update は所有者のレジュメ本体を置き換える。
func (r *MongoResumeRepo) Update(ctx context.Context, id, ownerID string, content model.ResumeContent) (*model.Resume, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	set, err := contentFields(content)
	if err != nil {
		return nil, err
	}
	set = append(set, bson.E{Key: "updatedAt", Value: time.Now().UTC()})

	var doc resumeDocument
	err = coll.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID, "ownerId": ownerID, "active": true},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("update resume", err)
	}
	return doc.toModel(), nil
}

// Deactivate は所有者のレジュメを論理削除する。
func (r *MongoResumeRepo) Deactivate(ctx context.Context, id, ownerID string) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	result, err := coll.UpdateOne(ctx,
		bson.M{"_id": objectID, "ownerId": ownerID, "active": true},
		bson.M{"$set": bson.M{"active": false, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return unavailable("deactivate resume", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementAnalytics は利用イベントのカウンタを1増やす。
func (r *MongoResumeRepo) IncrementAnalytics(ctx context.Context, id, ownerID string, event model.AnalyticsEvent, at time.Time) (*model.Analytics, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	update := bson.M{}
	switch event {
	case model.EventView:
		update["$inc"] = bson.M{"analytics.views": 1}
		update["$set"] = bson.M{"analytics.lastViewedAt": at}
	case model.EventDownload:
		update["$inc"] = bson.M{"analytics.downloads": 1}
	case model.EventShare:
		update["$inc"] = bson.M{"analytics.shares": 1}
	default:
		return nil, fmt.Errorf("unknown analytics event %q", event)
	}

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	var doc resumeDocument
	err = coll.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID, "ownerId": ownerID, "active": true},
		update,
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"analytics": 1}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("increment resume analytics", err)
	}
	return &doc.Analytics, nil
}

// StatsByOwner は所有者の有効なレジュメを集計パイプラインで集計する。
func (r *MongoResumeRepo) StatsByOwner(ctx context.Context, ownerID string) (*model.ResumeStats, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"ownerId": ownerID, "active": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":            nil,
			"totalResumes":   bson.M{"$sum": 1},
			"totalViews":     bson.M{"$sum": "$analytics.views"},
			"totalDownloads": bson.M{"$sum": "$analytics.downloads"},
		}}},
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, unavailable("aggregate resume stats", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		TotalResumes   int   `bson:"totalResumes"`
		TotalViews     int64 `bson:"totalViews"`
		TotalDownloads int64 `bson:"totalDownloads"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, unavailable("decode resume stats", err)
	}

	stats := &model.ResumeStats{}
	if len(results) > 0 {
		stats.TotalResumes = results[0].TotalResumes
		stats.TotalViews = results[0].TotalViews
		stats.TotalDownloads = results[0].TotalDownloads
	}
	return stats, nil
}

// DeleteInactiveBefore は論理削除後にcutoffより前から更新されていないレジュメを物理削除する。
func (r *MongoResumeRepo) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return 0, err
	}

	result, err := coll.DeleteMany(ctx, bson.M{"active": false, "updatedAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, unavailable("delete inactive resumes", err)
	}
	return result.DeletedCount, nil
}

// contentFields はレジュメ本体を$set用のフィールド列に変換する。
func contentFields(content model.ResumeContent) (bson.D, error) {
	raw, err := bson.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resume content: %w", err)
	}
	var fields bson.D
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resume content: %w", err)
	}
	return fields, nil
}

// compile-time interface check
var _ ResumeStore = (*MongoResumeRepo)(nil)
