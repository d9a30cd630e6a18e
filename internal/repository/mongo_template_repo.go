package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hitoshi/resumekit/internal/database"
	"github.com/hitoshi/resumekit/internal/model"
)

const templateCollection = "templates"

type templateDocument struct {
	ID           string               `bson:"_id"`
	Name         string               `bson:"name"`
	Description  string               `bson:"description"`
	Category     string               `bson:"category"`
	PreviewImage string               `bson:"previewImage"`
	Thumbnail    string               `bson:"thumbnailImage"`
	IsPremium    bool                 `bson:"isPremium"`
	IsActive     bool                 `bson:"isActive"`
	Popularity   int                  `bson:"popularity"`
	Tags         []string             `bson:"tags"`
	Design       model.TemplateDesign `bson:",inline"`
	CreatedAt    time.Time            `bson:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
}

func (d *templateDocument) toModel() *model.Template {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	design := d.Design
	design.Normalize()
	return &model.Template{
		ID:             d.ID,
		Name:           d.Name,
		Description:    d.Description,
		Category:       model.TemplateCategory(d.Category),
		PreviewImage:   d.PreviewImage,
		Thumbnail:      d.Thumbnail,
		IsPremium:      d.IsPremium,
		IsActive:       d.IsActive,
		Popularity:     d.Popularity,
		Tags:           tags,
		TemplateDesign: design,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// SeedTemplates はtemplatesコレクションが空の場合に初期カタログを投入する。
func SeedTemplates(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(templateCollection)

	count, err := coll.EstimatedDocumentCount(ctx)
	if err != nil {
		return unavailable("count templates", err)
	}
	if count > 0 {
		return backfillTemplateDesigns(ctx, coll)
	}

	now := time.Now().UTC()
	docs := make([]any, 0, len(DefaultTemplates()))
	for _, t := range DefaultTemplates() {
		docs = append(docs, templateDocument{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Category:    string(t.Category),
			IsPremium:   t.IsPremium,
			IsActive:    true,
			Popularity:  t.Popularity,
			Tags:        t.Tags,
			Design:      t.TemplateDesign,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	// 複数インスタンスが同時に起動した場合の重複は無視する
	_, err = coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return unavailable("seed templates", err)
	}
	return nil
}

// backfillTemplateDesigns はセクション定義を持たない既存の初期テンプレートにデザインを補完する。
func backfillTemplateDesigns(ctx context.Context, coll *mongo.Collection) error {
	for _, t := range DefaultTemplates() {
		_, err := coll.UpdateOne(ctx,
			bson.M{"_id": t.ID, "sections": bson.M{"$exists": false}},
			bson.M{"$set": t.TemplateDesign},
		)
		if err != nil {
			return unavailable("backfill template design", err)
		}
	}
	return nil
}

// MongoTemplateRepo はMongoDBを使用したテンプレートリポジトリ。
type MongoTemplateRepo struct {
	store *database.MongoStore
}

// NewMongoTemplateRepo はMongoTemplateRepoを生成する。
func NewMongoTemplateRepo(store *database.MongoStore) *MongoTemplateRepo {
	return &MongoTemplateRepo{store: store}
}

// ListActive は有効なテンプレートを人気順で返す。
func (r *MongoTemplateRepo) ListActive(ctx context.Context, category model.TemplateCategory) ([]*model.Template, error) {
	coll, err := r.store.Collection(ctx, templateCollection)
	if err != nil {
		return nil, unavailable("connect to mongodb", err)
	}

	filter := bson.M{"isActive": true}
	if category != "" {
		filter["category"] = string(category)
	}

	cursor, err := coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "popularity", Value: -1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, unavailable("list templates", err)
	}
	defer cursor.Close(ctx)

	var docs []templateDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, unavailable("decode templates", err)
	}

	templates := make([]*model.Template, 0, len(docs))
	for i := range docs {
		templates = append(templates, docs[i].toModel())
	}
	return templates, nil
}

// FindByID は指定IDの有効なテンプレートを取得する。見つからない場合はnilを返す。
func (r *MongoTemplateRepo) FindByID(ctx context.Context, id string) (*model.Template, error) {
	coll, err := r.store.Collection(ctx, templateCollection)
	if err != nil {
		return nil, unavailable("connect to mongodb", err)
	}

	var doc templateDocument
	err = coll.FindOne(ctx, bson.M{"_id": id, "isActive": true}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find template by ID", err)
	}
	return doc.toModel(), nil
}

// MongoBootstraps はMongoStoreの接続時に実行する初期化処理一式を返す。
func MongoBootstraps() []database.MongoBootstrap {
	return []database.MongoBootstrap{EnsureIdentityIndexes, EnsureResumeIndexes, SeedTemplates}
}

// compile-time interface check
var _ TemplateStore = (*MongoTemplateRepo)(nil)
