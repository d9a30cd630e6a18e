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

const identityCollection = "users"

// identityDocument はusersコレクションのドキュメント。
type identityDocument struct {
	ID            bson.ObjectID `bson:"_id,omitempty"`
	Email         string        `bson:"email"`
	Name          string        `bson:"name"`
	AvatarURL     string        `bson:"avatarUrl,omitempty"`
	Phone         string        `bson:"phone,omitempty"`
	Role          string        `bson:"role"`
	Plan          string        `bson:"subscriptionPlan"`
	Provider      string        `bson:"provider"`
	PasswordHash  string        `bson:"passwordHash,omitempty"`
	OAuthIssuer   string        `bson:"oauthIssuer,omitempty"`
	OAuthSubject  string        `bson:"oauthSubject,omitempty"`
	EmailVerified bool          `bson:"emailVerified"`
	LastLoginAt   *time.Time    `bson:"lastLoginAt,omitempty"`
	CreatedAt     time.Time     `bson:"createdAt"`
	UpdatedAt     time.Time     `bson:"updatedAt"`
}

func (d *identityDocument) toModel() *model.Identity {
	identity := &model.Identity{
		ID:            d.ID.Hex(),
		Email:         d.Email,
		Name:          d.Name,
		AvatarURL:     d.AvatarURL,
		Phone:         d.Phone,
		Role:          model.Role(d.Role),
		Plan:          model.Plan(d.Plan),
		EmailVerified: d.EmailVerified,
		LastLoginAt:   d.LastLoginAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	switch model.Provider(d.Provider) {
	case model.ProviderOAuth:
		identity.Credential = model.OAuthCredential{Issuer: d.OAuthIssuer, SubjectID: d.OAuthSubject}
	default:
		identity.Credential = model.PasswordCredential{PasswordHash: d.PasswordHash}
	}
	return identity
}

// EnsureIdentityIndexes はメールアドレスの一意インデックスを作成する。
// メールアドレスは正規化して保存するため、単純な一意インデックスで大文字小文字を区別しない一意性になる。
func EnsureIdentityIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(identityCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return unavailable("create identity indexes", err)
	}
	return nil
}

// MongoIdentityRepo はMongoDBを使用したアイデンティティリポジトリ。
type MongoIdentityRepo struct {
	store *database.MongoStore
}

// NewMongoIdentityRepo はMongoIdentityRepoを生成する。
func NewMongoIdentityRepo(store *database.MongoStore) *MongoIdentityRepo {
	return &MongoIdentityRepo{store: store}
}

func (r *MongoIdentityRepo) collection(ctx context.Context) (*mongo.Collection, error) {
	coll, err := r.store.Collection(ctx, identityCollection)
	if err != nil {
		return nil, unavailable("connect to mongodb", err)
	}
	return coll, nil
}

// FindByEmail はメールアドレスでアイデンティティを検索する。見つからない場合はnilを返す。
func (r *MongoIdentityRepo) FindByEmail(ctx context.Context, email string, includeHash bool) (*model.Identity, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.FindOne()
	if !includeHash {
		opts.SetProjection(bson.M{"passwordHash": 0})
	}

	var doc identityDocument
	err = coll.FindOne(ctx, bson.M{"email": model.NormalizeEmail(email)}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find identity by email", err)
	}
	return doc.toModel(), nil
}

// FindByID は指定IDのアイデンティティを取得する。見つからない場合はnilを返す。
func (r *MongoIdentityRepo) FindByID(ctx context.Context, id string) (*model.Identity, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	var doc identityDocument
	err = coll.FindOne(ctx, bson.M{"_id": objectID},
		options.FindOne().SetProjection(bson.M{"passwordHash": 0}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find identity by ID", err)
	}
	return doc.toModel(), nil
}

// Create はアイデンティティを作成する。
// メールアドレスが重複する場合はErrConflictを返す。
func (r *MongoIdentityRepo) Create(ctx context.Context, identity *model.Identity) (*model.Identity, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := identityDocument{
		ID:            bson.NewObjectID(),
		Email:         model.NormalizeEmail(identity.Email),
		Name:          identity.Name,
		AvatarURL:     identity.AvatarURL,
		Phone:         identity.Phone,
		Role:          string(identity.Role),
		Plan:          string(identity.Plan),
		Provider:      string(identity.Provider()),
		EmailVerified: identity.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	switch c := identity.Credential.(type) {
	case model.PasswordCredential:
		doc.PasswordHash = c.PasswordHash
	case model.OAuthCredential:
		doc.OAuthIssuer = c.Issuer
		doc.OAuthSubject = c.SubjectID
	}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrConflict
		}
		return nil, unavailable("insert identity", err)
	}

	created := doc.toModel()
	if _, ok := identity.Credential.(model.PasswordCredential); ok {
		created.Credential = model.PasswordCredential{}
	}
	return created, nil
}

// Update はプロフィール項目を更新する。nilの項目は変更しない。
func (r *MongoIdentityRepo) Update(ctx context.Context, id string, update model.IdentityUpdate) (*model.Identity, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.AvatarURL != nil {
		set["avatarUrl"] = *update.AvatarURL
	}
	if update.Phone != nil {
		set["phone"] = *update.Phone
	}

	var doc identityDocument
	if update.IsEmpty() {
		err = coll.FindOne(ctx, bson.M{"_id": objectID},
			options.FindOne().SetProjection(bson.M{"passwordHash": 0}),
		).Decode(&doc)
	} else {
		err = coll.FindOneAndUpdate(ctx,
			bson.M{"_id": objectID},
			bson.M{"$set": set},
			options.FindOneAndUpdate().
				SetReturnDocument(options.After).
				SetProjection(bson.M{"passwordHash": 0}),
		).Decode(&doc)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("update identity", err)
	}
	return doc.toModel(), nil
}

// TouchLastLogin は最終ログイン日時を記録する。
func (r *MongoIdentityRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	result, err := coll.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": bson.M{"lastLoginAt": at}})
	if err != nil {
		return unavailable("update last login", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ IdentityStore = (*MongoIdentityRepo)(nil)
