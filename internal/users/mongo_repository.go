package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const createIndexTimeout = 5 * time.Second

// legacyIDNamespace derives stable ids for documents written before the id
// field existed. Such documents carry only {uid, name, email, picture}.
var legacyIDNamespace = uuid.MustParse("6f0f4c1e-8d2a-4b7e-9a51-3c7d2e9b1f40")

// MongoRepository implements Repository on a MongoDB collection with a unique
// index on uid.
type MongoRepository struct {
	collection *mongo.Collection
}

// NewMongoRepository ensures the uid index exists and returns the repository.
func NewMongoRepository(ctx context.Context, database *mongo.Database) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, createIndexTimeout)
	defer cancel()

	collection := database.Collection("users")
	if _, err := collection.Indexes().CreateOne(
		ctx,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "uid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	); err != nil {
		return nil, errors.Wrap(err, "error adding indexes to users collection")
	}
	return &MongoRepository{collection: collection}, nil
}

// FindBySubject looks up a user by provider subject id.
func (r *MongoRepository) FindBySubject(ctx context.Context, subjectID string) (User, error) {
	var doc userDocument
	err := r.collection.FindOne(ctx, bson.M{"uid": subjectID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, errors.Wrapf(err, "error finding user %q", subjectID)
	}
	return doc.toUser()
}

// InsertIfAbsent inserts user; a duplicate-key error on uid means another login
// created the subject first and the stored document is returned instead.
func (r *MongoRepository) InsertIfAbsent(ctx context.Context, user User) (User, bool, error) {
	if _, err := r.collection.InsertOne(ctx, newUserDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			existing, findErr := r.FindBySubject(ctx, user.SubjectID)
			if findErr != nil {
				return User{}, false, findErr
			}
			return existing, false, nil
		}
		return User{}, false, errors.Wrapf(err, "error inserting new user %q", user.SubjectID)
	}
	return user, true, nil
}

// UpdateProfile refreshes the provider-supplied fields of an existing user.
func (r *MongoRepository) UpdateProfile(ctx context.Context, subjectID, name, email, pictureURL string, updatedAt time.Time) (User, error) {
	var doc userDocument
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"uid": subjectID},
		bson.M{"$set": bson.M{
			"name":      name,
			"email":     email,
			"picture":   pictureURL,
			"updatedAt": updatedAt,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, errors.Wrapf(err, "error updating user %q", subjectID)
	}
	return doc.toUser()
}

// userDocument mirrors the stored shape: {uid, name, email, picture}. id and
// the timestamps are absent on legacy documents.
type userDocument struct {
	ID        string    `bson:"id,omitempty"`
	SubjectID string    `bson:"uid"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Picture   string    `bson:"picture"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func newUserDocument(user User) userDocument {
	return userDocument{
		ID:        user.ID.String(),
		SubjectID: user.SubjectID,
		Name:      user.Name,
		Email:     user.Email,
		Picture:   user.PictureURL,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func (d userDocument) toUser() (User, error) {
	id := uuid.NewSHA1(legacyIDNamespace, []byte(d.SubjectID))
	if d.ID != "" {
		var err error
		if id, err = uuid.Parse(d.ID); err != nil {
			return User{}, errors.Wrapf(err, "error parsing id of user %q", d.SubjectID)
		}
	}
	return User{
		ID:         id,
		SubjectID:  d.SubjectID,
		Name:       d.Name,
		Email:      d.Email,
		PictureURL: d.Picture,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}
