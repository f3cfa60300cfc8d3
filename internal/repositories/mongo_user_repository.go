package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/pawfolio/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const usersCollection = "users"

// MongoUserRepository implements UserStore for MongoDB. Both sides of a
// follow edge live as arrays inside the user documents.
type MongoUserRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(client *mongo.Client, db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{client: client, collection: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique indexes on the identity fields
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "external_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// CreateUser inserts a new user document
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	prepareNewUser(user)
	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by its ObjectID
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return findUser(ctx, r.collection, bson.M{"_id": id})
}

// GetUserByExternalID retrieves a user by the identity provider subject
func (r *MongoUserRepository) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return findUser(ctx, r.collection, bson.M{"external_id": externalID})
}

// GetUsersByIDs retrieves the users with the given ids, in the order of ids
func (r *MongoUserRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	projection := options.Find().SetProjection(bson.M{"following": 0, "followers": 0})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, projection)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return orderByIDs(ids, users), nil
}

// WithinTransaction opens a session, runs fn inside a snapshot transaction and
// ends the session on every exit path. Transient errors such as write
// conflicts make the driver rerun fn against fresh state.
func (r *MongoUserRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx UserTx) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, &mongoUserTx{session: session, collection: r.collection})
	}, txnOpts)
	return err
}

// mongoUserTx binds every call to the transaction's session
type mongoUserTx struct {
	session    mongo.Session
	collection *mongo.Collection
}

func (t *mongoUserTx) bind(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, t.session)
}

func (t *mongoUserTx) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return findUser(t.bind(ctx), t.collection, bson.M{"external_id": externalID})
}

func (t *mongoUserTx) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return findUser(t.bind(ctx), t.collection, bson.M{"_id": id})
}

// SaveRelationships writes both relationship arrays of the user
func (t *mongoUserTx) SaveRelationships(ctx context.Context, user *models.User) error {
	update := bson.M{
		"$set": bson.M{
			"following": nonNilIDs(user.Following),
			"followers": nonNilIDs(user.Followers),
		},
	}
	res, err := t.collection.UpdateOne(t.bind(ctx), bson.M{"_id": user.ID}, update)
	if err != nil {
		return fmt.Errorf("update relationships of %s: %w", user.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func findUser(ctx context.Context, coll *mongo.Collection, filter bson.M) (*models.User, error) {
	var user models.User
	err := coll.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// nonNilIDs keeps empty arrays as [] in the document instead of null
func nonNilIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}
