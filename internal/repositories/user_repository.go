package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/pawfolio/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
)

// UserRepository defines the non-transactional user operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	EnsureIndexes(ctx context.Context) error
}

// UserTx is a handle bound to one open transaction. Reads observe the
// transaction's snapshot and writes become visible only on commit.
type UserTx interface {
	GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	SaveRelationships(ctx context.Context, user *models.User) error
}

// Transactor runs fn inside a multi-document transaction. The transaction
// commits only when fn returns nil; any error, panic or context cancellation
// aborts it, and the error returned by fn is returned unchanged.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx UserTx) error) error
}

// UserStore is what a storage backend provides to the handlers
type UserStore interface {
	UserRepository
	Transactor
}

// orderByIDs returns users in the order of ids, skipping ids with no match
func orderByIDs(ids []primitive.ObjectID, users []models.User) []models.User {
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out
}

// prepareNewUser fills the store-assigned and defaulted fields of a new user
func prepareNewUser(user *models.User) {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.LastLogin = now
	user.IsActive = true
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
}
