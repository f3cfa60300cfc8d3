package repositories

import (
	"context"
	"sync"

	"github.com/anonto42/pawfolio/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SaveHook is called before every transactional save; a non-nil error fails the save.
type SaveHook func(call int, user *models.User) error

// MemoryUserRepository is an in-process UserStore. Transactions run one at a
// time and stage their writes until commit.
type MemoryUserRepository struct {
	mu         sync.Mutex
	users      map[primitive.ObjectID]*models.User
	byExternal map[string]primitive.ObjectID
	saveHook   SaveHook
}

// NewMemoryUserRepository creates an empty MemoryUserRepository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:      make(map[primitive.ObjectID]*models.User),
		byExternal: make(map[string]primitive.ObjectID),
	}
}

// SetSaveHook installs a hook used to inject write failures
func (r *MemoryUserRepository) SetSaveHook(hook SaveHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveHook = hook
}

func (r *MemoryUserRepository) EnsureIndexes(ctx context.Context) error {
	return nil
}

func (r *MemoryUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byExternal[user.ExternalID]; ok {
		return ErrDuplicateUser
	}
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return ErrDuplicateUser
		}
	}

	prepareNewUser(user)
	r.users[user.ID] = user.Clone()
	r.byExternal[user.ExternalID] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupByID(id)
}

func (r *MemoryUserRepository) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupByExternalID(externalID)
}

func (r *MemoryUserRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			users = append(users, *u.Clone())
		}
	}
	return users, nil
}

func (r *MemoryUserRepository) lookupByID(id primitive.ObjectID) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

func (r *MemoryUserRepository) lookupByExternalID(externalID string) (*models.User, error) {
	id, ok := r.byExternal[externalID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.lookupByID(id)
}

// WithinTransaction holds the store lock for the whole of fn, so concurrent
// transactions are serialised and the second one observes the first's commit.
func (r *MemoryUserRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx UserTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memoryUserTx{repo: r, staged: make(map[primitive.ObjectID]*models.User)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for id, u := range tx.staged {
		r.users[id] = u
	}
	return nil
}

type memoryUserTx struct {
	repo   *MemoryUserRepository
	staged map[primitive.ObjectID]*models.User
	saves  int
}

func (t *memoryUserTx) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	id, ok := t.repo.byExternal[externalID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return t.GetUserByID(ctx, id)
}

func (t *memoryUserTx) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := t.staged[id]; ok {
		return u.Clone(), nil
	}
	return t.repo.lookupByID(id)
}

func (t *memoryUserTx) SaveRelationships(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.saves++
	if t.repo.saveHook != nil {
		if err := t.repo.saveHook(t.saves, user); err != nil {
			return err
		}
	}

	current, err := t.GetUserByID(ctx, user.ID)
	if err != nil {
		return err
	}
	current.Following = append([]primitive.ObjectID(nil), user.Following...)
	current.Followers = append([]primitive.ObjectID(nil), user.Followers...)
	t.staged[user.ID] = current
	return nil
}
