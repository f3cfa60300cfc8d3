package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/pawfolio/backend/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxTxAttempts bounds reruns after serialization failures and deadlocks
const maxTxAttempts = 3

// userRow is the relational shape of models.User. Relationships are not
// columns; they are projected from the follows table.
type userRow struct {
	ID           string `gorm:"primaryKey;size:24"`
	ExternalID   string `gorm:"uniqueIndex;not null"`
	Username     string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	ProfileImage string
	Bio          string `gorm:"size:300"`
	Location     string
	Role         string `gorm:"not null;default:user"`
	IsActive     bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	LastLogin    time.Time
}

func (userRow) TableName() string { return "users" }

// PostgresUserRepository implements UserStore for PostgreSQL. Each follow
// edge is one row in the follows table, unique on (follower_id, following_id).
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// EnsureIndexes migrates the users and follows tables with their unique indexes
func (r *PostgresUserRepository) EnsureIndexes(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&userRow{}, &models.Follow{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	prepareNewUser(user)
	row := toUserRow(user)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return loadUser(r.db.WithContext(ctx), "id = ?", id.Hex())
}

func (r *PostgresUserRepository) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return loadUser(r.db.WithContext(ctx), "external_id = ?", externalID)
}

// GetUsersByIDs returns summaries only; relationship lists are left empty
func (r *PostgresUserRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	hexIDs := make([]string, len(ids))
	for i, id := range ids {
		hexIDs[i] = id.Hex()
	}

	var rows []userRow
	if err := r.db.WithContext(ctx).Where("id IN ?", hexIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		u, err := fromUserRow(row)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return orderByIDs(ids, users), nil
}

// WithinTransaction runs fn in a gorm transaction and reruns it when
// PostgreSQL reports a serialization failure or deadlock.
func (r *PostgresUserRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx UserTx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
			return fn(ctx, &postgresUserTx{db: db, loaded: make(map[primitive.ObjectID]*models.User)})
		})
		if !isRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

// postgresUserTx locks every user row it reads and remembers the loaded
// relationships so a save writes only the edges that changed.
type postgresUserTx struct {
	db     *gorm.DB
	loaded map[primitive.ObjectID]*models.User
}

func (t *postgresUserTx) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return t.lockAndLoad(ctx, "external_id = ?", externalID)
}

func (t *postgresUserTx) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return t.lockAndLoad(ctx, "id = ?", id.Hex())
}

func (t *postgresUserTx) lockAndLoad(ctx context.Context, query string, arg any) (*models.User, error) {
	db := t.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	user, err := loadUser(db, query, arg)
	if err != nil {
		return nil, err
	}
	t.loaded[user.ID] = user.Clone()
	return user, nil
}

// SaveRelationships reconciles the user's arrays against the edges loaded in
// this transaction. Saving both ends of one edge writes the row once.
func (t *postgresUserTx) SaveRelationships(ctx context.Context, user *models.User) error {
	before, ok := t.loaded[user.ID]
	if !ok {
		return fmt.Errorf("save relationships of %s: user was not loaded in this transaction", user.ID.Hex())
	}
	db := t.db.WithContext(ctx)
	self := user.ID.Hex()

	addedFollowing, removedFollowing := diffIDs(before.Following, user.Following)
	addedFollowers, removedFollowers := diffIDs(before.Followers, user.Followers)

	var inserts []models.Follow
	for _, id := range addedFollowing {
		inserts = append(inserts, models.Follow{FollowerID: self, FollowingID: id.Hex()})
	}
	for _, id := range addedFollowers {
		inserts = append(inserts, models.Follow{FollowerID: id.Hex(), FollowingID: self})
	}
	if len(inserts) > 0 {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&inserts).Error; err != nil {
			return fmt.Errorf("insert follows: %w", err)
		}
	}

	for _, id := range removedFollowing {
		if err := db.Where("follower_id = ? AND following_id = ?", self, id.Hex()).Delete(&models.Follow{}).Error; err != nil {
			return fmt.Errorf("delete follow: %w", err)
		}
	}
	for _, id := range removedFollowers {
		if err := db.Where("follower_id = ? AND following_id = ?", id.Hex(), self).Delete(&models.Follow{}).Error; err != nil {
			return fmt.Errorf("delete follow: %w", err)
		}
	}

	t.loaded[user.ID] = user.Clone()
	return nil
}

func loadUser(db *gorm.DB, query string, arg any) (*models.User, error) {
	var row userRow
	if err := db.Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	user, err := fromUserRow(row)
	if err != nil {
		return nil, err
	}

	// relationship reads must not inherit the FOR UPDATE clause
	plain := db.Session(&gorm.Session{NewDB: true})
	if user.Following, err = pluckEdges(plain, "following_id", "follower_id = ?", row.ID); err != nil {
		return nil, err
	}
	if user.Followers, err = pluckEdges(plain, "follower_id", "following_id = ?", row.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func pluckEdges(db *gorm.DB, column, query string, userID string) ([]primitive.ObjectID, error) {
	var hexIDs []string
	if err := db.Model(&models.Follow{}).Where(query, userID).Order("id").Pluck(column, &hexIDs).Error; err != nil {
		return nil, fmt.Errorf("load %s: %w", column, err)
	}
	ids := make([]primitive.ObjectID, 0, len(hexIDs))
	for _, h := range hexIDs {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, fmt.Errorf("corrupt edge id %q: %w", h, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// diffIDs returns the ids present only in after and the ids present only in before
func diffIDs(before, after []primitive.ObjectID) (added, removed []primitive.ObjectID) {
	inBefore := make(map[primitive.ObjectID]struct{}, len(before))
	for _, id := range before {
		inBefore[id] = struct{}{}
	}
	inAfter := make(map[primitive.ObjectID]struct{}, len(after))
	for _, id := range after {
		inAfter[id] = struct{}{}
		if _, ok := inBefore[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range before {
		if _, ok := inAfter[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}

func toUserRow(u *models.User) userRow {
	return userRow{
		ID:           u.ID.Hex(),
		ExternalID:   u.ExternalID,
		Username:     u.Username,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
		Bio:          u.Bio,
		Location:     u.Location,
		Role:         u.Role,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		LastLogin:    u.LastLogin,
	}
}

func fromUserRow(row userRow) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(row.ID)
	if err != nil {
		return nil, fmt.Errorf("corrupt user id %q: %w", row.ID, err)
	}
	return &models.User{
		ID:           id,
		ExternalID:   row.ExternalID,
		Username:     row.Username,
		Email:        row.Email,
		ProfileImage: row.ProfileImage,
		Bio:          row.Bio,
		Location:     row.Location,
		Role:         row.Role,
		IsActive:     row.IsActive,
		Following:    []primitive.ObjectID{},
		Followers:    []primitive.ObjectID{},
		CreatedAt:    row.CreatedAt,
		LastLogin:    row.LastLogin,
	}, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isRetryable matches serialization_failure and deadlock_detected
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
