package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a user account can hold
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// User is the profile document. Following and Followers hold the two sides of
// every follow edge and are written only by the relationship service.
type User struct {
	ID           primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	ExternalID   string               `json:"-" bson:"external_id"` // identity provider subject (Firebase UID / JWT sub)
	Username     string               `json:"username" bson:"username"`
	Email        string               `json:"email" bson:"email"`
	ProfileImage string               `json:"profileImage,omitempty" bson:"profile_image,omitempty"`
	Bio          string               `json:"bio,omitempty" bson:"bio,omitempty"`
	Location     string               `json:"location,omitempty" bson:"location,omitempty"`
	Role         string               `json:"role" bson:"role"`
	IsActive     bool                 `json:"isActive" bson:"is_active"`
	Following    []primitive.ObjectID `json:"following" bson:"following"`
	Followers    []primitive.ObjectID `json:"followers" bson:"followers"`
	CreatedAt    time.Time            `json:"createdAt" bson:"created_at"`
	LastLogin    time.Time            `json:"lastLogin" bson:"last_login"`
}

// IsFollowing reports whether id is present in u.Following
func (u *User) IsFollowing(id primitive.ObjectID) bool {
	return containsID(u.Following, id)
}

// Follow records the edge u -> target on both documents.
func (u *User) Follow(target *User) {
	u.Following = append(u.Following, target.ID)
	target.Followers = append(target.Followers, u.ID)
}

// Unfollow removes the edge u -> target from both documents by id equality.
func (u *User) Unfollow(target *User) {
	u.Following = removeID(u.Following, target.ID)
	target.Followers = removeID(target.Followers, u.ID)
}

// Clone returns a deep copy so stores can hand out documents without sharing slices.
func (u *User) Clone() *User {
	c := *u
	c.Following = append([]primitive.ObjectID(nil), u.Following...)
	c.Followers = append([]primitive.ObjectID(nil), u.Followers...)
	return &c
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// UserSummary is the public shape used in follower/following listings
type UserSummary struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// UserProfile is the public profile with relationship counts instead of raw id lists
type UserProfile struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	ProfileImage   string    `json:"profileImage,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	Location       string    `json:"location,omitempty"`
	Role           string    `json:"role"`
	FollowingCount int       `json:"followingCount"`
	FollowersCount int       `json:"followersCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Summary converts a user to its listing shape
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID.Hex(), Username: u.Username, ProfileImage: u.ProfileImage}
}

// Profile converts a user to its public profile shape
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:             u.ID.Hex(),
		Username:       u.Username,
		ProfileImage:   u.ProfileImage,
		Bio:            u.Bio,
		Location:       u.Location,
		Role:           u.Role,
		FollowingCount: len(u.Following),
		FollowersCount: len(u.Followers),
		CreatedAt:      u.CreatedAt,
	}
}

type RegisterUserRequest struct {
	Username     string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Email        string `json:"email" validate:"required,email"`
	ProfileImage string `json:"profileImage,omitempty" validate:"omitempty,url"`
	Bio          string `json:"bio,omitempty" validate:"omitempty,max=300"`
	Location     string `json:"location,omitempty" validate:"omitempty,max=100"`
}

// RelationshipActionRequest is the body of PATCH /api/user/action.
// Presence and shape are checked by the relationship service so the
// error order stays fixed.
type RelationshipActionRequest struct {
	UserID string `json:"userId"`
	Action string `json:"action"`
}

// RelationshipCounts is returned after a successful follow/unfollow
type RelationshipCounts struct {
	FollowingCount int `json:"followingCount"`
	FollowersCount int `json:"followersCount"`
}

// JwtCustomClaims are the claims accepted from the local JWT identity provider.
// The subject claim carries the external id.
type JwtCustomClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
