package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFollowUnfollow(t *testing.T) {
	a := &User{ID: primitive.NewObjectID()}
	b := &User{ID: primitive.NewObjectID()}
	c := &User{ID: primitive.NewObjectID()}

	a.Follow(b)
	a.Follow(c)
	c.Follow(b)
	assert.True(t, a.IsFollowing(b.ID))
	assert.Equal(t, []primitive.ObjectID{a.ID, c.ID}, b.Followers)

	a.Unfollow(b)
	assert.False(t, a.IsFollowing(b.ID))
	assert.Equal(t, []primitive.ObjectID{c.ID}, a.Following)
	assert.Equal(t, []primitive.ObjectID{c.ID}, b.Followers)
}

func TestCloneIsDeep(t *testing.T) {
	a := &User{ID: primitive.NewObjectID(), Following: []primitive.ObjectID{primitive.NewObjectID()}}
	c := a.Clone()
	c.Following[0] = primitive.NilObjectID
	assert.NotEqual(t, primitive.NilObjectID, a.Following[0])
}

func TestProfileCounts(t *testing.T) {
	u := &User{
		ID:        primitive.NewObjectID(),
		Username:  "luna",
		Following: []primitive.ObjectID{primitive.NewObjectID()},
		Followers: []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()},
	}
	p := u.Profile()
	assert.Equal(t, u.ID.Hex(), p.ID)
	assert.Equal(t, 1, p.FollowingCount)
	assert.Equal(t, 2, p.FollowersCount)
}
