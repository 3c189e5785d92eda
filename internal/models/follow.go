package models

import (
	"errors"
	"time"
)

var (
	ErrSelfFollow       = errors.New("you can't follow yourself")
	ErrPrivilegedFollow = errors.New("this user can't be followed")
	ErrAlreadyFollowing = errors.New("already following this user")
)

// Follow is a directed edge: Follower sees Followed's content in their feed.
type Follow struct {
	FollowerID int       `db:"follower_id"`
	FollowedID int       `db:"followed_id"`
	CreatedAt  time.Time `db:"created_at"`
}

// FollowView is one row of the subscriptions page lists, carrying
// the other end of the edge.
type FollowView struct {
	UserID    int       `db:"user_id"`
	Name      string
	CreatedAt time.Time `db:"created_at"`
}
