package store

import (
	"context"
	"database/sql"
)

// FollowRepository handles the follower relationship between accounts.
type FollowRepository struct {
	db *sql.DB
}

func NewFollowRepository(db *sql.DB) *FollowRepository {
	return &FollowRepository{db: db}
}

// Exists reports whether followerID follows followedID.
func (r *FollowRepository) Exists(ctx context.Context, followerID, followedID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM follows
			WHERE follower_id = $1 AND followed_id = $2
		)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, followerID, followedID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CountFollowers returns how many accounts follow the user.
func (r *FollowRepository) CountFollowers(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM follows WHERE followed_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountFollowing returns how many accounts the user follows.
func (r *FollowRepository) CountFollowing(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM follows WHERE follower_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
