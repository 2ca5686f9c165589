// Package reactions tracks per-user like/dislike/flag/view state on posts
// and topics.
//
// Likes and dislikes toggle: repeating the same reaction removes it, and a
// like displaces any dislike (and vice versa). Each operation runs as one
// transaction so concurrent toggles from the same user cannot produce
// duplicate or contradictory rows.
package reactions

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rookery-social/rookery/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyFlagged = errors.New("post already flagged by this user")
)

// Like records a like by userID on postID. Returns true when the post ends
// up liked, false when an existing like was toggled off.
func Like(ctx context.Context, db *gorm.DB, postID, userID uint) (bool, error) {
	liked := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePost(tx, postID); err != nil {
			return err
		}

		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
		if res.Error != nil {
			return fmt.Errorf("toggling like on post %d: %w", postID, res.Error)
		}
		if res.RowsAffected > 0 {
			// existing like removed: toggled off
			return nil
		}

		if err := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostDislike{}).Error; err != nil {
			return fmt.Errorf("clearing dislike on post %d: %w", postID, err)
		}
		if err := tx.Create(&models.PostLike{PostID: postID, UserID: userID}).Error; err != nil {
			return fmt.Errorf("recording like on post %d: %w", postID, err)
		}
		liked = true
		return nil
	})
	return liked, err
}

// Dislike mirrors Like. Returns true when the post ends up disliked.
func Dislike(ctx context.Context, db *gorm.DB, postID, userID uint) (bool, error) {
	disliked := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePost(tx, postID); err != nil {
			return err
		}

		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostDislike{})
		if res.Error != nil {
			return fmt.Errorf("toggling dislike on post %d: %w", postID, res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}

		if err := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{}).Error; err != nil {
			return fmt.Errorf("clearing like on post %d: %w", postID, err)
		}
		if err := tx.Create(&models.PostDislike{PostID: postID, UserID: userID}).Error; err != nil {
			return fmt.Errorf("recording dislike on post %d: %w", postID, err)
		}
		disliked = true
		return nil
	})
	return disliked, err
}

// Flag records a human report on a post. A second flag from the same user
// is rejected with ErrAlreadyFlagged.
func Flag(ctx context.Context, db *gorm.DB, postID, userID uint) error {
	if err := requirePost(db.WithContext(ctx), postID); err != nil {
		return err
	}
	err := db.WithContext(ctx).Create(&models.PostFlag{PostID: postID, UserID: userID}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyFlagged
	}
	return err
}

// View records that a user has seen a topic. First write wins; repeat views
// are silently absorbed by the unique index.
func View(ctx context.Context, db *gorm.DB, topicID, userID uint) error {
	var topic models.Topic
	if err := db.WithContext(ctx).First(&topic, topicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("looking up topic %d: %w", topicID, err)
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.TopicView{TopicID: topicID, UserID: userID}).Error
}

// LikeCount is the effective score shown to readers: likes minus dislikes.
func LikeCount(ctx context.Context, db *gorm.DB, postID uint) (int64, error) {
	var likes, dislikes int64
	if err := db.WithContext(ctx).Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&likes).Error; err != nil {
		return 0, err
	}
	if err := db.WithContext(ctx).Model(&models.PostDislike{}).Where("post_id = ?", postID).Count(&dislikes).Error; err != nil {
		return 0, err
	}
	return likes - dislikes, nil
}

func requirePost(tx *gorm.DB, postID uint) error {
	var post models.Post
	if err := tx.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("looking up post %d: %w", postID, err)
	}
	return nil
}
