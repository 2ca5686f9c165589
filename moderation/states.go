// Package moderation implements the lifecycle state machine for topics and
// posts (withheld, locked, closed, pinned), the moderation queue, and the
// user lifecycle transitions (ban/unban, lock/unlock).
//
// Authorization is the HTTP layer's job; every function here assumes the
// caller has already been cleared to perform the transition.
package moderation

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rookery-social/rookery/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrNotWithheld   = errors.New("not currently withheld")
	ErrAlreadyLocked = errors.New("topic is already locked")
	ErrNotLocked     = errors.New("topic is not locked")
)

// WithholdTopic moves a topic into the withheld state. Withholding an
// already-withheld topic is a no-op, not an error.
func WithholdTopic(ctx context.Context, db *gorm.DB, topicID uint) error {
	var topic models.Topic
	if err := db.WithContext(ctx).First(&topic, topicID).Error; err != nil {
		return topicLookupErr(topicID, err)
	}
	if topic.IsWithheldForModeratorReview {
		return nil
	}
	return db.WithContext(ctx).Model(&topic).Update("is_withheld_for_moderator_review", true).Error
}

// ReleaseTopic clears the withheld state. Releasing a topic that is not
// withheld is an error.
func ReleaseTopic(ctx context.Context, db *gorm.DB, topicID uint) error {
	var topic models.Topic
	if err := db.WithContext(ctx).First(&topic, topicID).Error; err != nil {
		return topicLookupErr(topicID, err)
	}
	if !topic.IsWithheldForModeratorReview {
		return ErrNotWithheld
	}
	return db.WithContext(ctx).Model(&topic).Update("is_withheld_for_moderator_review", false).Error
}

// WithholdPost mirrors WithholdTopic for posts, with the same idempotent
// no-op when already withheld.
func WithholdPost(ctx context.Context, db *gorm.DB, postID uint) error {
	var post models.Post
	if err := db.WithContext(ctx).First(&post, postID).Error; err != nil {
		return postLookupErr(postID, err)
	}
	if post.IsWithheldForModeratorReview {
		return nil
	}
	return db.WithContext(ctx).Model(&post).Update("is_withheld_for_moderator_review", true).Error
}

func ReleasePost(ctx context.Context, db *gorm.DB, postID uint) error {
	var post models.Post
	if err := db.WithContext(ctx).First(&post, postID).Error; err != nil {
		return postLookupErr(postID, err)
	}
	if !post.IsWithheldForModeratorReview {
		return ErrNotWithheld
	}
	return db.WithContext(ctx).Model(&post).Update("is_withheld_for_moderator_review", false).Error
}

func LockTopic(ctx context.Context, db *gorm.DB, topicID uint) error {
	var topic models.Topic
	if err := db.WithContext(ctx).First(&topic, topicID).Error; err != nil {
		return topicLookupErr(topicID, err)
	}
	if topic.IsLockedByModerator {
		return ErrAlreadyLocked
	}
	return db.WithContext(ctx).Model(&topic).Update("is_locked_by_moderator", true).Error
}

func UnlockTopic(ctx context.Context, db *gorm.DB, topicID uint) error {
	var topic models.Topic
	if err := db.WithContext(ctx).First(&topic, topicID).Error; err != nil {
		return topicLookupErr(topicID, err)
	}
	if !topic.IsLockedByModerator {
		return ErrNotLocked
	}
	return db.WithContext(ctx).Model(&topic).Update("is_locked_by_moderator", false).Error
}

// CloseTopic marks a topic closed to further replies. The original author
// or a moderator may do this; the ownership check lives with the caller.
func CloseTopic(ctx context.Context, db *gorm.DB, topicID uint) error {
	var topic models.Topic
	if err := db.WithContext(ctx).First(&topic, topicID).Error; err != nil {
		return topicLookupErr(topicID, err)
	}
	return db.WithContext(ctx).Model(&topic).Update("is_closed_by_author", true).Error
}

func PinTopic(ctx context.Context, db *gorm.DB, topicID uint) error {
	return setPinned(ctx, db, topicID, true)
}

func UnpinTopic(ctx context.Context, db *gorm.DB, topicID uint) error {
	return setPinned(ctx, db, topicID, false)
}

func setPinned(ctx context.Context, db *gorm.DB, topicID uint, pinned bool) error {
	var topic models.Topic
	if err := db.WithContext(ctx).First(&topic, topicID).Error; err != nil {
		return topicLookupErr(topicID, err)
	}
	return db.WithContext(ctx).Model(&topic).Update("is_pinned", pinned).Error
}

// EditTopic is the moderator title overwrite, bypassing ownership checks.
func EditTopic(ctx context.Context, db *gorm.DB, topicID uint, title string) error {
	var topic models.Topic
	if err := db.WithContext(ctx).First(&topic, topicID).Error; err != nil {
		return topicLookupErr(topicID, err)
	}
	return db.WithContext(ctx).Model(&topic).Update("title", title).Error
}

// EditPost is the moderator content overwrite, bypassing ownership checks.
func EditPost(ctx context.Context, db *gorm.DB, postID uint, content string) error {
	var post models.Post
	if err := db.WithContext(ctx).First(&post, postID).Error; err != nil {
		return postLookupErr(postID, err)
	}
	return db.WithContext(ctx).Model(&post).Update("content", content).Error
}

// DeletePost removes a post together with its reaction rows; when it was
// the topic's last remaining post the topic goes with it, in the same
// transaction, so a crash can never leave an empty topic behind. Reports
// whether the topic was also deleted.
func DeletePost(ctx context.Context, db *gorm.DB, postID uint) (bool, error) {
	topicDeleted := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			return postLookupErr(postID, err)
		}

		if err := deletePostReactions(tx, postID); err != nil {
			return err
		}
		if err := tx.Delete(&models.Post{}, postID).Error; err != nil {
			return fmt.Errorf("deleting post %d: %w", postID, err)
		}

		var remaining int64
		if err := tx.Model(&models.Post{}).Where("topic_id = ?", post.TopicID).Count(&remaining).Error; err != nil {
			return fmt.Errorf("counting posts in topic %d: %w", post.TopicID, err)
		}
		if remaining == 0 {
			if err := tx.Where("topic_id = ?", post.TopicID).Delete(&models.TopicView{}).Error; err != nil {
				return fmt.Errorf("deleting views of topic %d: %w", post.TopicID, err)
			}
			if err := tx.Delete(&models.Topic{}, post.TopicID).Error; err != nil {
				return fmt.Errorf("deleting emptied topic %d: %w", post.TopicID, err)
			}
			topicDeleted = true
		}
		return nil
	})
	return topicDeleted, err
}

// DeleteTopic removes a topic, all its posts, and their reaction rows in
// one transaction.
func DeleteTopic(ctx context.Context, db *gorm.DB, topicID uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var topic models.Topic
		if err := tx.First(&topic, topicID).Error; err != nil {
			return topicLookupErr(topicID, err)
		}

		var postIDs []uint
		if err := tx.Model(&models.Post{}).Where("topic_id = ?", topicID).Pluck("id", &postIDs).Error; err != nil {
			return fmt.Errorf("listing posts of topic %d: %w", topicID, err)
		}
		for _, pid := range postIDs {
			if err := deletePostReactions(tx, pid); err != nil {
				return err
			}
		}

		if err := tx.Where("topic_id = ?", topicID).Delete(&models.Post{}).Error; err != nil {
			return fmt.Errorf("deleting posts of topic %d: %w", topicID, err)
		}
		if err := tx.Where("topic_id = ?", topicID).Delete(&models.TopicView{}).Error; err != nil {
			return fmt.Errorf("deleting views of topic %d: %w", topicID, err)
		}
		return tx.Delete(&models.Topic{}, topicID).Error
	})
}

// deletePostReactions clears the likes, dislikes, and flags of a post that
// is going away. A flag row outliving its post would dangle in the
// moderation queue forever.
func deletePostReactions(tx *gorm.DB, postID uint) error {
	for _, m := range []any{&models.PostLike{}, &models.PostDislike{}, &models.PostFlag{}} {
		if err := tx.Where("post_id = ?", postID).Delete(m).Error; err != nil {
			return fmt.Errorf("deleting reactions of post %d: %w", postID, err)
		}
	}
	return nil
}

// DeleteFlags clears all human reports on a post without touching its
// withheld state.
func DeleteFlags(ctx context.Context, db *gorm.DB, postID uint) error {
	return db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.PostFlag{}).Error
}

// TopicAuthorID resolves the author of a topic's earliest post, for the
// "author may close own topic" check.
func TopicAuthorID(ctx context.Context, db *gorm.DB, topicID uint) (uint, error) {
	var post models.Post
	err := db.WithContext(ctx).Where("topic_id = ?", topicID).Order("id asc").First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return post.UserID, nil
}

func topicLookupErr(topicID uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("looking up topic %d: %w", topicID, err)
}

func postLookupErr(postID uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("looking up post %d: %w", postID, err)
}
