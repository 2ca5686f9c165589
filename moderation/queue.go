package moderation

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rookery-social/rookery/models"
)

// FlaggedPost pairs an outstanding human report with its target post.
type FlaggedPost struct {
	models.PostFlag
	Post models.Post `json:"Post"`
}

// QueueView is everything awaiting moderator attention: automatically
// withheld topics and posts, plus human-reported flags. It is an internal
// tool view, so it is a full scan with no pagination.
type QueueView struct {
	Topics []models.Topic `json:"topics"`
	Posts  []models.Post  `json:"posts"`
	Flags  []FlaggedPost  `json:"flags"`
}

func Queue(ctx context.Context, db *gorm.DB) (*QueueView, error) {
	out := &QueueView{
		Topics: []models.Topic{},
		Posts:  []models.Post{},
		Flags:  []FlaggedPost{},
	}

	if err := db.WithContext(ctx).Where("is_withheld_for_moderator_review = ?", true).Find(&out.Topics).Error; err != nil {
		return nil, fmt.Errorf("loading withheld topics: %w", err)
	}
	if err := db.WithContext(ctx).Where("is_withheld_for_moderator_review = ?", true).Find(&out.Posts).Error; err != nil {
		return nil, fmt.Errorf("loading withheld posts: %w", err)
	}

	var flags []models.PostFlag
	if err := db.WithContext(ctx).Find(&flags).Error; err != nil {
		return nil, fmt.Errorf("loading post flags: %w", err)
	}
	for _, flag := range flags {
		var post models.Post
		err := db.WithContext(ctx).First(&post, flag.PostID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// flag row whose post is already gone; nothing left to review
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading flagged post %d: %w", flag.PostID, err)
		}
		out.Flags = append(out.Flags, FlaggedPost{PostFlag: flag, Post: post})
	}

	return out, nil
}
