package moderation

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rookery-social/rookery/models"
)

// BanUser replaces the user's group memberships with sole membership in the
// Banned group. The replacement runs inside one transaction so a partial
// failure can never leave the user with no group, or with both Members and
// Banned at once.
func BanUser(ctx context.Context, db *gorm.DB, userID uint) error {
	return replaceMemberships(ctx, db, userID, models.GroupBanned)
}

// UnbanUser restores the user to the default Members group.
func UnbanUser(ctx context.Context, db *gorm.DB, userID uint) error {
	return replaceMemberships(ctx, db, userID, models.GroupMembers)
}

// LockUser is the softer analogue of BanUser, using the Locked group.
func LockUser(ctx context.Context, db *gorm.DB, userID uint) error {
	return replaceMemberships(ctx, db, userID, models.GroupLocked)
}

func UnlockUser(ctx context.Context, db *gorm.DB, userID uint) error {
	return replaceMemberships(ctx, db, userID, models.GroupMembers)
}

func replaceMemberships(ctx context.Context, db *gorm.DB, userID uint, groupID uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("looking up user %d: %w", userID, err)
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.GroupMembership{}).Error; err != nil {
			return fmt.Errorf("clearing memberships for user %d: %w", userID, err)
		}

		m := models.GroupMembership{UserID: userID, GroupID: groupID}
		if err := tx.Create(&m).Error; err != nil {
			return fmt.Errorf("enrolling user %d in group %d: %w", userID, groupID, err)
		}
		return nil
	})
}
