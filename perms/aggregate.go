// Package perms resolves the effective capability set of a user by
// OR-aggregating the permission sets of every group the user belongs to.
package perms

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rookery-social/rookery/models"
)

// ErrNoSuchUser means the user id does not resolve to an account row. It is
// distinct from a user with zero memberships: callers must treat it as
// "unauthenticated", not as "authenticated with no permissions".
var ErrNoSuchUser = errors.New("no such user")

// Aggregate returns the union of the permission sets of every group userID
// is a member of. A user with no memberships gets the zero (all-false) set.
// Read-only; no result caching.
func Aggregate(ctx context.Context, db *gorm.DB, userID uint) (*models.PermissionSet, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("looking up user %d: %w", userID, err)
	}
	if count == 0 {
		return nil, ErrNoSuchUser
	}

	var memberships []models.GroupMembership
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("loading memberships for user %d: %w", userID, err)
	}

	// seed all-false; any one membership can grant any flag, so every
	// membership gets visited
	acc := &models.PermissionSet{}
	for _, m := range memberships {
		var ps models.PermissionSet
		err := db.WithContext(ctx).Where("group_id = ?", m.GroupID).First(&ps).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// group without a permission set grants nothing
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading permission set for group %d: %w", m.GroupID, err)
		}
		acc.Union(&ps)
	}

	return acc, nil
}

// MemberOf reports whether the user belongs to the named group.
func MemberOf(ctx context.Context, db *gorm.DB, userID uint, groupName string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.GroupMembership{}).
		Joins("JOIN groups ON groups.id = group_memberships.group_id").
		Where("group_memberships.user_id = ? AND groups.name = ?", userID, groupName).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking %q membership for user %d: %w", groupName, userID, err)
	}
	return count > 0, nil
}
