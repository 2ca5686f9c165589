package models

// PermissionSet is the full capability enumeration for one group. A user's
// effective permissions are the OR of the sets of every group they belong
// to; the zero value grants nothing.
type PermissionSet struct {
	ID      uint `gorm:"primarykey" json:"-"`
	GroupID uint `gorm:"uniqueIndex" json:"-"`

	CanView                 bool `json:"CanView"`
	CanCreateTopics         bool `json:"CanCreateTopics"`
	CanReply                bool `json:"CanReply"`
	CanEditOwnPosts         bool `json:"CanEditOwnPosts"`
	CanEditOthersPosts      bool `json:"CanEditOthersPosts"`
	CanDeleteOwnPosts       bool `json:"CanDeleteOwnPosts"`
	CanDeleteOthersPosts    bool `json:"CanDeleteOthersPosts"`
	CanCloseTopics          bool `json:"CanCloseTopics"`
	CanPinTopics            bool `json:"CanPinTopics"`
	CanLockTopics           bool `json:"CanLockTopics"`
	CanMoveTopics           bool `json:"CanMoveTopics"`
	CanMergeTopics          bool `json:"CanMergeTopics"`
	CanSplitTopics          bool `json:"CanSplitTopics"`
	CanFlagPosts            bool `json:"CanFlagPosts"`
	CanLikePosts            bool `json:"CanLikePosts"`
	CanApprovePosts         bool `json:"CanApprovePosts"`
	CanApproveEdits         bool `json:"CanApproveEdits"`
	CanApproveUsers         bool `json:"CanApproveUsers"`
	CanBanUsers             bool `json:"CanBanUsers"`
	CanLockUsers            bool `json:"CanLockUsers"`
	CanEditUsers            bool `json:"CanEditUsers"`
	CanEditGroups           bool `json:"CanEditGroups"`
	CanEditPermissions      bool `json:"CanEditPermissions"`
	CanEditCategories       bool `json:"CanEditCategories"`
	CanEditForums           bool `json:"CanEditForums"`
	CanEditSettings         bool `json:"CanEditSettings"`
	CanViewModerationQueue  bool `json:"CanViewModerationQueue"`
}

// Union ORs every flag of other into ps. No flag is ever cleared; any
// single group granting a capability grants it to the user.
func (ps *PermissionSet) Union(other *PermissionSet) {
	ps.CanView = ps.CanView || other.CanView
	ps.CanCreateTopics = ps.CanCreateTopics || other.CanCreateTopics
	ps.CanReply = ps.CanReply || other.CanReply
	ps.CanEditOwnPosts = ps.CanEditOwnPosts || other.CanEditOwnPosts
	ps.CanEditOthersPosts = ps.CanEditOthersPosts || other.CanEditOthersPosts
	ps.CanDeleteOwnPosts = ps.CanDeleteOwnPosts || other.CanDeleteOwnPosts
	ps.CanDeleteOthersPosts = ps.CanDeleteOthersPosts || other.CanDeleteOthersPosts
	ps.CanCloseTopics = ps.CanCloseTopics || other.CanCloseTopics
	ps.CanPinTopics = ps.CanPinTopics || other.CanPinTopics
	ps.CanLockTopics = ps.CanLockTopics || other.CanLockTopics
	ps.CanMoveTopics = ps.CanMoveTopics || other.CanMoveTopics
	ps.CanMergeTopics = ps.CanMergeTopics || other.CanMergeTopics
	ps.CanSplitTopics = ps.CanSplitTopics || other.CanSplitTopics
	ps.CanFlagPosts = ps.CanFlagPosts || other.CanFlagPosts
	ps.CanLikePosts = ps.CanLikePosts || other.CanLikePosts
	ps.CanApprovePosts = ps.CanApprovePosts || other.CanApprovePosts
	ps.CanApproveEdits = ps.CanApproveEdits || other.CanApproveEdits
	ps.CanApproveUsers = ps.CanApproveUsers || other.CanApproveUsers
	ps.CanBanUsers = ps.CanBanUsers || other.CanBanUsers
	ps.CanLockUsers = ps.CanLockUsers || other.CanLockUsers
	ps.CanEditUsers = ps.CanEditUsers || other.CanEditUsers
	ps.CanEditGroups = ps.CanEditGroups || other.CanEditGroups
	ps.CanEditPermissions = ps.CanEditPermissions || other.CanEditPermissions
	ps.CanEditCategories = ps.CanEditCategories || other.CanEditCategories
	ps.CanEditForums = ps.CanEditForums || other.CanEditForums
	ps.CanEditSettings = ps.CanEditSettings || other.CanEditSettings
	ps.CanViewModerationQueue = ps.CanViewModerationQueue || other.CanViewModerationQueue
}

// IsModerator reports whether the set carries any of the capabilities the
// moderator surface requires.
func (ps *PermissionSet) IsModerator() bool {
	return ps.CanViewModerationQueue || ps.CanApprovePosts
}

// MemberPermissions is what the default Members group grants.
func MemberPermissions(groupID uint) PermissionSet {
	return PermissionSet{
		GroupID:           groupID,
		CanView:           true,
		CanCreateTopics:   true,
		CanReply:          true,
		CanEditOwnPosts:   true,
		CanDeleteOwnPosts: true,
		CanCloseTopics:    true,
		CanFlagPosts:      true,
		CanLikePosts:      true,
		CanEditSettings:   true,
	}
}

// ModeratorPermissions extends the member set with content moderation
// capabilities. User lifecycle actions (ban/lock) are included because the
// original route table exposes them on the moderator surface.
func ModeratorPermissions(groupID uint) PermissionSet {
	ps := MemberPermissions(groupID)
	ps.CanEditOthersPosts = true
	ps.CanDeleteOthersPosts = true
	ps.CanPinTopics = true
	ps.CanLockTopics = true
	ps.CanMoveTopics = true
	ps.CanMergeTopics = true
	ps.CanSplitTopics = true
	ps.CanApprovePosts = true
	ps.CanApproveEdits = true
	ps.CanBanUsers = true
	ps.CanLockUsers = true
	ps.CanViewModerationQueue = true
	return ps
}

// AdministratorPermissions grants everything.
func AdministratorPermissions(groupID uint) PermissionSet {
	ps := ModeratorPermissions(groupID)
	ps.CanApproveUsers = true
	ps.CanEditUsers = true
	ps.CanEditGroups = true
	ps.CanEditPermissions = true
	ps.CanEditCategories = true
	ps.CanEditForums = true
	return ps
}

// ViewOnlyPermissions is the Everyone group: read access, nothing else.
func ViewOnlyPermissions(groupID uint) PermissionSet {
	return PermissionSet{GroupID: groupID, CanView: true}
}

// NoPermissions is the fail-closed set used for the Banned and Locked
// groups.
func NoPermissions(groupID uint) PermissionSet {
	return PermissionSet{GroupID: groupID}
}
