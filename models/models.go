package models

// All timestamps are stored as Unix seconds. They get converted to
// milliseconds at the response boundary, never earlier.

type User struct {
	ID           uint   `gorm:"primarykey" json:"Id"`
	Username     string `gorm:"uniqueIndex" json:"Username"`
	EmailAddress string `gorm:"uniqueIndex" json:"EmailAddress"`
	PasswordHash string `json:"-"`
	CreatedAt    int64  `gorm:"autoCreateTime" json:"CreatedAt"`
	UpdatedAt    int64  `gorm:"autoUpdateTime" json:"UpdatedAt"`
}

type Group struct {
	ID        uint   `gorm:"primarykey" json:"Id"`
	Name      string `gorm:"uniqueIndex" json:"Name"`
	CreatedAt int64  `gorm:"autoCreateTime" json:"CreatedAt"`
}

// Well-known group IDs, fixed by the seed migration.
const (
	GroupEveryone       = uint(1)
	GroupMembers        = uint(2)
	GroupAdministrators = uint(3)
	GroupModerators     = uint(4)
	GroupBanned         = uint(5)
	GroupLocked         = uint(6)
)

type GroupMembership struct {
	ID        uint  `gorm:"primarykey" json:"Id"`
	UserID    uint  `gorm:"index:idx_membership_pair,unique" json:"UserId"`
	GroupID   uint  `gorm:"index:idx_membership_pair,unique" json:"GroupId"`
	CreatedAt int64 `gorm:"autoCreateTime" json:"CreatedAt"`
}

type Category struct {
	ID          uint   `gorm:"primarykey" json:"Id"`
	Name        string `json:"Name"`
	Description string `json:"Description"`
	SortOrder   int    `json:"SortOrder"`
	CreatedAt   int64  `gorm:"autoCreateTime" json:"CreatedAt"`
	UpdatedAt   int64  `gorm:"autoUpdateTime" json:"UpdatedAt"`
}

type Forum struct {
	ID          uint   `gorm:"primarykey" json:"Id"`
	CategoryID  uint   `gorm:"index" json:"CategoryId"`
	Name        string `json:"Name"`
	Description string `json:"Description"`
	SortOrder   int    `json:"SortOrder"`
	IsReadOnly  bool   `json:"IsReadOnly"`
	CreatedAt   int64  `gorm:"autoCreateTime" json:"CreatedAt"`
	UpdatedAt   int64  `gorm:"autoUpdateTime" json:"UpdatedAt"`
}

type Topic struct {
	ID                           uint   `gorm:"primarykey" json:"Id"`
	ForumID                      uint   `gorm:"index" json:"ForumId"`
	Title                        string `json:"Title"`
	IsWithheldForModeratorReview bool   `gorm:"index" json:"IsWithheldForModeratorReview"`
	IsClosedByAuthor             bool   `json:"IsClosedByAuthor"`
	IsLockedByModerator          bool   `json:"IsLockedByModerator"`
	IsPinned                     bool   `json:"IsPinned"`
	CreatedAt                    int64  `gorm:"autoCreateTime" json:"CreatedAt"`
	UpdatedAt                    int64  `gorm:"autoUpdateTime" json:"UpdatedAt"`
}

type Post struct {
	ID                           uint   `gorm:"primarykey" json:"Id"`
	TopicID                      uint   `gorm:"index" json:"TopicId"`
	UserID                       uint   `gorm:"index" json:"UserId"`
	Content                      string `json:"Content"`
	IsWithheldForModeratorReview bool   `gorm:"index" json:"IsWithheldForModeratorReview"`
	CreatedAt                    int64  `gorm:"autoCreateTime" json:"CreatedAt"`
	UpdatedAt                    int64  `gorm:"autoUpdateTime" json:"UpdatedAt"`
}

type PostLike struct {
	ID        uint  `gorm:"primarykey" json:"Id"`
	PostID    uint  `gorm:"index:idx_postlike_pair,unique" json:"PostId"`
	UserID    uint  `gorm:"index:idx_postlike_pair,unique" json:"UserId"`
	CreatedAt int64 `gorm:"autoCreateTime" json:"CreatedAt"`
}

type PostDislike struct {
	ID        uint  `gorm:"primarykey" json:"Id"`
	PostID    uint  `gorm:"index:idx_postdislike_pair,unique" json:"PostId"`
	UserID    uint  `gorm:"index:idx_postdislike_pair,unique" json:"UserId"`
	CreatedAt int64 `gorm:"autoCreateTime" json:"CreatedAt"`
}

type PostFlag struct {
	ID        uint  `gorm:"primarykey" json:"Id"`
	PostID    uint  `gorm:"index:idx_postflag_pair,unique" json:"PostId"`
	UserID    uint  `gorm:"index:idx_postflag_pair,unique" json:"UserId"`
	CreatedAt int64 `gorm:"autoCreateTime" json:"CreatedAt"`
}

type TopicView struct {
	ID        uint  `gorm:"primarykey" json:"Id"`
	TopicID   uint  `gorm:"index:idx_topicview_pair,unique" json:"TopicId"`
	UserID    uint  `gorm:"index:idx_topicview_pair,unique" json:"UserId"`
	CreatedAt int64 `gorm:"autoCreateTime" json:"CreatedAt"`
}
