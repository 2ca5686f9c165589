package forum

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/rookery-social/rookery/models"
	"github.com/rookery-social/rookery/reactions"
	"github.com/rookery-social/rookery/util"
)

// The catalog read payloads are explicit typed views: storage keeps Unix
// seconds, responses carry milliseconds.

type forumView struct {
	ID          uint   `json:"Id"`
	Name        string `json:"Name"`
	Description string `json:"Description"`
	SortOrder   int    `json:"SortOrder"`
	IsReadOnly  bool   `json:"IsReadOnly"`
	CreatedAt   int64  `json:"CreatedAt"`
	UpdatedAt   int64  `json:"UpdatedAt"`
}

type categoryView struct {
	ID          uint        `json:"Id"`
	Name        string      `json:"Name"`
	Description string      `json:"Description"`
	SortOrder   int         `json:"SortOrder"`
	CreatedAt   int64       `json:"CreatedAt"`
	UpdatedAt   int64       `json:"UpdatedAt"`
	Forums      []forumView `json:"Forums"`
}

type topicView struct {
	ID                  uint   `json:"Id"`
	Title               string `json:"Title"`
	IsClosedByAuthor    bool   `json:"IsClosedByAuthor"`
	IsLockedByModerator bool   `json:"IsLockedByModerator"`
	IsPinned            bool   `json:"IsPinned"`
	PostCount           int64  `json:"PostCount"`
	CreatedAt           int64  `json:"CreatedAt"`
	UpdatedAt           int64  `json:"UpdatedAt"`
}

type postAuthorView struct {
	ID       uint   `json:"Id"`
	Username string `json:"Username"`
	Email    string `json:"Email"`
}

type postView struct {
	ID        uint           `json:"Id"`
	Content   string         `json:"Content"`
	LikeCount int64          `json:"LikeCount"`
	User      postAuthorView `json:"User"`
	CreatedAt int64          `json:"CreatedAt"`
	UpdatedAt int64          `json:"UpdatedAt"`
}

func newForumView(f models.Forum) forumView {
	return forumView{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		SortOrder:   f.SortOrder,
		IsReadOnly:  f.IsReadOnly,
		CreatedAt:   util.UnixMillis(f.CreatedAt),
		UpdatedAt:   util.UnixMillis(f.UpdatedAt),
	}
}

func (s *Server) categoryView(c echo.Context, cat models.Category) (*categoryView, error) {
	var forums []models.Forum
	if err := s.db.WithContext(c.Request().Context()).
		Where("category_id = ?", cat.ID).Order("sort_order asc, id asc").Find(&forums).Error; err != nil {
		return nil, err
	}
	view := &categoryView{
		ID:          cat.ID,
		Name:        cat.Name,
		Description: cat.Description,
		SortOrder:   cat.SortOrder,
		CreatedAt:   util.UnixMillis(cat.CreatedAt),
		UpdatedAt:   util.UnixMillis(cat.UpdatedAt),
		Forums:      []forumView{},
	}
	for _, f := range forums {
		view.Forums = append(view.Forums, newForumView(f))
	}
	return view, nil
}

func (s *Server) handleGetCategories(c echo.Context) error {
	var cats []models.Category
	if err := s.db.WithContext(c.Request().Context()).Order("sort_order asc, id asc").Find(&cats).Error; err != nil {
		return err
	}

	out := []categoryView{}
	for _, cat := range cats {
		view, err := s.categoryView(c, cat)
		if err != nil {
			return err
		}
		out = append(out, *view)
	}
	return c.JSON(http.StatusOK, map[string]any{"Categories": out})
}

func (s *Server) handleGetCategory(c echo.Context) error {
	catID, err := pathID(c, "categoryId")
	if err != nil {
		return err
	}

	var cat models.Category
	if err := s.db.WithContext(c.Request().Context()).First(&cat, catID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "category not found")
		}
		return err
	}

	view, err := s.categoryView(c, cat)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// forumInCategory loads a forum and verifies it sits in the named category.
func (s *Server) forumInCategory(c echo.Context, forumID, categoryID uint) (*models.Forum, error) {
	var forum models.Forum
	err := s.db.WithContext(c.Request().Context()).
		Where("id = ? AND category_id = ?", forumID, categoryID).First(&forum).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "forum not found in the specified category")
	}
	if err != nil {
		return nil, err
	}
	return &forum, nil
}

func (s *Server) topicInForum(c echo.Context, topicID, forumID uint) (*models.Topic, error) {
	var topic models.Topic
	err := s.db.WithContext(c.Request().Context()).
		Where("id = ? AND forum_id = ?", topicID, forumID).First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "topic not found in the specified forum")
	}
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (s *Server) handleGetTopics(c echo.Context) error {
	catID, err := pathID(c, "categoryId")
	if err != nil {
		return err
	}
	forumID, err := pathID(c, "forumId")
	if err != nil {
		return err
	}
	if _, err := s.forumInCategory(c, forumID, catID); err != nil {
		return err
	}

	ctx := c.Request().Context()
	var topics []models.Topic
	// withheld topics stay out of public listings; pinned topics sort first
	if err := s.db.WithContext(ctx).
		Where("forum_id = ? AND is_withheld_for_moderator_review = ?", forumID, false).
		Order("is_pinned desc, created_at desc, id desc").
		Find(&topics).Error; err != nil {
		return err
	}

	out := []topicView{}
	for _, t := range topics {
		var postCount int64
		if err := s.db.WithContext(ctx).Model(&models.Post{}).
			Where("topic_id = ? AND is_withheld_for_moderator_review = ?", t.ID, false).
			Count(&postCount).Error; err != nil {
			return err
		}
		out = append(out, topicView{
			ID:                  t.ID,
			Title:               t.Title,
			IsClosedByAuthor:    t.IsClosedByAuthor,
			IsLockedByModerator: t.IsLockedByModerator,
			IsPinned:            t.IsPinned,
			PostCount:           postCount,
			CreatedAt:           util.UnixMillis(t.CreatedAt),
			UpdatedAt:           util.UnixMillis(t.UpdatedAt),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"Topics": out})
}

func (s *Server) handleGetTopic(c echo.Context) error {
	catID, err := pathID(c, "categoryId")
	if err != nil {
		return err
	}
	forumID, err := pathID(c, "forumId")
	if err != nil {
		return err
	}
	topicID, err := pathID(c, "topicId")
	if err != nil {
		return err
	}
	if _, err := s.forumInCategory(c, forumID, catID); err != nil {
		return err
	}
	topic, err := s.topicInForum(c, topicID, forumID)
	if err != nil {
		return err
	}
	if topic.IsWithheldForModeratorReview {
		// withheld topics are only reachable through the moderation queue
		return echo.NewHTTPError(http.StatusNotFound, "topic not found in the specified forum")
	}

	ctx := c.Request().Context()

	// an authenticated read counts as a view, exactly once per user
	if uid, ok := s.resolveIdentity(c); ok {
		if err := reactions.View(ctx, s.db, topicID, uid); err != nil && !errors.Is(err, reactions.ErrNotFound) {
			s.log.Error("recording topic view failed", "topic", topicID, "user", uid, "err", err)
		}
	}

	var posts []models.Post
	if err := s.db.WithContext(ctx).
		Where("topic_id = ? AND is_withheld_for_moderator_review = ?", topicID, false).
		Order("id asc").Find(&posts).Error; err != nil {
		return err
	}

	postViews := []postView{}
	for _, p := range posts {
		var author models.User
		if err := s.db.WithContext(ctx).First(&author, p.UserID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		likeCount, err := reactions.LikeCount(ctx, s.db, p.ID)
		if err != nil {
			return err
		}
		postViews = append(postViews, postView{
			ID:        p.ID,
			Content:   p.Content,
			LikeCount: likeCount,
			User: postAuthorView{
				ID:       author.ID,
				Username: author.Username,
				Email:    author.EmailAddress,
			},
			CreatedAt: util.UnixMillis(p.CreatedAt),
			UpdatedAt: util.UnixMillis(p.UpdatedAt),
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"Id":                  topic.ID,
		"Title":               topic.Title,
		"IsClosedByAuthor":    topic.IsClosedByAuthor,
		"IsLockedByModerator": topic.IsLockedByModerator,
		"IsPinned":            topic.IsPinned,
		"CreatedAt":           util.UnixMillis(topic.CreatedAt),
		"UpdatedAt":           util.UnixMillis(topic.UpdatedAt),
		"Posts":               postViews,
	})
}
