package forum

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/rookery-social/rookery/models"
	"github.com/rookery-social/rookery/moderation"
	"github.com/rookery-social/rookery/reactions"
	"github.com/rookery-social/rookery/screening"
	"github.com/rookery-social/rookery/util"
)

func (s *Server) authorMeta(c echo.Context, userID uint) screening.AuthorMeta {
	meta := screening.AuthorMeta{
		RemoteIP:  c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
	var user models.User
	if err := s.db.WithContext(c.Request().Context()).First(&user, userID).Error; err == nil {
		meta.Username = user.Username
		meta.EmailAddress = user.EmailAddress
	}
	return meta
}

type createTopicInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleCreateTopic(c echo.Context) error {
	uid, _, err := s.requirePermission(c, func(ps *models.PermissionSet) bool {
		return ps.CanCreateTopics
	})
	if err != nil {
		return err
	}

	catID, err := pathID(c, "categoryId")
	if err != nil {
		return err
	}
	forumID, err := pathID(c, "forumId")
	if err != nil {
		return err
	}
	forum, err := s.forumInCategory(c, forumID, catID)
	if err != nil {
		return err
	}
	if forum.IsReadOnly {
		return echo.NewHTTPError(http.StatusForbidden, "forum is read-only")
	}

	var in createTopicInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if in.Title == "" || in.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title and content are required")
	}

	ctx := c.Request().Context()
	withhold := s.screen.ShouldWithhold(ctx, s.authorMeta(c, uid), in.Title, in.Content)

	// topic and first post land together or not at all: a topic must never
	// exist with zero posts
	var topic models.Topic
	var post models.Post
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		topic = models.Topic{
			ForumID:                      forumID,
			Title:                        in.Title,
			IsWithheldForModeratorReview: withhold,
		}
		if err := tx.Create(&topic).Error; err != nil {
			return err
		}
		post = models.Post{
			TopicID:                      topic.ID,
			UserID:                       uid,
			Content:                      in.Content,
			IsWithheldForModeratorReview: withhold,
		}
		return tx.Create(&post).Error
	})
	if err != nil {
		s.log.Error("topic creation failed", "forum", forumID, "user", uid, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"topic": map[string]any{
			"Id":                           topic.ID,
			"Title":                        topic.Title,
			"ForumId":                      topic.ForumID,
			"IsWithheldForModeratorReview": topic.IsWithheldForModeratorReview,
			"CreatedAt":                    util.UnixMillis(topic.CreatedAt),
		},
		"post": map[string]any{
			"Id":                           post.ID,
			"TopicId":                      post.TopicID,
			"IsWithheldForModeratorReview": post.IsWithheldForModeratorReview,
		},
	})
}

type replyInput struct {
	Content string `json:"content"`
}

func (s *Server) handleReplyToTopic(c echo.Context) error {
	uid, _, err := s.requirePermission(c, func(ps *models.PermissionSet) bool {
		return ps.CanReply
	})
	if err != nil {
		return err
	}

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
	forum, err := s.forumInCategory(c, forumID, catID)
	if err != nil {
		return err
	}
	topic, err := s.topicInForum(c, topicID, forumID)
	if err != nil {
		return err
	}
	if forum.IsReadOnly {
		return echo.NewHTTPError(http.StatusForbidden, "forum is read-only")
	}
	if topic.IsWithheldForModeratorReview {
		return echo.NewHTTPError(http.StatusNotFound, "topic not found in the specified forum")
	}
	if topic.IsClosedByAuthor || topic.IsLockedByModerator {
		return echo.NewHTTPError(http.StatusForbidden, "topic is closed to replies")
	}

	var in replyInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if in.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	ctx := c.Request().Context()
	withhold := s.screen.ShouldWithhold(ctx, s.authorMeta(c, uid), "", in.Content)

	post := models.Post{
		TopicID:                      topicID,
		UserID:                       uid,
		Content:                      in.Content,
		IsWithheldForModeratorReview: withhold,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		s.log.Error("reply creation failed", "topic", topicID, "user", uid, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var author models.User
	if err := s.db.WithContext(ctx).First(&author, uid).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"post": postView{
			ID:      post.ID,
			Content: post.Content,
			User: postAuthorView{
				ID:       author.ID,
				Username: author.Username,
				Email:    author.EmailAddress,
			},
			CreatedAt: util.UnixMillis(post.CreatedAt),
			UpdatedAt: util.UnixMillis(post.UpdatedAt),
		},
		"message": "Reply posted successfully.",
	})
}

type updatePostInput struct {
	Content string `json:"content"`
}

func (s *Server) handleUpdatePost(c echo.Context) error {
	uid, ps, err := s.requirePermission(c, func(ps *models.PermissionSet) bool {
		return ps.CanEditOwnPosts || ps.CanEditOthersPosts
	})
	if err != nil {
		return err
	}

	postID, err := pathID(c, "postId")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		return err
	}
	if post.UserID != uid && !ps.CanEditOthersPosts {
		return echo.NewHTTPError(http.StatusForbidden, "you may only edit your own posts")
	}

	var topic models.Topic
	if err := s.db.WithContext(ctx).First(&topic, post.TopicID).Error; err != nil {
		return err
	}
	if topic.IsLockedByModerator {
		return echo.NewHTTPError(http.StatusForbidden, "topic is locked")
	}

	var in updatePostInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if in.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	updates := map[string]any{"content": in.Content}
	// edits get re-screened; screening can withhold an edit but releasing
	// stays a moderator action
	if s.screen.ShouldWithhold(ctx, s.authorMeta(c, uid), "", in.Content) {
		updates["is_withheld_for_moderator_review"] = true
	}

	if err := s.db.WithContext(ctx).Model(&post).Updates(updates).Error; err != nil {
		s.log.Error("post update failed", "post", postID, "user", uid, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDeletePost(c echo.Context) error {
	uid, ps, err := s.requirePermission(c, func(ps *models.PermissionSet) bool {
		return ps.CanDeleteOwnPosts || ps.CanDeleteOthersPosts
	})
	if err != nil {
		return err
	}

	postID, err := pathID(c, "postId")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		return err
	}
	if post.UserID != uid && !ps.CanDeleteOthersPosts {
		return echo.NewHTTPError(http.StatusForbidden, "you may only delete your own posts")
	}

	topicDeleted, err := moderation.DeletePost(ctx, s.db, postID)
	if err != nil {
		s.log.Error("post deletion failed", "post", postID, "user", uid, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"topicDeleted": topicDeleted,
	})
}

func (s *Server) handleLikePost(c echo.Context) error {
	uid, _, err := s.requirePermission(c, func(ps *models.PermissionSet) bool {
		return ps.CanLikePosts
	})
	if err != nil {
		return err
	}

	postID, err := pathID(c, "postId")
	if err != nil {
		return err
	}

	liked, err := reactions.Like(c.Request().Context(), s.db, postID, uid)
	if errors.Is(err, reactions.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "post not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"liked": liked})
}

func (s *Server) handleDislikePost(c echo.Context) error {
	uid, _, err := s.requirePermission(c, func(ps *models.PermissionSet) bool {
		return ps.CanLikePosts
	})
	if err != nil {
		return err
	}

	postID, err := pathID(c, "postId")
	if err != nil {
		return err
	}

	disliked, err := reactions.Dislike(c.Request().Context(), s.db, postID, uid)
	if errors.Is(err, reactions.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "post not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"disliked": disliked})
}

func (s *Server) handleFlagPost(c echo.Context) error {
	uid, _, err := s.requirePermission(c, func(ps *models.PermissionSet) bool {
		return ps.CanFlagPosts
	})
	if err != nil {
		return err
	}

	postID, err := pathID(c, "postId")
	if err != nil {
		return err
	}

	err = reactions.Flag(c.Request().Context(), s.db, postID, uid)
	if errors.Is(err, reactions.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "post not found")
	}
	if errors.Is(err, reactions.ErrAlreadyFlagged) {
		return echo.NewHTTPError(http.StatusConflict, "you have already flagged this post")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"flagged": true})
}
