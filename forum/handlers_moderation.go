package forum

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rookery-social/rookery/models"
	"github.com/rookery-social/rookery/moderation"
)

// modError maps state machine sentinels onto the error taxonomy.
func modError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, moderation.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, moderation.ErrNotWithheld),
		errors.Is(err, moderation.ErrAlreadyLocked),
		errors.Is(err, moderation.ErrNotLocked):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}

func (s *Server) handleModerationQueue(c echo.Context) error {
	// the capability check runs to completion before any queue rows load
	if _, err := s.requireModerator(c); err != nil {
		return err
	}

	queue, err := moderation.Queue(c.Request().Context(), s.db)
	if err != nil {
		s.log.Error("loading moderation queue failed", "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, queue)
}

// topicAction runs one moderator-gated state transition on a topic.
func (s *Server) topicAction(c echo.Context, fn func(uint) error) error {
	if _, err := s.requireModerator(c); err != nil {
		return err
	}
	topicID, err := pathID(c, "topicId")
	if err != nil {
		return err
	}
	if err := modError(fn(topicID)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (s *Server) postAction(c echo.Context, fn func(uint) error) error {
	if _, err := s.requireModerator(c); err != nil {
		return err
	}
	postID, err := pathID(c, "postId")
	if err != nil {
		return err
	}
	if err := modError(fn(postID)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleWithholdTopic(c echo.Context) error {
	return s.topicAction(c, func(id uint) error {
		return moderation.WithholdTopic(c.Request().Context(), s.db, id)
	})
}

func (s *Server) handleReleaseTopic(c echo.Context) error {
	return s.topicAction(c, func(id uint) error {
		return moderation.ReleaseTopic(c.Request().Context(), s.db, id)
	})
}

func (s *Server) handleLockTopic(c echo.Context) error {
	return s.topicAction(c, func(id uint) error {
		return moderation.LockTopic(c.Request().Context(), s.db, id)
	})
}

func (s *Server) handleUnlockTopic(c echo.Context) error {
	return s.topicAction(c, func(id uint) error {
		return moderation.UnlockTopic(c.Request().Context(), s.db, id)
	})
}

func (s *Server) handlePinTopic(c echo.Context) error {
	return s.topicAction(c, func(id uint) error {
		return moderation.PinTopic(c.Request().Context(), s.db, id)
	})
}

func (s *Server) handleUnpinTopic(c echo.Context) error {
	return s.topicAction(c, func(id uint) error {
		return moderation.UnpinTopic(c.Request().Context(), s.db, id)
	})
}

// handleCloseTopic allows the topic's original author as well as
// moderators, unlike the rest of the topic transitions.
func (s *Server) handleCloseTopic(c echo.Context) error {
	topicID, err := pathID(c, "topicId")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	uid, ps, err := s.requirePermission(c, func(ps *models.PermissionSet) bool {
		return ps.IsModerator() || ps.CanCloseTopics
	})
	if err != nil {
		return err
	}

	if !ps.IsModerator() {
		authorID, err := moderation.TopicAuthorID(ctx, s.db, topicID)
		if err != nil {
			return modError(err)
		}
		if authorID != uid {
			return echo.NewHTTPError(http.StatusForbidden, "only the topic author or a moderator may close this topic")
		}
	}

	if err := modError(moderation.CloseTopic(ctx, s.db, topicID)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

type modEditTopicInput struct {
	Title string `json:"title"`
}

func (s *Server) handleModEditTopic(c echo.Context) error {
	var in modEditTopicInput
	return s.topicAction(c, func(id uint) error {
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		if in.Title == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "title is required")
		}
		return moderation.EditTopic(c.Request().Context(), s.db, id, in.Title)
	})
}

func (s *Server) handleModDeleteTopic(c echo.Context) error {
	return s.topicAction(c, func(id uint) error {
		return moderation.DeleteTopic(c.Request().Context(), s.db, id)
	})
}

func (s *Server) handleWithholdPost(c echo.Context) error {
	return s.postAction(c, func(id uint) error {
		return moderation.WithholdPost(c.Request().Context(), s.db, id)
	})
}

func (s *Server) handleReleasePost(c echo.Context) error {
	return s.postAction(c, func(id uint) error {
		return moderation.ReleasePost(c.Request().Context(), s.db, id)
	})
}

type modEditPostInput struct {
	Content string `json:"content"`
}

func (s *Server) handleModEditPost(c echo.Context) error {
	var in modEditPostInput
	return s.postAction(c, func(id uint) error {
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		if in.Content == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "content is required")
		}
		return moderation.EditPost(c.Request().Context(), s.db, id, in.Content)
	})
}

func (s *Server) handleModDeletePost(c echo.Context) error {
	return s.postAction(c, func(id uint) error {
		_, err := moderation.DeletePost(c.Request().Context(), s.db, id)
		return err
	})
}

func (s *Server) handleDeleteFlags(c echo.Context) error {
	return s.postAction(c, func(id uint) error {
		return moderation.DeleteFlags(c.Request().Context(), s.db, id)
	})
}

// userAction runs one user lifecycle transition, gated on the named
// capability rather than the general moderator check.
func (s *Server) userAction(c echo.Context, allowed func(*models.PermissionSet) bool, fn func(uint) error) error {
	if _, _, err := s.requirePermission(c, allowed); err != nil {
		return err
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	if err := modError(fn(userID)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleBanUser(c echo.Context) error {
	return s.userAction(c,
		func(ps *models.PermissionSet) bool { return ps.CanBanUsers },
		func(id uint) error { return moderation.BanUser(c.Request().Context(), s.db, id) })
}

func (s *Server) handleUnbanUser(c echo.Context) error {
	return s.userAction(c,
		func(ps *models.PermissionSet) bool { return ps.CanBanUsers },
		func(id uint) error { return moderation.UnbanUser(c.Request().Context(), s.db, id) })
}

func (s *Server) handleLockUser(c echo.Context) error {
	return s.userAction(c,
		func(ps *models.PermissionSet) bool { return ps.CanLockUsers },
		func(id uint) error { return moderation.LockUser(c.Request().Context(), s.db, id) })
}

func (s *Server) handleUnlockUser(c echo.Context) error {
	return s.userAction(c,
		func(ps *models.PermissionSet) bool { return ps.CanLockUsers },
		func(id uint) error { return moderation.UnlockUser(c.Request().Context(), s.db, id) })
}
