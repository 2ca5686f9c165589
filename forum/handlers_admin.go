package forum

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/rookery-social/rookery/models"
	"github.com/rookery-social/rookery/util"
)

func canEditCategories(ps *models.PermissionSet) bool { return ps.CanEditCategories }
func canEditForums(ps *models.PermissionSet) bool     { return ps.CanEditForums }

type categoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int    `json:"sortOrder"`
}

type forumInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SortOrder   int    `json:"sortOrder"`
	IsReadOnly  bool   `json:"isReadOnly"`
}

func (s *Server) handleCreateCategory(c echo.Context) error {
	if _, _, err := s.requirePermission(c, canEditCategories); err != nil {
		return err
	}

	var in categoryInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if in.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	cat := models.Category{
		Name:        in.Name,
		Description: in.Description,
		SortOrder:   in.SortOrder,
	}
	if err := s.db.WithContext(c.Request().Context()).Create(&cat).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, categoryView{
		ID:          cat.ID,
		Name:        cat.Name,
		Description: cat.Description,
		SortOrder:   cat.SortOrder,
		CreatedAt:   util.UnixMillis(cat.CreatedAt),
		UpdatedAt:   util.UnixMillis(cat.UpdatedAt),
		Forums:      []forumView{},
	})
}

func (s *Server) handleUpdateCategory(c echo.Context) error {
	if _, _, err := s.requirePermission(c, canEditCategories); err != nil {
		return err
	}
	categoryID, err := pathID(c, "categoryId")
	if err != nil {
		return err
	}

	var in categoryInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if in.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	ctx := c.Request().Context()
	var cat models.Category
	if err := s.db.WithContext(ctx).First(&cat, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "category not found")
		}
		return err
	}

	cat.Name = in.Name
	cat.Description = in.Description
	cat.SortOrder = in.SortOrder
	if err := s.db.WithContext(ctx).Save(&cat).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

// deleteForumContent clears everything hanging off a forum: its topics,
// their posts, and the reaction rows on both. Runs inside the caller's
// transaction so a forum can never vanish while its threads stay behind.
func deleteForumContent(tx *gorm.DB, forumID uint) error {
	var topicIDs []uint
	if err := tx.Model(&models.Topic{}).Where("forum_id = ?", forumID).Pluck("id", &topicIDs).Error; err != nil {
		return err
	}
	if len(topicIDs) == 0 {
		return nil
	}

	var postIDs []uint
	if err := tx.Model(&models.Post{}).Where("topic_id IN ?", topicIDs).Pluck("id", &postIDs).Error; err != nil {
		return err
	}
	if len(postIDs) > 0 {
		for _, m := range []any{&models.PostLike{}, &models.PostDislike{}, &models.PostFlag{}} {
			if err := tx.Where("post_id IN ?", postIDs).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("topic_id IN ?", topicIDs).Delete(&models.Post{}).Error; err != nil {
			return err
		}
	}
	if err := tx.Where("topic_id IN ?", topicIDs).Delete(&models.TopicView{}).Error; err != nil {
		return err
	}
	return tx.Where("forum_id = ?", forumID).Delete(&models.Topic{}).Error
}

// handleDeleteCategory removes a category together with its forums and
// their content; a dangling forum row would never be reachable from the
// catalog again.
func (s *Server) handleDeleteCategory(c echo.Context) error {
	if _, _, err := s.requirePermission(c, canEditCategories); err != nil {
		return err
	}
	categoryID, err := pathID(c, "categoryId")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Category{}, categoryID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return echo.NewHTTPError(http.StatusNotFound, "category not found")
		}

		var forumIDs []uint
		if err := tx.Model(&models.Forum{}).Where("category_id = ?", categoryID).Pluck("id", &forumIDs).Error; err != nil {
			return err
		}
		for _, fid := range forumIDs {
			if err := deleteForumContent(tx, fid); err != nil {
				return err
			}
		}
		return tx.Where("category_id = ?", categoryID).Delete(&models.Forum{}).Error
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleCreateForum(c echo.Context) error {
	if _, _, err := s.requirePermission(c, canEditForums); err != nil {
		return err
	}
	categoryID, err := pathID(c, "categoryId")
	if err != nil {
		return err
	}

	var in forumInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if in.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	ctx := c.Request().Context()
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", categoryID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "category not found")
	}

	f := models.Forum{
		CategoryID:  categoryID,
		Name:        in.Name,
		Description: in.Description,
		SortOrder:   in.SortOrder,
		IsReadOnly:  in.IsReadOnly,
	}
	if err := s.db.WithContext(ctx).Create(&f).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, forumView{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		SortOrder:   f.SortOrder,
		IsReadOnly:  f.IsReadOnly,
		CreatedAt:   util.UnixMillis(f.CreatedAt),
		UpdatedAt:   util.UnixMillis(f.UpdatedAt),
	})
}

func (s *Server) handleUpdateForum(c echo.Context) error {
	if _, _, err := s.requirePermission(c, canEditForums); err != nil {
		return err
	}
	forumID, err := pathID(c, "forumId")
	if err != nil {
		return err
	}

	var in forumInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if in.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	ctx := c.Request().Context()
	var f models.Forum
	if err := s.db.WithContext(ctx).First(&f, forumID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "forum not found")
		}
		return err
	}

	f.Name = in.Name
	f.Description = in.Description
	f.SortOrder = in.SortOrder
	f.IsReadOnly = in.IsReadOnly
	if err := s.db.WithContext(ctx).Save(&f).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDeleteForum(c echo.Context) error {
	if _, _, err := s.requirePermission(c, canEditForums); err != nil {
		return err
	}
	forumID, err := pathID(c, "forumId")
	if err != nil {
		return err
	}

	err = s.db.WithContext(c.Request().Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Forum{}, forumID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return echo.NewHTTPError(http.StatusNotFound, "forum not found")
		}
		return deleteForumContent(tx, forumID)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
