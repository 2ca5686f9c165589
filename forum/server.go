// Package forum is the HTTP service: account management, the
// category/forum/topic/post hierarchy, reactions, and the moderator and
// administrator surfaces, all gated through group-based permission
// aggregation.
package forum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"gorm.io/gorm"

	"github.com/rookery-social/rookery/models"
	"github.com/rookery-social/rookery/screening"
)

type Server struct {
	db            *gorm.DB
	echo          *echo.Echo
	httpd         *http.Server
	screen        *screening.Gateway
	jwtSigningKey []byte

	log *slog.Logger
}

func NewServer(db *gorm.DB, screen *screening.Gateway, jwtkey []byte) (*Server, error) {
	if len(jwtkey) == 0 {
		return nil, fmt.Errorf("empty JWT signing key")
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	s := &Server{
		db:            db,
		screen:        screen,
		jwtSigningKey: jwtkey,

		log: slog.Default().With("system", "forum"),
	}
	return s, nil
}

func runMigrations(db *gorm.DB) error {
	for _, m := range []any{
		&models.User{},
		&models.Group{},
		&models.PermissionSet{},
		&models.GroupMembership{},
		&models.Category{},
		&models.Forum{},
		&models.Topic{},
		&models.Post{},
		&models.PostLike{},
		&models.PostDislike{},
		&models.PostFlag{},
		&models.TopicView{},
	} {
		if err := db.AutoMigrate(m); err != nil {
			return err
		}
	}
	return seedGroups(db)
}

// seedGroups creates the well-known groups and their permission sets. Runs
// on every boot; existing rows are left alone.
func seedGroups(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Group{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	groups := []models.Group{
		{ID: models.GroupEveryone, Name: "Everyone"},
		{ID: models.GroupMembers, Name: "Members"},
		{ID: models.GroupAdministrators, Name: "Administrators"},
		{ID: models.GroupModerators, Name: "Moderators"},
		{ID: models.GroupBanned, Name: "Banned"},
		{ID: models.GroupLocked, Name: "Locked"},
	}
	sets := []models.PermissionSet{
		models.ViewOnlyPermissions(models.GroupEveryone),
		models.MemberPermissions(models.GroupMembers),
		models.AdministratorPermissions(models.GroupAdministrators),
		models.ModeratorPermissions(models.GroupModerators),
		models.NoPermissions(models.GroupBanned),
		models.NoPermissions(models.GroupLocked),
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&groups).Error; err != nil {
			return err
		}
		return tx.Create(&sets).Error
	})
}

func (s *Server) RunAPI(addr string) error {
	e := echo.New()
	s.echo = e
	e.HideBanner = true

	e.Use(slogecho.New(s.log))
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddleware("forum"))
	e.Use(middleware.BodyLimit("1M"))
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/_health", s.handleHealthCheck)
	e.GET("/metrics", echoprometheus.NewHandler())

	// account
	e.POST("/sign-up", s.handleSignUp)
	e.POST("/sign-in", s.handleSignIn)
	e.GET("/s/verify_credentials", s.handleVerifyCredentials)
	e.PATCH("/s/account", s.handleUpdateAccount)

	// public catalog reads
	e.GET("/categories", s.handleGetCategories)
	e.GET("/categories/:categoryId", s.handleGetCategory)
	e.GET("/categories/:categoryId/forums/:forumId", s.handleGetTopics)
	e.GET("/categories/:categoryId/forums/:forumId/topics/:topicId", s.handleGetTopic)

	// posting
	e.POST("/s/categories/:categoryId/forums/:forumId/topics", s.handleCreateTopic)
	e.POST("/s/categories/:categoryId/forums/:forumId/topics/:topicId", s.handleReplyToTopic)
	e.PATCH("/s/categories/:categoryId/forums/:forumId/topics/:topicId/posts/:postId", s.handleUpdatePost)
	e.DELETE("/s/categories/:categoryId/forums/:forumId/topics/:topicId/posts/:postId", s.handleDeletePost)

	// reactions
	e.POST("/categories/:categoryId/forums/:forumId/topics/:topicId/posts/:postId/like", s.handleLikePost)
	e.POST("/categories/:categoryId/forums/:forumId/topics/:topicId/posts/:postId/dislike", s.handleDislikePost)
	e.POST("/categories/:categoryId/forums/:forumId/topics/:topicId/posts/:postId/flag", s.handleFlagPost)

	// moderator surface
	e.GET("/moderator/queue", s.handleModerationQueue)
	e.PATCH("/moderator/topics/:topicId/withhold", s.handleWithholdTopic)
	e.PATCH("/moderator/topics/:topicId/release", s.handleReleaseTopic)
	e.PATCH("/moderator/topics/:topicId/lock", s.handleLockTopic)
	e.PATCH("/moderator/topics/:topicId/unlock", s.handleUnlockTopic)
	e.PATCH("/moderator/topics/:topicId/close", s.handleCloseTopic)
	e.PATCH("/moderator/topics/:topicId/pin", s.handlePinTopic)
	e.PATCH("/moderator/topics/:topicId/unpin", s.handleUnpinTopic)
	e.PATCH("/moderator/topics/:topicId/edit", s.handleModEditTopic)
	e.DELETE("/moderator/topics/:topicId", s.handleModDeleteTopic)
	e.PATCH("/moderator/posts/:postId/withhold", s.handleWithholdPost)
	e.PATCH("/moderator/posts/:postId/release", s.handleReleasePost)
	e.PATCH("/moderator/posts/:postId/edit", s.handleModEditPost)
	e.DELETE("/moderator/posts/:postId", s.handleModDeletePost)
	e.DELETE("/moderator/posts/:postId/flag", s.handleDeleteFlags)
	e.PATCH("/moderator/users/:userId/ban", s.handleBanUser)
	e.PATCH("/moderator/users/:userId/unban", s.handleUnbanUser)
	e.PATCH("/moderator/users/:userId/lock", s.handleLockUser)
	e.PATCH("/moderator/users/:userId/unlock", s.handleUnlockUser)

	// administrator surface
	e.POST("/a/categories", s.handleCreateCategory)
	e.POST("/a/categories/:categoryId", s.handleCreateForum)
	e.PUT("/a/categories/:categoryId", s.handleUpdateCategory)
	e.DELETE("/a/categories/:categoryId", s.handleDeleteCategory)
	e.PUT("/a/forums/:forumId", s.handleUpdateForum)
	e.DELETE("/a/forums/:forumId", s.handleDeleteForum)

	s.httpd = &http.Server{
		Handler:        e,
		Addr:           addr,
		ReadTimeout:    time.Minute,
		WriteTimeout:   time.Minute,
		MaxHeaderBytes: 1 << 20,
	}

	s.log.Info("starting server", "bind", addr)
	if err := s.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpd == nil {
		return nil
	}
	return s.httpd.Shutdown(ctx)
}

// errorHandler maps errors to the fixed taxonomy. Raw store error text
// never reaches the caller; it is logged with request context instead.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		c.JSON(he.Code, map[string]any{"error": fmt.Sprint(he.Message)})
		return
	}

	s.log.Error("handler error", "path", c.Path(), "err", err)
	c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal error"})
}

type healthStatus struct {
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	if err := s.db.Exec("SELECT 1").Error; err != nil {
		s.log.Error("healthcheck can't connect to database", "err", err)
		return c.JSON(500, healthStatus{Status: "error", Message: "can't connect to database"})
	}
	return c.JSON(200, healthStatus{Status: "ok"})
}
