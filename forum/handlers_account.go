package forum

import (
	"errors"
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/rookery-social/rookery/models"
	"github.com/rookery-social/rookery/perms"
)

const minPasswordLen = 16

type signUpInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignUp(c echo.Context) error {
	var in signUpInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if in.Username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid email address")
	}
	if len(in.Password) < minPasswordLen {
		return echo.NewHTTPError(http.StatusBadRequest, "password too short")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var usersCount int64
		if err := tx.Model(&models.User{}).Count(&usersCount).Error; err != nil {
			return err
		}

		user = models.User{
			Username:     in.Username,
			EmailAddress: in.Email,
			PasswordHash: string(hash),
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		memberships := []models.GroupMembership{
			{UserID: user.ID, GroupID: models.GroupMembers},
		}
		// the very first account bootstraps the site: it gets the
		// administrator and moderator groups on top of the default one
		if usersCount == 0 {
			memberships = append(memberships,
				models.GroupMembership{UserID: user.ID, GroupID: models.GroupAdministrators},
				models.GroupMembership{UserID: user.ID, GroupID: models.GroupModerators},
			)
		}
		return tx.Create(&memberships).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return echo.NewHTTPError(http.StatusBadRequest, "username or email address already exists")
	}
	if err != nil {
		s.log.Error("sign-up failed", "username", in.Username, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"Id":           user.ID,
		"Username":     user.Username,
		"EmailAddress": user.EmailAddress,
	})
}

type signInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInOutput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Image           string `json:"image"`
	Token           string `json:"token"`
	IsAdministrator bool   `json:"isAdministrator"`
	IsModerator     bool   `json:"isModerator"`
}

func (s *Server) handleSignIn(c echo.Context) error {
	var in signInInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}

	ctx := c.Request().Context()
	var user models.User
	if err := s.db.WithContext(ctx).Where("email_address = ?", in.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	isAdmin, err := perms.MemberOf(ctx, s.db, user.ID, "Administrators")
	if err != nil {
		return err
	}
	isMod, err := perms.MemberOf(ctx, s.db, user.ID, "Moderators")
	if err != nil {
		return err
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, signInOutput{
		Name:            user.Username,
		Email:           user.EmailAddress,
		Image:           gravatarURL(user.EmailAddress),
		Token:           token,
		IsAdministrator: isAdmin,
		IsModerator:     isMod,
	})
}

func (s *Server) handleVerifyCredentials(c echo.Context) error {
	uid, err := s.requireAuth(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errAuthRequired
		}
		return err
	}

	isAdmin, err := perms.MemberOf(ctx, s.db, user.ID, "Administrators")
	if err != nil {
		return err
	}
	isMod, err := perms.MemberOf(ctx, s.db, user.ID, "Moderators")
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, signInOutput{
		Name:            user.Username,
		Email:           user.EmailAddress,
		Image:           gravatarURL(user.EmailAddress),
		IsAdministrator: isAdmin,
		IsModerator:     isMod,
	})
}

type updateAccountInput struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// handleUpdateAccount lets an unrestricted account change its own
// username, email, or password. Banned and locked accounts lose
// CanEditSettings and are rejected here.
func (s *Server) handleUpdateAccount(c echo.Context) error {
	uid, _, err := s.requirePermission(c, func(ps *models.PermissionSet) bool {
		return ps.CanEditSettings
	})
	if err != nil {
		return err
	}

	var in updateAccountInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}

	updates := map[string]any{}
	if in.Username != nil {
		if *in.Username == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "username is required")
		}
		updates["username"] = *in.Username
	}
	if in.Email != nil {
		if _, err := mail.ParseAddress(*in.Email); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid email address")
		}
		updates["email_address"] = *in.Email
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLen {
			return echo.NewHTTPError(http.StatusBadRequest, "password too short")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		updates["password_hash"] = string(hash)
	}
	if len(updates) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	err = s.db.WithContext(c.Request().Context()).Model(&models.User{}).Where("id = ?", uid).Updates(updates).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return echo.NewHTTPError(http.StatusBadRequest, "username or email address already exists")
	}
	if err != nil {
		s.log.Error("account update failed", "user", uid, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
