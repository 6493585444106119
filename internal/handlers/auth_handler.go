package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/atlastours/atlas-api/internal/apperror"
	"github.com/atlastours/atlas-api/internal/middleware"
	"github.com/atlastours/atlas-api/internal/models"
	"github.com/atlastours/atlas-api/internal/utils"
)

type signupRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

// Signup registers a new account with the default role, mails a welcome
// message and logs the user straight in.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.BadRequest("%v", err))
		return
	}
	if req.Password != req.PasswordConfirm {
		h.fail(c, apperror.BadRequest("passwords are not the same"))
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    strings.ToLower(req.Email),
		Role:     models.RoleUser,
		Password: hashed,
	}

	ctx := c.Request.Context()
	res, err := h.users().InsertOne(ctx, user)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.users().FindOne(ctx, bson.M{"_id": res.InsertedID}).Decode(&user); err != nil {
		h.fail(c, err)
		return
	}

	// Welcome mail is best effort; signup succeeds either way.
	if err := h.Mailer.SendWelcome(ctx, &user, baseURL(c)+"/me"); err != nil {
		h.Log.WithError(err).WithField("email", user.Email).Warn("welcome email failed")
	}

	h.sendToken(c, &user, http.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password are indistinguishable in the response.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.BadRequest("please provide email and password"))
		return
	}

	filter := activeUsers()
	filter["email"] = strings.ToLower(req.Email)

	var user models.User
	err := h.users().FindOne(c.Request.Context(), filter).Decode(&user)
	if err != nil || !utils.CheckPasswordHash(req.Password, user.Password) {
		h.fail(c, apperror.Unauthorized("incorrect email or password"))
		return
	}

	h.sendToken(c, &user, http.StatusOK)
}

// Logout overwrites the session cookie with a short-lived dummy value.
func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie("jwt", "loggedout", 10, "/", "", h.Cfg.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// ForgotPassword generates a reset token, stores only its hash with a
// ten-minute expiry and mails the raw token. If the mail cannot be sent the
// stored reset state is rolled back so no dangling token remains.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.BadRequest("please provide your email address"))
		return
	}

	ctx := c.Request.Context()
	filter := activeUsers()
	filter["email"] = strings.ToLower(req.Email)

	var user models.User
	if err := h.users().FindOne(ctx, filter).Decode(&user); err != nil {
		h.fail(c, apperror.NotFound("there is no user with that email address"))
		return
	}

	raw, hashed, err := utils.NewResetToken()
	if err != nil {
		h.fail(c, err)
		return
	}
	expires := time.Now().Add(utils.ResetTokenTTLMinutes * time.Minute)
	_, err = h.users().UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"passwordResetToken":   hashed,
		"passwordResetExpires": expires,
	}})
	if err != nil {
		h.fail(c, err)
		return
	}

	resetURL := baseURL(c) + "/api/v1/users/resetPassword/" + raw
	if err := h.Mailer.SendPasswordReset(ctx, &user, resetURL); err != nil {
		// Roll back so the unusable reset state does not linger.
		_, _ = h.users().UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$unset": bson.M{
			"passwordResetToken":   "",
			"passwordResetExpires": "",
		}})
		h.Log.WithError(err).WithField("email", user.Email).Error("password reset email failed")
		h.fail(c, apperror.New(http.StatusInternalServerError, "there was an error sending the email, try again later"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "token sent to email"})
}

type resetPasswordRequest struct {
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

// ResetPassword re-hashes the supplied raw token, looks up a matching
// non-expired record and sets the new password. The reset record is
// invalidated so the token is single use.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.BadRequest("%v", err))
		return
	}
	if req.Password != req.PasswordConfirm {
		h.fail(c, apperror.BadRequest("passwords are not the same"))
		return
	}

	ctx := c.Request.Context()
	hashed := utils.HashResetToken(c.Param("token"))

	var user models.User
	err := h.users().FindOne(ctx, bson.M{
		"passwordResetToken":   hashed,
		"passwordResetExpires": bson.M{"$gt": time.Now()},
	}).Decode(&user)
	if err != nil {
		h.fail(c, apperror.BadRequest("token is invalid or has expired"))
		return
	}

	newHash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	_, err = h.users().UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$set": bson.M{
			"password": newHash,
			// Backdate a second so a token minted right now stays valid.
			"passwordChangedAt": time.Now().Add(-time.Second),
		},
		"$unset": bson.M{
			"passwordResetToken":   "",
			"passwordResetExpires": "",
		},
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.sendToken(c, &user, http.StatusOK)
}

type updatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" binding:"required"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

// UpdatePassword lets an authenticated user change their password after
// re-proving the current one.
func (h *Handler) UpdatePassword(c *gin.Context) {
	current, _ := middleware.CurrentUser(c)

	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.BadRequest("%v", err))
		return
	}
	if req.Password != req.PasswordConfirm {
		h.fail(c, apperror.BadRequest("passwords are not the same"))
		return
	}

	ctx := c.Request.Context()
	var user models.User
	if err := h.users().FindOne(ctx, bson.M{"_id": current.ID}).Decode(&user); err != nil {
		h.fail(c, err)
		return
	}
	if !utils.CheckPasswordHash(req.PasswordCurrent, user.Password) {
		h.fail(c, apperror.Unauthorized("your current password is wrong"))
		return
	}

	newHash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	_, err = h.users().UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"password":          newHash,
		"passwordChangedAt": time.Now().Add(-time.Second),
	}})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.sendToken(c, &user, http.StatusOK)
}
