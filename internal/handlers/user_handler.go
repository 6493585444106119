package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/atlastours/atlas-api/internal/apperror"
	"github.com/atlastours/atlas-api/internal/crud"
	"github.com/atlastours/atlas-api/internal/middleware"
	"github.com/atlastours/atlas-api/internal/models"
)

// userResource is the admin-facing CRUD over accounts. Passwords never go
// through it and deactivated users never come out of it.
func (h *Handler) userResource() *crud.Resource[models.User] {
	return &crud.Resource[models.User]{
		Col:   h.users(),
		Name:  "users",
		Scope: func(c *gin.Context) bson.M { return activeUsers() },
		Sanitize: func(c *gin.Context, patch map[string]any) error {
			if _, ok := patch["password"]; ok {
				return apperror.BadRequest("this route is not for password updates, please use /updateMyPassword")
			}
			delete(patch, "passwordResetToken")
			delete(patch, "passwordResetExpires")
			if role, ok := patch["role"].(string); ok && !models.IsValidRole(role) {
				return apperror.BadRequest("role must be one of %s", strings.Join(models.ValidRoles, ", "))
			}
			return nil
		},
	}
}

// GetMe rewrites the id parameter to the authenticated user and reuses the
// generic get-one.
func (h *Handler) GetMe(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.Params = append(c.Params, gin.Param{Key: "id", Value: user.ID.Hex()})
	h.userResource().GetOne(c)
}

// UpdateMe updates the caller's own profile. Only name, email and photo can
// change here; password payloads are rejected outright. Accepts either JSON
// or a multipart form carrying a photo upload, which is resized before the
// record is written.
func (h *Handler) UpdateMe(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	set := bson.M{}
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if name := c.PostForm("name"); name != "" {
			set["name"] = name
		}
		if email := c.PostForm("email"); email != "" {
			set["email"] = strings.ToLower(email)
		}
		if c.PostForm("password") != "" || c.PostForm("passwordConfirm") != "" {
			h.fail(c, apperror.BadRequest("this route is not for password updates, please use /updateMyPassword"))
			return
		}
		if file, err := c.FormFile("photo"); err == nil {
			src, err := file.Open()
			if err != nil {
				h.fail(c, err)
				return
			}
			defer src.Close()
			name, err := h.Images.SaveUserPhoto(src, user.ID.Hex())
			if err != nil {
				h.fail(c, apperror.BadRequest("%v", err))
				return
			}
			set["photo"] = name
		}
	} else {
		var req struct {
			Name            string `json:"name"`
			Email           string `json:"email"`
			Password        string `json:"password"`
			PasswordConfirm string `json:"passwordConfirm"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, apperror.BadRequest("invalid request body"))
			return
		}
		if req.Password != "" || req.PasswordConfirm != "" {
			h.fail(c, apperror.BadRequest("this route is not for password updates, please use /updateMyPassword"))
			return
		}
		if req.Name != "" {
			set["name"] = req.Name
		}
		if req.Email != "" {
			set["email"] = strings.ToLower(req.Email)
		}
	}

	if len(set) == 0 {
		h.fail(c, apperror.BadRequest("no update fields provided"))
		return
	}

	ctx := c.Request.Context()
	if _, err := h.users().UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": set}); err != nil {
		h.fail(c, err)
		return
	}
	var updated models.User
	if err := h.users().FindOne(ctx, bson.M{"_id": user.ID}).Decode(&updated); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"user": updated}})
}

// DeleteMe soft-deactivates the account. Historical bookings and reviews
// stay queryable by id; the user just disappears from default reads.
func (h *Handler) DeleteMe(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	_, err := h.users().UpdateOne(c.Request.Context(), bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateUser exists so the admin collection route answers deliberately.
func (h *Handler) CreateUser(c *gin.Context) {
	h.fail(c, apperror.BadRequest("this route is not defined, please use /signup instead"))
}
