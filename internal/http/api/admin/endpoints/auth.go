package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Luminet-Displays/luminet/internal/db"
	"github.com/Luminet-Displays/luminet/internal/http/api"
	"github.com/Luminet-Displays/luminet/internal/http/api/admin/packets"
	"github.com/Luminet-Displays/luminet/internal/http/middleware"
	"github.com/Luminet-Displays/luminet/internal/model"
)

// AuthModule serves the unauthenticated signup/login surface. Mount it in
// a group without JWT middleware.
type AuthModule struct {
	Store  db.Store
	Secret string
}

func (m *AuthModule) Mount(c *api.Controller) {
	c.Public("POST", "/signup", m.signup)
	c.Public("POST", "/login", m.login)
}

func (m *AuthModule) signup(ctx *gin.Context) (any, *api.APIError) {
	var req packets.SignupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	hash, err := middleware.HashPassword(req.Password)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not hash password"}
	}

	id, err := m.Store.CreateUser(req.Email, hash, req.Name)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusConflict, Message: "email already registered"}
	}

	token, err := middleware.GenerateJWT(id, m.Secret)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not issue token"}
	}
	return packets.TokenResponse{Token: token}, nil
}

func (m *AuthModule) login(ctx *gin.Context) (any, *api.APIError) {
	var req packets.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	user, err := m.Store.GetUserByEmail(req.Email)
	if err != nil || !middleware.CheckPassword(user.HashedPassword, req.Password) {
		return nil, &api.APIError{Code: http.StatusUnauthorized, Message: middleware.ErrInvalidCredentials.Error()}
	}

	token, err := middleware.GenerateJWT(user.ID, m.Secret)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not issue token"}
	}
	return packets.TokenResponse{Token: token}, nil
}

// ProfileModule serves the authenticated account surface.
type ProfileModule struct {
	Store db.Store
}

func (m *ProfileModule) Mount(c *api.Controller) {
	c.GET("/profile", m.current)
	c.PUT("/profile", m.update)
}

func (m *ProfileModule) current(_ *gin.Context, user *model.User) (any, *api.APIError) {
	return packets.ProfileResponse{ID: user.ID, Email: user.Email, Name: user.Name}, nil
}

func (m *ProfileModule) update(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var req struct {
		Email string  `json:"email" binding:"required,email"`
		Name  *string `json:"name"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if err := m.Store.UpdateUserProfile(user.ID, req.Email, req.Name); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "profile update failed"}
	}
	return packets.ProfileResponse{ID: user.ID, Email: req.Email, Name: req.Name}, nil
}
