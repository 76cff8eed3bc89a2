package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/mediavault/config"
	"github.com/cppla/mediavault/permission"
	"github.com/cppla/mediavault/utils"
)

// AuthController issues API tokens for the configured operator credential.
type AuthController struct{}

func NewAuthController() *AuthController {
	return &AuthController{}
}

// Token exchanges the admin credential for a JWT. The resulting token carries
// the elevated operator level: this identity check is exactly the external
// path that can grant it.
func (a *AuthController) Token(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	cfg := config.Get()
	if cfg.AdminUser == "" || cfg.AdminPasswordHash == "" {
		utils.Error(ctx, http.StatusForbidden, 40310, "admin credential not configured")
		return
	}
	if req.Username != cfg.AdminUser || !utils.CheckPassword(cfg.AdminPasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "invalid credentials")
		return
	}

	token, err := utils.GenerateToken(req.Username, int(permission.LevelElevated), 24*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{"token": token})
}
