package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"patient-portal-api/internal/apperr"
	"patient-portal-api/internal/auth"
	"patient-portal-api/internal/model"
	"patient-portal-api/internal/store"
)

const (
	msgMissingFields    = "Tous les champs sont obligatoires."
	msgPasswordMismatch = "Les mots de passe ne correspondent pas."
	msgEmailTaken       = "Cet email est déjà utilisé."
	msgBadBirthDate     = "Date de naissance invalide."
	msgLoginMissing     = "Email et mot de passe obligatoires."
	msgBadCredentials   = "Email ou mot de passe incorrect."
	msgServerError      = "Erreur serveur."
)

type registerRequest struct {
	Nom             string `json:"nom" binding:"required"`
	Prenom          string `json:"prenom" binding:"required"`
	DateNaissance   string `json:"date_naissance" binding:"required"`
	Adresse         string `json:"adresse" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userSummary struct {
	ID     int64  `json:"id"`
	Nom    string `json:"nom"`
	Prenom string `json:"prenom"`
	Email  string `json:"email"`
}

// bindError maps a registration binding failure to its message. A missing
// field wins over a password mismatch.
func bindError(err error) *apperr.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(msgMissingFields)
	}
	mismatch := false
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			return apperr.Validation(msgMissingFields)
		case "eqfield":
			mismatch = true
		}
	}
	if mismatch {
		return apperr.Validation(msgPasswordMismatch)
	}
	return apperr.Validation(msgMissingFields)
}

func parseBirthDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (h *Handler) authFail(c *gin.Context, err error) {
	h.respondErr(c, err, msgServerError, func(e *apperr.Error) gin.H {
		return gin.H{"message": e.Message}
	})
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.authFail(c, bindError(err))
		return
	}
	birth, err := parseBirthDate(req.DateNaissance)
	if err != nil {
		h.authFail(c, apperr.Validation(msgBadBirthDate))
		return
	}

	ctx := c.Request.Context()
	taken, err := h.store.EmailTaken(ctx, req.Email)
	if err != nil {
		h.authFail(c, err)
		return
	}
	if taken {
		h.authFail(c, apperr.Validation(msgEmailTaken))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.authFail(c, err)
		return
	}

	u := &model.User{
		Nom:           req.Nom,
		Prenom:        req.Prenom,
		DateNaissance: birth,
		Adresse:       req.Adresse,
		Email:         req.Email,
		PasswordHash:  hash,
	}
	if err := h.store.CreateUser(ctx, u); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, store.ErrDuplicateEmail) {
			err = apperr.Validation(msgEmailTaken)
		}
		h.authFail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Compte créé avec succès."})
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.authFail(c, apperr.Validation(msgLoginMissing))
		return
	}

	u, err := h.store.UserByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		auth.CompareDummy(req.Password)
		h.authFail(c, apperr.Auth(msgBadCredentials))
		return
	}
	if err != nil {
		h.authFail(c, err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		h.authFail(c, apperr.Auth(msgBadCredentials))
		return
	}

	tok, err := h.tokens.Issue(auth.Identity{UserID: u.ID, Email: u.Email})
	if err != nil {
		h.authFail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Connexion réussie.",
		"token":   tok,
		"user":    userSummary{ID: u.ID, Nom: u.Nom, Prenom: u.Prenom, Email: u.Email},
	})
}
