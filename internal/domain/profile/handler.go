package profile

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/wellcheck/wellcheck/internal/platform/auth"
	"github.com/wellcheck/wellcheck/internal/platform/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	user := auth.RequireUser()
	api.GET("/profile", h.GetProfile, user)
	api.PUT("/profile", h.UpdateProfile, user)
}

// self returns the caller's user id and token email.
func self(c echo.Context) (uuid.UUID, string, error) {
	who, _ := auth.IdentityFromContext(c.Request().Context())
	id, err := uuid.Parse(who.ID)
	if err != nil {
		return uuid.Nil, "", echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	email := ""
	if claims := auth.ClaimsFromContext(c.Request().Context()); claims != nil {
		email = claims.Email
	}
	return id, email, nil
}

func (h *Handler) GetProfile(c echo.Context) error {
	id, email, err := self(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetOrCreate(c.Request().Context(), id, email, middleware.LocaleFrom(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	id, email, err := self(c)
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	p, err := h.svc.Update(c.Request().Context(), id, email, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalid):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}
