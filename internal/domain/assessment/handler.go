package assessment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/wellcheck/wellcheck/internal/domain/scoring"
	"github.com/wellcheck/wellcheck/internal/platform/auth"
	"github.com/wellcheck/wellcheck/internal/platform/middleware"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
	"github.com/wellcheck/wellcheck/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/guest/session", h.StartGuestSession)

	// Either a signed-in user or a guest. Middleware is attached per
	// route so unknown paths under api stay 404.
	anyone := auth.RequireIdentity()
	api.POST("/attempts", h.StartAttempt, anyone)
	api.GET("/attempts/:id", h.GetAttempt, anyone)
	api.PUT("/attempts/:id/answers", h.AnswerAttempt, anyone)
	api.POST("/attempts/:id/submit", h.SubmitAttempt, anyone)
	api.POST("/assessments", h.SubmitAssessment, anyone)
	api.GET("/assessments", h.ListAssessments, anyone)
	api.GET("/assessments/latest", h.LatestAssessments, anyone)
	api.DELETE("/guest/assessments", h.DeleteGuestAssessments, anyone)

	// Signed-in users only
	user := auth.RequireUser()
	api.DELETE("/users/:user_id/assessments", h.DeleteUserAssessments, user)
	api.POST("/assessments/import-guest", h.ImportGuest, user)
}

type startAttemptRequest struct {
	Category string           `json:"category" validate:"required"`
	Language bilingual.Locale `json:"language"`
}

type answerRequest struct {
	Answers []scoring.Answer `json:"answers" validate:"required,min=1,dive"`
}

type submitRequest struct {
	Category string           `json:"category" validate:"required"`
	Language bilingual.Locale `json:"language"`
	Answers  []scoring.Answer `json:"answers" validate:"required,min=1,dive"`
}

type importRequest struct {
	GuestID string `json:"guest_id" validate:"required,uuid"`
}

func identity(c echo.Context) auth.Identity {
	who, _ := auth.IdentityFromContext(c.Request().Context())
	return who
}

func language(c echo.Context, requested bilingual.Locale) bilingual.Locale {
	if requested.Valid() {
		return requested
	}
	return middleware.LocaleFrom(c)
}

func bindValid(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

func attemptID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// httpError maps service errors to HTTP responses.
func httpError(err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrPersistence):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ErrUnknownCategory), errors.Is(err, ErrIncomplete), errors.Is(err, scoring.ErrInvalidAnswer):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

// pendingResponse is returned when the result was computed but not saved.
// The client keeps the numeric result and retries through the attempt.
type pendingResponse struct {
	Error     string            `json:"error"`
	AttemptID uuid.UUID         `json:"attempt_id"`
	Result    *AssessmentResult `json:"result,omitempty"`
}

func submitted(c echo.Context, id uuid.UUID, r *AssessmentResult, err error) error {
	if errors.Is(err, ErrPersistence) {
		return c.JSON(http.StatusServiceUnavailable, pendingResponse{Error: err.Error(), AttemptID: id, Result: r})
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) StartGuestSession(c echo.Context) error {
	return c.JSON(http.StatusCreated, map[string]string{
		"guest_id": uuid.New().String(),
		"header":   auth.GuestIDHeader,
	})
}

func (h *Handler) StartAttempt(c echo.Context) error {
	var req startAttemptRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	a, err := h.svc.StartAttempt(c.Request().Context(), identity(c), req.Category, language(c, req.Language))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAttempt(c echo.Context) error {
	id, err := attemptID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.GetAttempt(c.Request().Context(), identity(c), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) AnswerAttempt(c echo.Context) error {
	id, err := attemptID(c)
	if err != nil {
		return err
	}
	var req answerRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	a, err := h.svc.Answer(c.Request().Context(), identity(c), id, req.Answers)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) SubmitAttempt(c echo.Context) error {
	id, err := attemptID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Submit(c.Request().Context(), identity(c), id)
	return submitted(c, id, r, err)
}

func (h *Handler) SubmitAssessment(c echo.Context) error {
	var req submitRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	r, id, err := h.svc.SubmitOnce(c.Request().Context(), identity(c), req.Category, language(c, req.Language), req.Answers)
	return submitted(c, id, r, err)
}

func (h *Handler) ListAssessments(c echo.Context) error {
	p := pagination.FromContext(c)
	items, err := h.svc.List(c.Request().Context(), identity(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Slice(items, p), len(items), p.Limit, p.Offset))
}

func (h *Handler) LatestAssessments(c echo.Context) error {
	items, err := h.svc.Latest(c.Request().Context(), identity(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeleteGuestAssessments(c echo.Context) error {
	who := identity(c)
	if !who.IsGuest() {
		return echo.NewHTTPError(http.StatusBadRequest, auth.GuestIDHeader+" header is required")
	}
	if err := h.svc.DeleteAll(c.Request().Context(), who); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteUserAssessments(c echo.Context) error {
	target, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user_id")
	}
	if err := h.svc.DeleteAll(c.Request().Context(), auth.User(target.String())); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ImportGuest(c echo.Context) error {
	var req importRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	n, err := h.svc.ImportGuest(c.Request().Context(), identity(c), req.GuestID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"imported": n})
}
