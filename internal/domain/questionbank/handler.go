package questionbank

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wellcheck/wellcheck/internal/platform/middleware"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

// CategorySummary is a category as listed to clients, in one language.
type CategorySummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	QuestionCount int    `json:"question_count"`
	MaxScore      int    `json:"max_score"`
}

type OptionView struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type QuestionView struct {
	ID       string       `json:"id"`
	Kind     Kind         `json:"type"`
	Prompt   string       `json:"prompt"`
	Required bool         `json:"required"`
	Options  []OptionView `json:"options,omitempty"`
	Min      *float64     `json:"min,omitempty"`
	Max      *float64     `json:"max,omitempty"`
	Step     *float64     `json:"step,omitempty"`
}

// CategoryView is a full questionnaire rendered in one language. Option
// scores are not exposed.
type CategoryView struct {
	CategorySummary
	Language  bilingual.Locale `json:"language"`
	Questions []QuestionView   `json:"questions"`
}

func summarize(c *Category, loc bilingual.Locale) CategorySummary {
	return CategorySummary{
		ID:            c.ID,
		Title:         c.Title.Get(loc),
		Description:   c.Description.Get(loc),
		QuestionCount: len(c.Questions),
		MaxScore:      c.MaxScore(),
	}
}

// Render localizes c for loc, falling back per field to the other
// language.
func Render(c *Category, loc bilingual.Locale) CategoryView {
	v := CategoryView{
		CategorySummary: summarize(c, loc),
		Language:        loc,
		Questions:       make([]QuestionView, 0, len(c.Questions)),
	}
	for _, q := range c.Questions {
		qv := QuestionView{
			ID:       q.ID,
			Kind:     q.Kind,
			Prompt:   q.Prompt.Get(loc),
			Required: q.Required,
			Min:      q.Min,
			Max:      q.Max,
			Step:     q.Step,
		}
		for _, o := range q.Options {
			qv.Options = append(qv.Options, OptionView{Value: o.Value, Label: o.Label.Get(loc)})
		}
		v.Questions = append(v.Questions, qv)
	}
	return v
}

type Handler struct {
	bank *Bank
}

func NewHandler(bank *Bank) *Handler {
	return &Handler{bank: bank}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/categories", h.ListCategories)
	api.GET("/categories/:category", h.GetCategory)
}

func (h *Handler) ListCategories(c echo.Context) error {
	loc := middleware.LocaleFrom(c)
	cats := h.bank.Categories()
	out := make([]CategorySummary, 0, len(cats))
	for _, cat := range cats {
		out = append(out, summarize(cat, loc))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetCategory(c echo.Context) error {
	cat, ok := h.bank.Category(c.Param("category"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "category not found")
	}
	return c.JSON(http.StatusOK, Render(cat, middleware.LocaleFrom(c)))
}
