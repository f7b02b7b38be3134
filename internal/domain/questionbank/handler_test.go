package questionbank

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	b, err := Default()
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	return NewHandler(b)
}

func TestHandler_ListCategories(t *testing.T) {
	h := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories?lang=en", nil)
	rec := httptest.NewRecorder()

	if err := h.ListCategories(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out []CategorySummary
	json.Unmarshal(rec.Body.Bytes(), &out)
	if len(out) != 6 {
		t.Fatalf("expected 6 categories, got %d", len(out))
	}
	if out[0].ID != "phq9" || out[0].MaxScore != 27 || out[0].QuestionCount != 9 {
		t.Errorf("first = %+v", out[0])
	}
	if out[0].Title == "" {
		t.Error("expected an english title")
	}
}

func TestHandler_GetCategory(t *testing.T) {
	h := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories/audit", nil)
	req.Header.Set("Accept-Language", "th-TH")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("category")
	c.SetParamValues("audit")

	if err := h.GetCategory(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v CategoryView
	json.Unmarshal(rec.Body.Bytes(), &v)
	if v.Language != bilingual.Thai || len(v.Questions) != 10 {
		t.Errorf("language=%s questions=%d", v.Language, len(v.Questions))
	}
	if strings.Contains(rec.Body.String(), `"score"`) {
		t.Error("option scores must not be exposed")
	}
}

func TestHandler_GetCategory_NotFound(t *testing.T) {
	h := newTestHandler(t)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("category")
	c.SetParamValues("bmi")

	err := h.GetCategory(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestRender_FallsBackPerField(t *testing.T) {
	score := 1
	c := &Category{
		ID:    "x",
		Title: bilingual.Only(bilingual.Thai, "หัวข้อ"),
		Questions: []*Question{{
			ID:      "q1",
			Kind:    KindSingleChoice,
			Prompt:  bilingual.New("คำถาม", "Question"),
			Options: []Option{{Value: "a", Label: bilingual.Only(bilingual.English, "A"), Score: &score}},
		}},
	}
	v := Render(c, bilingual.English)
	if v.Title != "หัวข้อ" {
		t.Errorf("title should fall back to thai, got %q", v.Title)
	}
	if v.Questions[0].Prompt != "Question" || v.Questions[0].Options[0].Label != "A" {
		t.Errorf("question = %+v", v.Questions[0])
	}
}
