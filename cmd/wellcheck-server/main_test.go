package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wellcheck/wellcheck/internal/config"
	"github.com/wellcheck/wellcheck/internal/domain/questionbank"
	"github.com/wellcheck/wellcheck/internal/domain/risk"
	"github.com/wellcheck/wellcheck/internal/platform/localstore"
	"github.com/wellcheck/wellcheck/internal/platform/scheduler"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

func phq9JSON(value string) string {
	var parts []string
	for i := 1; i <= 9; i++ {
		parts = append(parts, `{"question_id":"phq9_`+string(rune('0'+i))+`","answer":"`+value+`"}`)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func defaultBank(t *testing.T) *questionbank.Bank {
	t.Helper()
	bank, err := questionbank.Default()
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	return bank
}

func TestScoreAnswers(t *testing.T) {
	bank := defaultBank(t)

	out, err := scoreAnswers(bank, "phq9", bilingual.English, strings.NewReader(phq9JSON("3")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TotalScore != 27 || out.MaxScore != 27 || out.Percentage != 100 {
		t.Errorf("got total=%d max=%d pct=%d", out.TotalScore, out.MaxScore, out.Percentage)
	}
	if out.RiskLevel != risk.VeryHigh {
		t.Errorf("risk = %s, want %s", out.RiskLevel, risk.VeryHigh)
	}
	if out.Language != "en" || out.Title == "" {
		t.Errorf("language=%s title=%q", out.Language, out.Title)
	}
	if out.Recommendations == nil {
		t.Error("recommendations should never be null")
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"total_score":27`) {
		t.Errorf("evaluation fields should be flattened: %s", buf.String())
	}
}

func TestScoreAnswers_Errors(t *testing.T) {
	bank := defaultBank(t)
	if _, err := scoreAnswers(bank, "nope", bilingual.Thai, strings.NewReader("[]")); err == nil {
		t.Error("expected error for unknown category")
	}
	if _, err := scoreAnswers(bank, "phq9", bilingual.Thai, strings.NewReader("{")); err == nil {
		t.Error("expected error for malformed answers")
	}
}

func TestListBank(t *testing.T) {
	var buf bytes.Buffer
	if err := listBank(&buf, defaultBank(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, id := range []string{"phq9", "gad7", "st5", "audit"} {
		if !strings.Contains(out, id) {
			t.Errorf("listing missing %s:\n%s", id, out)
		}
	}
}

func testApp(t *testing.T) *app {
	t.Helper()
	a := &app{
		cfg: &config.Config{
			Env:                "development",
			CORSOrigins:        []string{"http://localhost:3000"},
			RateLimitRPS:       100,
			RateLimitBurst:     100,
			RequestTimeout:     10 * time.Second,
			BodyLimit:          "64K",
			GuestRetentionDays: 30,
			AttemptTTL:         time.Hour,
		},
		logger: zerolog.Nop(),
		guests: localstore.NewMemory(),
	}
	if err := a.build(); err != nil {
		t.Fatalf("build: %v", err)
	}
	return a
}

func request(e http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthWithoutDatabase(t *testing.T) {
	e := testApp(t).newEcho()

	if rec := request(e, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("/health = %d", rec.Code)
	}
	rec := request(e, http.MethodGet, "/health/db", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "disabled") {
		t.Errorf("/health/db = %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id")
	}
	rec = request(e, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `route="/health"`) {
		t.Errorf("/metrics = %d %s", rec.Code, rec.Body.String())
	}
}

func TestServer_GuestFlow(t *testing.T) {
	e := testApp(t).newEcho()

	rec := request(e, http.MethodPost, "/api/v1/guest/session", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("guest session = %d %s", rec.Code, rec.Body.String())
	}
	var session map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatal(err)
	}
	guest := map[string]string{"X-Guest-ID": session["guest_id"], "Accept-Language": "en"}

	body := `{"category":"phq9","answers":` + phq9JSON("1") + `}`
	rec = request(e, http.MethodPost, "/api/v1/assessments", body, guest)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit = %d %s", rec.Code, rec.Body.String())
	}

	rec = request(e, http.MethodGet, "/api/v1/dashboard", "", guest)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard = %d %s", rec.Code, rec.Body.String())
	}
	var stats struct {
		TotalAssessments int    `json:"total_assessments"`
		OverallRisk      string `json:"overall_risk"`
		Language         string `json:"language"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalAssessments != 1 || stats.OverallRisk != string(risk.Medium) || stats.Language != "en" {
		t.Errorf("stats = %+v", stats)
	}
}

func TestServer_UserRoutesWithoutDatabase(t *testing.T) {
	e := testApp(t).newEcho()

	for _, r := range e.Routes() {
		if strings.HasPrefix(r.Path, "/api/v1/profile") {
			t.Errorf("profile route %s %s registered without a database", r.Method, r.Path)
		}
	}
	rec := request(e, http.MethodGet, "/api/v1/assessments", "", map[string]string{"Authorization": "Bearer abc.def.ghi"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bearer without a verifier = %d, want 401", rec.Code)
	}
	if rec := request(e, http.MethodGet, "/api/v1/categories", "", nil); rec.Code != http.StatusOK {
		t.Errorf("categories = %d", rec.Code)
	}
	for _, path := range []string{"/api/v1/profile", "/api/v1/does-not-exist"} {
		if rec := request(e, http.MethodGet, path, "", nil); rec.Code != http.StatusNotFound {
			t.Errorf("%s = %d, want 404", path, rec.Code)
		}
	}
}

type purgeRecorder struct {
	*localstore.Memory
	cutoff time.Time
}

func (p *purgeRecorder) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return p.Memory.PurgeOlderThan(ctx, cutoff)
}

func TestRegisterJobs(t *testing.T) {
	a := testApp(t)
	rec := &purgeRecorder{Memory: localstore.NewMemory()}
	a.guests = rec

	s := scheduler.New(zerolog.Nop())
	if err := a.registerJobs(s); err != nil {
		t.Fatalf("registerJobs: %v", err)
	}
	if err := s.Run("evict-stale-attempts"); err != nil {
		t.Errorf("evict: %v", err)
	}
	if err := s.Run("purge-guest-data"); err != nil {
		t.Errorf("purge: %v", err)
	}
	if err := s.Run("missing"); err == nil {
		t.Error("expected an error for an unknown job")
	}
	want := time.Now().Add(-30 * 24 * time.Hour)
	if d := rec.cutoff.Sub(want); d > time.Minute || d < -time.Minute {
		t.Errorf("cutoff = %s, want about %s", rec.cutoff, want)
	}
}
