package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/push"
)

func newHandlerFixture() (*Handler, *mockRepo) {
	repo := newMockRepo()
	svc := newTestService(repo, &push.MockSender{})
	return NewHandler(svc), repo
}

func requestAs(e *echo.Echo, userID uuid.UUID, method, target string, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID.String())
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_List(t *testing.T) {
	h, repo := newHandlerFixture()
	userID := uuid.New()
	for i := 0; i < 3; i++ {
		repo.Create(context.Background(), &Notification{
			UserID: userID, Kind: KindMissedCall, Title: fmt.Sprintf("n%d", i),
		})
	}

	e := echo.New()
	c, rec := requestAs(e, userID, http.MethodGet, "/api/v1/notifications", "")
	if err := h.List(c); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 {
		t.Fatalf("expected total 3, got %d", resp.Total)
	}
}

func TestHandler_UnreadCount(t *testing.T) {
	h, repo := newHandlerFixture()
	userID := uuid.New()
	repo.Create(context.Background(), &Notification{UserID: userID, Kind: KindMissedCall, Title: "x"})

	e := echo.New()
	c, rec := requestAs(e, userID, http.MethodGet, "/api/v1/notifications/unread-count", "")
	if err := h.UnreadCount(c); err != nil {
		t.Fatal(err)
	}

	var resp map[string]int
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["unread_count"] != 1 {
		t.Fatalf("expected unread_count 1, got %d", resp["unread_count"])
	}
}

func TestHandler_MarkRead_NotFound(t *testing.T) {
	h, _ := newHandlerFixture()

	e := echo.New()
	c, _ := requestAs(e, uuid.New(), http.MethodPut, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.MarkRead(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 HTTPError, got %v", err)
	}
}

func TestHandler_MarkRead_InvalidID(t *testing.T) {
	h, _ := newHandlerFixture()

	e := echo.New()
	c, _ := requestAs(e, uuid.New(), http.MethodPut, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.MarkRead(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestHandler_MarkManyRead(t *testing.T) {
	h, repo := newHandlerFixture()
	userID := uuid.New()

	n := &Notification{UserID: userID, Kind: KindMissedCall, Title: "x"}
	repo.Create(context.Background(), n)

	body := fmt.Sprintf(`{"ids":[%q,%q]}`, n.ID, uuid.New())
	e := echo.New()
	c, rec := requestAs(e, userID, http.MethodPut, "/api/v1/notifications/mark-read", body)
	if err := h.MarkManyRead(c); err != nil {
		t.Fatal(err)
	}

	var resp map[string]int
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["updated"] != 1 {
		t.Fatalf("expected 1 updated, got %d", resp["updated"])
	}
}

func TestHandler_Delete(t *testing.T) {
	h, repo := newHandlerFixture()
	userID := uuid.New()

	n := &Notification{UserID: userID, Kind: KindMissedCall, Title: "x"}
	repo.Create(context.Background(), n)

	e := echo.New()
	c, rec := requestAs(e, userID, http.MethodDelete, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(n.ID.String())

	if err := h.Delete(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
