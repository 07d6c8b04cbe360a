package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/crypto/bcrypt"

	"github.com/sparkmates/sparkmates/internal/auth"
	"github.com/sparkmates/sparkmates/internal/config"
	"github.com/sparkmates/sparkmates/internal/db"
	"github.com/sparkmates/sparkmates/internal/service"
)

func newTestHandler(t *testing.T) (http.Handler, *logtest.Hook) {
	t.Helper()
	store, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	logger, hook := logtest.NewNullLogger()
	mgr := auth.NewManager(store, config.AuthConfig{
		TestPassword: "password",
		SessionTTL:   time.Hour,
		JWTSecret:    "test-secret",
		BcryptCost:   bcrypt.MinCost,
	}, logger)
	h := New(service.New(store, logger), mgr, logger, 3600)
	return h.Routes(), hook
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func login(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	rec := do(t, h, "POST", "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": "password",
	})
	expectStatus(t, rec, http.StatusOK)
	return decode[authResponse](t, rec).Token
}

// ============================================================
// Auth
// ============================================================

func TestLoginReturnsTokenAndCookie(t *testing.T) {
	h, hook := newTestHandler(t)

	rec := do(t, h, "POST", "/api/auth/login", "", map[string]string{
		"email":    "test@example.com",
		"password": "password",
	})
	expectStatus(t, rec, http.StatusOK)
	resp := decode[authResponse](t, rec)
	if resp.Token == "" || resp.User.ID != "user1" || resp.Redirect != "/dashboard" {
		t.Fatalf("unexpected response %+v", resp)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != resp.Token || !cookie.HttpOnly {
		t.Fatalf("expected session cookie with the token, got %+v", cookie)
	}

	found := false
	for _, e := range hook.AllEntries() {
		if e.Message == "user logged in" && e.Data["user"] == "user1" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a login log entry")
	}
}

func TestLoginRejections(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"wrong password", map[string]string{"email": "test@example.com", "password": "wrong"}, http.StatusUnauthorized},
		{"unknown email", map[string]string{"email": "nobody@example.com", "password": "password"}, http.StatusUnauthorized},
		{"bad json", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, "POST", "/api/auth/login", "", tt.body)
			expectStatus(t, rec, tt.want)
			if decode[map[string]string](t, rec)["error"] == "" {
				t.Fatal("expected an error message")
			}
		})
	}
}

func TestMe(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, "GET", "/api/auth/me", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if decode[map[string]any](t, rec)["authenticated"] != false {
		t.Fatalf("expected anonymous, got %s", rec.Body.String())
	}

	token := login(t, h, "zhang@example.com")
	rec = do(t, h, "GET", "/api/auth/me", token, nil)
	expectStatus(t, rec, http.StatusOK)
	me := decode[struct {
		Authenticated bool    `json:"authenticated"`
		User          db.User `json:"user"`
	}](t, rec)
	if !me.Authenticated || me.User.ID != "user2" {
		t.Fatalf("unexpected me %+v", me)
	}
}

func TestProtectedRoutesNeedAuth(t *testing.T) {
	h, _ := newTestHandler(t)

	paths := []string{"/api/ideas", "/api/projects", "/api/messages", "/api/dashboard", "/api/notifications"}
	for _, p := range paths {
		rec := do(t, h, "GET", p, "", nil)
		expectStatus(t, rec, http.StatusUnauthorized)
	}

	rec := do(t, h, "GET", "/api/ideas", "not-a-jwt", nil)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestCookieAuth(t *testing.T) {
	h, _ := newTestHandler(t)
	token := login(t, h, "test@example.com")

	req := httptest.NewRequest("GET", "/api/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)
	if decode[service.DashboardView](t, rec).User.ID != "user1" {
		t.Fatalf("unexpected dashboard %s", rec.Body.String())
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	h, _ := newTestHandler(t)
	token := login(t, h, "test@example.com")

	expectStatus(t, do(t, h, "GET", "/api/ideas", token, nil), http.StatusOK)
	expectStatus(t, do(t, h, "POST", "/api/auth/logout", token, nil), http.StatusOK)
	expectStatus(t, do(t, h, "GET", "/api/ideas", token, nil), http.StatusUnauthorized)
}

func TestRegisterThenUpdateProfile(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := do(t, h, "POST", "/api/auth/register", "", map[string]string{
		"name":     "Sun Li",
		"email":    "sun@example.com",
		"password": "hunter22",
	})
	expectStatus(t, rec, http.StatusOK)
	resp := decode[authResponse](t, rec)
	if resp.User.ID != "user6" || resp.User.Role != "USER" {
		t.Fatalf("unexpected user %+v", resp.User)
	}

	rec = do(t, h, "PUT", "/api/user", resp.Token, map[string]string{"bio": "Maker"})
	expectStatus(t, rec, http.StatusOK)
	if u := decode[db.User](t, rec); u.Bio != "Maker" || u.Name != "Sun Li" {
		t.Fatalf("unexpected profile %+v", u)
	}

	rec = do(t, h, "POST", "/api/auth/register", "", map[string]string{"email": "x@example.com"})
	expectStatus(t, rec, http.StatusBadRequest)
}

// ============================================================
// Ideas
// ============================================================

func TestCreateIdeaUsesSessionUser(t *testing.T) {
	h, _ := newTestHandler(t)
	token := login(t, h, "wang@example.com")

	rec := do(t, h, "POST", "/api/ideas", token, map[string]any{
		"title":      "Repair cafe map",
		"userId":     "user1",
		"visibility": "PUBLIC",
	})
	expectStatus(t, rec, http.StatusCreated)
	idea := decode[db.Idea](t, rec)
	if idea.UserID != "user3" || idea.ID != "idea7" {
		t.Fatalf("unexpected idea %+v", idea)
	}

	rec = do(t, h, "POST", "/api/ideas", token, map[string]any{"visibility": "SECRET"})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestPrivateIdeaHiddenFromOthers(t *testing.T) {
	h, _ := newTestHandler(t)
	outsider := login(t, h, "wang@example.com")
	collaborator := login(t, h, "test@example.com")

	expectStatus(t, do(t, h, "GET", "/api/ideas/idea5", outsider, nil), http.StatusNotFound)
	expectStatus(t, do(t, h, "POST", "/api/ideas/idea5/like", outsider, nil), http.StatusNotFound)

	rec := do(t, h, "GET", "/api/ideas/idea5", collaborator, nil)
	expectStatus(t, rec, http.StatusOK)
	first := decode[db.Idea](t, rec).Views
	rec = do(t, h, "GET", "/api/ideas/idea5", collaborator, nil)
	if got := decode[db.Idea](t, rec).Views; got != first+1 {
		t.Fatalf("expected views %d, got %d", first+1, got)
	}

	rec = do(t, h, "GET", "/api/ideas", outsider, nil)
	expectStatus(t, rec, http.StatusOK)
	for _, idea := range decode[[]db.Idea](t, rec) {
		if idea.ID == "idea5" {
			t.Fatal("private idea listed for outsider")
		}
	}
}

func TestIdeaListSortAndFilter(t *testing.T) {
	h, _ := newTestHandler(t)
	token := login(t, h, "test@example.com")

	expectStatus(t, do(t, h, "GET", "/api/ideas?sort=random", token, nil), http.StatusBadRequest)

	rec := do(t, h, "GET", "/api/ideas?sort=popular", token, nil)
	expectStatus(t, rec, http.StatusOK)
	ideas := decode[[]db.Idea](t, rec)
	for i := 1; i < len(ideas); i++ {
		if ideas[i-1].Likes < ideas[i].Likes {
			t.Fatalf("not sorted by likes: %d before %d", ideas[i-1].Likes, ideas[i].Likes)
		}
	}

	rec = do(t, h, "GET", "/api/ideas?search=%25", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if n := len(decode[[]db.Idea](t, rec)); n != 0 {
		t.Fatalf("a literal %% should match nothing, got %d ideas", n)
	}

	rec = do(t, h, "GET", "/api/ideas?search=farm", token, nil)
	ideas = decode[[]db.Idea](t, rec)
	if len(ideas) != 1 || ideas[0].ID != "idea3" {
		t.Fatalf("unexpected search result %+v", ideas)
	}
}

func TestCommentOnIdea(t *testing.T) {
	h, _ := newTestHandler(t)
	token := login(t, h, "zhang@example.com")

	rec := do(t, h, "POST", "/api/ideas/idea2/comments", token, map[string]string{"content": "Count me in"})
	expectStatus(t, rec, http.StatusCreated)
	if c := decode[db.Comment](t, rec); c.UserID != "user2" || c.IdeaID != "idea2" {
		t.Fatalf("unexpected comment %+v", c)
	}

	rec = do(t, h, "GET", "/api/ideas/idea2/comments", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if n := len(decode[[]db.Comment](t, rec)); n != 1 {
		t.Fatalf("expected 1 comment, got %d", n)
	}

	rec = do(t, h, "POST", "/api/ideas/idea2/comments", token, map[string]string{"content": "  "})
	expectStatus(t, rec, http.StatusBadRequest)
	expectStatus(t, do(t, h, "GET", "/api/ideas/idea404/comments", token, nil), http.StatusNotFound)
}

// ============================================================
// Projects
// ============================================================

func TestProjectMutationsNeedMembership(t *testing.T) {
	h, _ := newTestHandler(t)
	outsider := login(t, h, "zhao@example.com")
	owner := login(t, h, "chen@example.com")

	task := map[string]string{"title": "Write onboarding guide", "assigneeId": "user3"}
	expectStatus(t, do(t, h, "POST", "/api/projects/project5/tasks", outsider, task), http.StatusForbidden)

	rec := do(t, h, "POST", "/api/projects/project5/tasks", owner, task)
	expectStatus(t, rec, http.StatusCreated)
	created := decode[db.Task](t, rec)

	rec = do(t, h, "PUT", "/api/projects/project5/tasks/"+created.ID, owner, map[string]string{"status": "done"})
	expectStatus(t, rec, http.StatusBadRequest)
	rec = do(t, h, "PUT", "/api/projects/project5/tasks/"+created.ID, owner, map[string]string{"status": "completed"})
	expectStatus(t, rec, http.StatusOK)

	rec = do(t, h, "GET", "/api/projects/project5", owner, nil)
	expectStatus(t, rec, http.StatusOK)
	if p := decode[db.Project](t, rec); p.Progress != 75 {
		t.Fatalf("expected progress 75, got %d", p.Progress)
	}

	expectStatus(t, do(t, h, "PUT", "/api/projects/project5/tasks/task404", owner, map[string]string{"status": "completed"}), http.StatusNotFound)
	expectStatus(t, do(t, h, "GET", "/api/projects/project404", owner, nil), http.StatusNotFound)
}

func TestAddProjectMember(t *testing.T) {
	h, _ := newTestHandler(t)
	owner := login(t, h, "chen@example.com")

	expectStatus(t, do(t, h, "POST", "/api/projects/project5/members", owner, map[string]string{"userId": "user404"}), http.StatusNotFound)
	expectStatus(t, do(t, h, "POST", "/api/projects/project5/members", owner, map[string]string{}), http.StatusBadRequest)

	rec := do(t, h, "POST", "/api/projects/project5/members", owner, map[string]string{"userId": "user4"})
	expectStatus(t, rec, http.StatusOK)
	if !decode[db.Project](t, rec).HasMember("user4") {
		t.Fatal("expected user4 to be a member")
	}

	invitee := login(t, h, "zhao@example.com")
	rec = do(t, h, "GET", "/api/notifications", invitee, nil)
	found := false
	for _, n := range decode[[]db.Notification](t, rec) {
		if n.Type == db.NotifyProjectInvite && n.RelatedID == "project5" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a project invite")
	}
}

func TestProjectListRejectsBadStatus(t *testing.T) {
	h, _ := newTestHandler(t)
	token := login(t, h, "test@example.com")

	expectStatus(t, do(t, h, "GET", "/api/projects?status=archived", token, nil), http.StatusBadRequest)
	rec := do(t, h, "GET", "/api/projects?status=completed", token, nil)
	expectStatus(t, rec, http.StatusOK)
	projects := decode[[]db.Project](t, rec)
	if len(projects) != 1 || projects[0].ID != "project4" {
		t.Fatalf("unexpected projects %+v", projects)
	}
}

// ============================================================
// Messages and notifications
// ============================================================

func TestConversationMessagesNeedParticipant(t *testing.T) {
	h, _ := newTestHandler(t)
	outsider := login(t, h, "wang@example.com")
	participant := login(t, h, "zhang@example.com")

	expectStatus(t, do(t, h, "GET", "/api/conversations/conv1/messages", outsider, nil), http.StatusForbidden)
	expectStatus(t, do(t, h, "GET", "/api/conversations/conv404/messages", outsider, nil), http.StatusNotFound)

	rec := do(t, h, "GET", "/api/conversations/conv1/messages", participant, nil)
	expectStatus(t, rec, http.StatusOK)
	if n := len(decode[[]db.Message](t, rec)); n != 4 {
		t.Fatalf("expected 4 messages, got %d", n)
	}
}

func TestSendMessageAndUnreadCount(t *testing.T) {
	h, _ := newTestHandler(t)
	sender := login(t, h, "test@example.com")
	recipient := login(t, h, "chen@example.com")

	rec := do(t, h, "GET", "/api/messages/unread-count", recipient, nil)
	before := decode[map[string]int](t, rec)["count"]

	rec = do(t, h, "POST", "/api/messages", sender, map[string]string{
		"recipientId": "user5",
		"content":     "Want to pair on the pilot?",
	})
	expectStatus(t, rec, http.StatusCreated)
	msg := decode[db.Message](t, rec)
	if msg.SenderID != "user1" || msg.ConversationID != "conv4" {
		t.Fatalf("unexpected message %+v", msg)
	}

	rec = do(t, h, "GET", "/api/messages/unread-count", recipient, nil)
	if got := decode[map[string]int](t, rec)["count"]; got != before+1 {
		t.Fatalf("expected %d unread, got %d", before+1, got)
	}

	rec = do(t, h, "PUT", "/api/conversations/conv4/read", recipient, nil)
	expectStatus(t, rec, http.StatusOK)
	if n := decode[map[string]int](t, rec)["updated"]; n != 1 {
		t.Fatalf("expected 1 updated, got %d", n)
	}

	expectStatus(t, do(t, h, "POST", "/api/messages", sender, map[string]string{
		"conversationId": "conv2",
		"content":        "hello",
	}), http.StatusForbidden)
	expectStatus(t, do(t, h, "POST", "/api/messages", sender, map[string]string{
		"recipientId": "user5",
		"content":     " ",
	}), http.StatusBadRequest)
}

func TestConversationsList(t *testing.T) {
	h, _ := newTestHandler(t)
	token := login(t, h, "zhang@example.com")

	rec := do(t, h, "GET", "/api/conversations", token, nil)
	expectStatus(t, rec, http.StatusOK)
	views := decode[[]service.ConversationView](t, rec)
	if len(views) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(views))
	}
	for _, v := range views {
		if len(v.Participants) != 2 || v.LastMessage == nil {
			t.Fatalf("incomplete conversation %+v", v)
		}
	}
}

func TestNotificationsReadAll(t *testing.T) {
	h, _ := newTestHandler(t)
	token := login(t, h, "test@example.com")

	rec := do(t, h, "GET", "/api/notifications/unread-count", token, nil)
	if got := decode[map[string]int](t, rec)["count"]; got != 3 {
		t.Fatalf("expected 3 unread, got %d", got)
	}

	rec = do(t, h, "PUT", "/api/notifications/notif1/read", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if n := decode[map[string]int](t, rec)["updated"]; n != 1 {
		t.Fatalf("expected 1 updated, got %d", n)
	}
	expectStatus(t, do(t, h, "PUT", "/api/notifications/notif404/read", token, nil), http.StatusNotFound)

	rec = do(t, h, "PUT", "/api/notifications/read-all", token, nil)
	if n := decode[map[string]int](t, rec)["updated"]; n != 2 {
		t.Fatalf("expected 2 updated, got %d", n)
	}
	rec = do(t, h, "GET", "/api/notifications/unread-count", token, nil)
	if got := decode[map[string]int](t, rec)["count"]; got != 0 {
		t.Fatalf("expected 0 unread, got %d", got)
	}
}

func TestMarkReadOnlyOwnRecords(t *testing.T) {
	h, _ := newTestHandler(t)
	owner := login(t, h, "test@example.com")
	other := login(t, h, "zhang@example.com")
	recipient := login(t, h, "zhao@example.com")

	expectStatus(t, do(t, h, "PUT", "/api/notifications/notif1/read", other, nil), http.StatusNotFound)
	rec := do(t, h, "GET", "/api/notifications/unread-count", owner, nil)
	if got := decode[map[string]int](t, rec)["count"]; got != 3 {
		t.Fatalf("expected user1 to keep 3 unread, got %d", got)
	}

	expectStatus(t, do(t, h, "PUT", "/api/messages/msg5/read", other, nil), http.StatusForbidden)
	expectStatus(t, do(t, h, "PUT", "/api/messages/msg6/read", recipient, nil), http.StatusForbidden)
	expectStatus(t, do(t, h, "PUT", "/api/messages/msg99/read", recipient, nil), http.StatusNotFound)

	before := decode[map[string]int](t, do(t, h, "GET", "/api/messages/unread-count", recipient, nil))["count"]
	rec = do(t, h, "PUT", "/api/messages/msg5/read", recipient, nil)
	expectStatus(t, rec, http.StatusOK)
	if n := decode[map[string]int](t, rec)["updated"]; n != 1 {
		t.Fatalf("expected 1 updated, got %d", n)
	}
	after := decode[map[string]int](t, do(t, h, "GET", "/api/messages/unread-count", recipient, nil))["count"]
	if after != before-1 {
		t.Fatalf("expected %d unread, got %d", before-1, after)
	}
}

func TestErrorResponsesAreJSON(t *testing.T) {
	h, _ := newTestHandler(t)
	token := login(t, h, "test@example.com")

	rec := do(t, h, "GET", "/api/users/user404", token, nil)
	expectStatus(t, rec, http.StatusNotFound)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if decode[map[string]string](t, rec)["error"] == "" {
		t.Fatal("expected an error message")
	}
}
