package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/auth"
	busadapter "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/bus/adapter"
	cacheadapter "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/cache/adapter"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/realtime"
	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/usecase"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/adapter"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/presence"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const testSecret = "test-secret"

type testServer struct {
	engine  *gin.Engine
	tracker *presence.InProcess
}

func newTestServer(t *testing.T, userIDs ...string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()

	repo := adapter.NewMemoryChatRepository()
	for i, id := range userIDs {
		u := chat.User{ID: id, Email: id + "@example.com", Name: id, CreatedAt: time.Unix(int64(i), 0)}
		if err := repo.Upsert(context.Background(), u); err != nil {
			t.Fatal(err)
		}
	}

	bus := busadapter.NewMemoryBus(log)
	t.Cleanup(func() { _ = bus.Close() })
	events := usecase.NewEmitter(bus, log)
	users := usecase.NewUserDirectory(repo, cacheadapter.NewMemoryCache(), time.Minute, log)
	tracker := presence.NewInProcess(events, usecase.NewListConversationsUseCase(repo, nil, 0), presence.Options{}, log)
	rt := realtime.NewRouter(bus, log)
	t.Cleanup(rt.Close)

	s := Services{
		Verifier: auth.NewVerifier(testSecret, ""),
		Realtime: rt,
		Presence: tracker,
		Log:      log,

		FindOrCreateDirect: usecase.NewFindOrCreateDirectUseCase(repo, users, events, tracker, 0),
		CreateGroup:        usecase.NewCreateGroupUseCase(repo, users, events, tracker),
		ListConversations:  usecase.NewListConversationsUseCase(repo, tracker, 0),
		GetConversation:    usecase.NewGetConversationUseCase(repo, tracker, 0),
		DeleteConversation: usecase.NewDeleteConversationUseCase(repo, events, tracker, 0),
		SendMessage:        usecase.NewSendMessageUseCase(repo, events, 0),
		ListMessages:       usecase.NewListMessagesUseCase(repo, 2, 10, 0),
		MarkSeen:           usecase.NewMarkSeenUseCase(repo, events, 0),
		ListUsers:          usecase.NewListUsersUseCase(users, tracker, 0),
		JoinChannel:        usecase.NewJoinChannelUseCase(repo, 0),
	}
	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), s)
	return &testServer{engine: r, tracker: tracker}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	claims := auth.Claims{
		Email: userID + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func (s *testServer) do(t *testing.T, userID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return out
}

func expect(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d: %s", w.Code, status, w.Body.String())
	}
}

func TestRequiresToken(t *testing.T) {
	s := newTestServer(t, "alice")
	expect(t, s.do(t, "", http.MethodGet, "/conversations", nil), http.StatusUnauthorized)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	expect(t, w, http.StatusUnauthorized)
}

func TestConversationLifecycle(t *testing.T) {
	s := newTestServer(t, "alice", "bob", "carol")

	w := s.do(t, "alice", http.MethodPost, "/conversations", gin.H{"userId": "bob"})
	expect(t, w, http.StatusCreated)
	conv := decode[chat.Conversation](t, w)
	if len(conv.Members) != 2 {
		t.Fatalf("members = %+v", conv.Members)
	}

	w = s.do(t, "bob", http.MethodPost, "/conversations", gin.H{"userId": "alice"})
	expect(t, w, http.StatusOK)
	if again := decode[chat.Conversation](t, w); again.ID != conv.ID {
		t.Fatalf("direct conversation duplicated: %s vs %s", again.ID, conv.ID)
	}

	expect(t, s.do(t, "alice", http.MethodPost, "/conversations", gin.H{"userId": "ghost"}), http.StatusBadRequest)
	expect(t, s.do(t, "alice", http.MethodPost, "/conversations", gin.H{"isGroup": true, "members": []string{"bob"}}), http.StatusBadRequest)

	w = s.do(t, "alice", http.MethodPost, "/conversations", gin.H{"isGroup": true, "name": "trio", "members": []string{"bob", "carol"}})
	expect(t, w, http.StatusCreated)
	group := decode[chat.Conversation](t, w)
	if !group.IsGroup || len(group.Members) != 3 {
		t.Fatalf("group = %+v", group)
	}

	w = s.do(t, "bob", http.MethodGet, "/conversations", nil)
	expect(t, w, http.StatusOK)
	if list := decode[[]chat.Conversation](t, w); len(list) != 2 {
		t.Fatalf("bob sees %d conversations, want 2", len(list))
	}

	expect(t, s.do(t, "carol", http.MethodGet, "/conversations/"+conv.ID, nil), http.StatusNotFound)
	expect(t, s.do(t, "bob", http.MethodGet, "/conversations/"+conv.ID, nil), http.StatusOK)

	expect(t, s.do(t, "carol", http.MethodDelete, "/conversations/"+conv.ID, nil), http.StatusForbidden)
	w = s.do(t, "bob", http.MethodDelete, "/conversations/"+conv.ID, nil)
	expect(t, w, http.StatusOK)
	if got := decode[map[string]string](t, w); got["id"] != conv.ID {
		t.Fatalf("delete response = %v", got)
	}
	expect(t, s.do(t, "alice", http.MethodGet, "/conversations/"+conv.ID, nil), http.StatusNotFound)
}

func TestMessagesOverHTTP(t *testing.T) {
	s := newTestServer(t, "alice", "bob", "carol")
	conv := decode[chat.Conversation](t, s.do(t, "alice", http.MethodPost, "/conversations", gin.H{"userId": "bob"}))
	path := "/conversations/" + conv.ID

	expect(t, s.do(t, "alice", http.MethodPost, path+"/messages", gin.H{"body": "   "}), http.StatusBadRequest)
	expect(t, s.do(t, "carol", http.MethodPost, path+"/messages", gin.H{"body": "hi"}), http.StatusForbidden)

	var first, last chat.Message
	for i, body := range []string{"one", "two", "three"} {
		w := s.do(t, "alice", http.MethodPost, path+"/messages", gin.H{"body": body})
		expect(t, w, http.StatusCreated)
		last = decode[chat.Message](t, w)
		if i == 0 {
			first = last
		}
	}
	if last.Sender == nil || last.Sender.ID != "alice" || !last.Seen.Has("alice") {
		t.Fatalf("sent message = %+v", last)
	}

	expect(t, s.do(t, "bob", http.MethodGet, path+"/messages?limit=abc", nil), http.StatusBadRequest)
	expect(t, s.do(t, "bob", http.MethodGet, path+"/messages?cursor=garbage", nil), http.StatusBadRequest)
	expect(t, s.do(t, "carol", http.MethodGet, path+"/messages", nil), http.StatusForbidden)

	w := s.do(t, "bob", http.MethodGet, path+"/messages", nil)
	expect(t, w, http.StatusOK)
	page := decode[usecase.MessagePage](t, w)
	if len(page.Messages) != 2 || page.Messages[0].ID != last.ID || page.NextCursor == "" {
		t.Fatalf("first page = %+v", page)
	}
	w = s.do(t, "bob", http.MethodGet, path+"/messages?cursor="+page.NextCursor, nil)
	expect(t, w, http.StatusOK)
	if rest := decode[usecase.MessagePage](t, w); len(rest.Messages) != 1 || rest.NextCursor != "" {
		t.Fatalf("second page = %+v", rest)
	}

	// A chunked body still names its target message.
	req := httptest.NewRequest(http.MethodPost, "/api/v1"+path+"/seen", strings.NewReader(`{"messageId":"`+first.ID+`"}`))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token(t, "bob"))
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	expect(t, w, http.StatusOK)
	if seen := decode[chat.Message](t, w); seen.ID != first.ID || !seen.Seen.Has("bob") {
		t.Fatalf("chunked seen result = %+v", seen)
	}

	w = s.do(t, "bob", http.MethodPost, path+"/seen", gin.H{})
	expect(t, w, http.StatusOK)
	if seen := decode[chat.Message](t, w); seen.ID != last.ID || !seen.Seen.Has("bob") {
		t.Fatalf("seen result = %+v", seen)
	}
}

func TestUsersAndPresence(t *testing.T) {
	s := newTestServer(t, "alice", "bob", "carol")
	if _, _, err := s.tracker.Connect(context.Background(), "bob"); err != nil {
		t.Fatal(err)
	}

	w := s.do(t, "alice", http.MethodGet, "/users", nil)
	expect(t, w, http.StatusOK)
	users := decode[[]chat.User](t, w)
	if len(users) != 2 {
		t.Fatalf("users = %+v", users)
	}
	for _, u := range users {
		if u.ID == "alice" {
			t.Fatal("caller listed in roster")
		}
		if u.Online != (u.ID == "bob") {
			t.Fatalf("online flag wrong for %s", u.ID)
		}
	}

	w = s.do(t, "alice", http.MethodGet, "/presence", nil)
	expect(t, w, http.StatusOK)
	got := decode[struct {
		Room    string   `json:"room"`
		Members []string `json:"members"`
	}](t, w)
	if got.Room != presence.GlobalRoom || len(got.Members) != 1 || got.Members[0] != "bob" {
		t.Fatalf("presence = %+v", got)
	}
}

func dialSocket(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + token(t, userID)
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

// next reads frames until match accepts one.
func next(t *testing.T, ws *websocket.Conn, match func(realtime.Frame) bool) realtime.Frame {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = ws.SetReadDeadline(deadline)
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var f realtime.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
		if match(f) {
			return f
		}
	}
}

func TestSocketReceivesConversationEvents(t *testing.T) {
	s := newTestServer(t, "alice", "bob", "carol")
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	conv := decode[chat.Conversation](t, s.do(t, "alice", http.MethodPost, "/conversations", gin.H{"userId": "bob"}))
	channel := chat.ConversationChannel(conv.ID)

	bob := dialSocket(t, srv, "bob")
	hello := next(t, bob, func(f realtime.Frame) bool { return f.Type == realtime.FrameConnected })
	if hello.UserID != "bob" || hello.ConnectionID == "" {
		t.Fatalf("connected frame = %+v", hello)
	}
	next(t, bob, func(f realtime.Frame) bool {
		return f.Event == chat.EventPresenceSync && f.Channel == chat.PresenceChannel(presence.GlobalRoom)
	})

	if err := bob.WriteJSON(gin.H{"type": "subscribe", "channel": channel}); err != nil {
		t.Fatal(err)
	}
	next(t, bob, func(f realtime.Frame) bool { return f.Type == realtime.FrameSubscribed && f.Channel == channel })

	expect(t, s.do(t, "alice", http.MethodPost, "/conversations/"+conv.ID+"/messages", gin.H{"body": "ping"}), http.StatusCreated)
	// The two events travel on different channels, so their relative order
	// is not fixed. The personal channel was joined automatically.
	var ev realtime.Frame
	updated := false
	for ev.Event == "" || !updated {
		f := next(t, bob, func(f realtime.Frame) bool {
			return f.Event == chat.EventMessageNew || f.Event == chat.EventConversationUpdated
		})
		if f.Event == chat.EventConversationUpdated {
			if f.Channel != chat.UserChannel("bob") {
				t.Fatalf("conversation update on %s", f.Channel)
			}
			updated = true
			continue
		}
		ev = f
	}
	if ev.Channel != channel {
		t.Fatalf("message event on %s", ev.Channel)
	}
	var msg chat.Message
	if err := json.Unmarshal(ev.Payload, &msg); err != nil || msg.Body == nil || *msg.Body != "ping" {
		t.Fatalf("payload = %s (%v)", ev.Payload, err)
	}

	carol := dialSocket(t, srv, "carol")
	next(t, carol, func(f realtime.Frame) bool { return f.Type == realtime.FrameConnected })
	if err := carol.WriteJSON(gin.H{"type": "subscribe", "channel": channel}); err != nil {
		t.Fatal(err)
	}
	denied := next(t, carol, func(f realtime.Frame) bool { return f.Type == realtime.FrameError })
	if denied.Code != "forbidden" {
		t.Fatalf("error frame = %+v", denied)
	}
}
