package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"messenger-lab/auth"
	"messenger-lab/gateway"
	"messenger-lab/observability"
	"messenger-lab/presence"
	"messenger-lab/repositories"
	"messenger-lab/services"
)

type testStack struct {
	handler http.Handler
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, log)
	conversations := repositories.NewConversationRepository(db, log)
	registry := presence.NewRegistry(log)
	tokens := auth.NewTokenManager("test_secret_for_tokens", time.Hour)

	authService := services.NewAuthService(users, tokens)
	messageService := services.NewMessageService(log, messages, users, conversations, registry)
	monitor := observability.NewMonitor()
	ws := gateway.NewGateway(log, tokens, users, messageService, registry, monitor, "*", 8)

	return &testStack{handler: NewRouter(Dependencies{
		Log:          log,
		Tokens:       tokens,
		AuthService:  authService,
		Messages:     messageService,
		Gateway:      ws,
		Monitor:      monitor,
		ClientOrigin: "*",
	})}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testStack) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func (s *testStack) register(t *testing.T, username string) (token string, userID string) {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "C0mplex!Passw0rd",
	})
	require.Equal(t, http.StatusCreated, code)

	var payload struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	return payload.Token, payload.User.ID
}

func TestAuthEndpoints(t *testing.T) {
	stack := newTestStack(t)

	t.Run("register then login then me", func(t *testing.T) {
		req := require.New(t)
		token, userID := stack.register(t, "alice")
		req.NotEmpty(token)
		req.NotEmpty(userID)

		code, env := stack.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "alice@example.com",
			"password": "C0mplex!Passw0rd",
		})
		req.Equal(http.StatusOK, code)
		req.True(env.Success)

		code, env = stack.do(t, http.MethodGet, "/api/auth/me", token, nil)
		req.Equal(http.StatusOK, code)
		req.True(env.Success)
	})

	t.Run("duplicate registration is a 400", func(t *testing.T) {
		req := require.New(t)
		code, env := stack.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
			"username": "alice",
			"email":    "alice@example.com",
			"password": "C0mplex!Passw0rd",
		})
		req.Equal(http.StatusBadRequest, code)
		req.False(env.Success)
	})

	t.Run("wrong credentials are a 401", func(t *testing.T) {
		req := require.New(t)
		code, _ := stack.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "alice@example.com",
			"password": "WrongPassword1!",
		})
		req.Equal(http.StatusUnauthorized, code)
	})

	t.Run("protected routes require a token", func(t *testing.T) {
		req := require.New(t)
		code, _ := stack.do(t, http.MethodGet, "/api/auth/me", "", nil)
		req.Equal(http.StatusUnauthorized, code)
		code, _ = stack.do(t, http.MethodGet, "/api/auth/me", "garbage", nil)
		req.Equal(http.StatusUnauthorized, code)
	})
}

func TestMessageEndpoints(t *testing.T) {
	stack := newTestStack(t)
	aliceToken, aliceID := stack.register(t, "alice")
	bobToken, bobID := stack.register(t, "bob")

	var messageID string

	t.Run("send persists and returns the message", func(t *testing.T) {
		req := require.New(t)
		code, env := stack.do(t, http.MethodPost, "/api/messages/send", aliceToken, map[string]string{
			"receiverId": bobID,
			"content":    "hi bob",
		})
		req.Equal(http.StatusCreated, code)

		var payload struct {
			Message struct {
				ID      string `json:"id"`
				Content string `json:"content"`
				IsRead  bool   `json:"isRead"`
			} `json:"message"`
		}
		req.NoError(json.Unmarshal(env.Data, &payload))
		req.Equal("hi bob", payload.Message.Content)
		req.False(payload.Message.IsRead)
		messageID = payload.Message.ID
	})

	t.Run("send to unknown receiver is a 404", func(t *testing.T) {
		req := require.New(t)
		code, _ := stack.do(t, http.MethodPost, "/api/messages/send", aliceToken, map[string]string{
			"receiverId": "ghost",
			"content":    "anyone there?",
		})
		req.Equal(http.StatusNotFound, code)
	})

	t.Run("send without content is a 400", func(t *testing.T) {
		req := require.New(t)
		code, _ := stack.do(t, http.MethodPost, "/api/messages/send", aliceToken, map[string]string{
			"receiverId": bobID,
		})
		req.Equal(http.StatusBadRequest, code)
	})

	t.Run("conversations show the unread message for bob", func(t *testing.T) {
		req := require.New(t)
		code, env := stack.do(t, http.MethodGet, "/api/messages/conversations", bobToken, nil)
		req.Equal(http.StatusOK, code)

		var payload struct {
			Conversations []struct {
				Username    string `json:"username"`
				LastMessage string `json:"lastMessage"`
				UnreadCount int    `json:"unreadCount"`
			} `json:"conversations"`
		}
		req.NoError(json.Unmarshal(env.Data, &payload))
		req.Len(payload.Conversations, 1)
		req.Equal("alice", payload.Conversations[0].Username)
		req.Equal("hi bob", payload.Conversations[0].LastMessage)
		req.Equal(1, payload.Conversations[0].UnreadCount)
	})

	t.Run("history fetch acknowledges", func(t *testing.T) {
		req := require.New(t)
		code, env := stack.do(t, http.MethodGet, "/api/messages/"+aliceID, bobToken, nil)
		req.Equal(http.StatusOK, code)

		var payload struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
			Pagination struct {
				Page  int `json:"page"`
				Limit int `json:"limit"`
			} `json:"pagination"`
		}
		req.NoError(json.Unmarshal(env.Data, &payload))
		req.Len(payload.Messages, 1)
		req.Equal(1, payload.Pagination.Page)
		req.Equal(50, payload.Pagination.Limit)

		// Mark-read right after finds nothing left: fetching already
		// acknowledged the conversation.
		code, env = stack.do(t, http.MethodPut, "/api/messages/mark-read/"+aliceID, bobToken, nil)
		req.Equal(http.StatusOK, code)
		var marked struct {
			UpdatedCount int `json:"updatedCount"`
		}
		req.NoError(json.Unmarshal(env.Data, &marked))
		req.Equal(0, marked.UpdatedCount)
	})

	t.Run("history with an unknown peer is a 404", func(t *testing.T) {
		req := require.New(t)
		code, _ := stack.do(t, http.MethodGet, "/api/messages/ghost", bobToken, nil)
		req.Equal(http.StatusNotFound, code)
	})

	t.Run("delete is owner-only", func(t *testing.T) {
		req := require.New(t)
		code, _ := stack.do(t, http.MethodDelete, "/api/messages/"+messageID, bobToken, nil)
		req.Equal(http.StatusNotFound, code)

		code, _ = stack.do(t, http.MethodDelete, "/api/messages/"+messageID, aliceToken, nil)
		req.Equal(http.StatusOK, code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)
	code, env := stack.do(t, http.MethodGet, "/api/health", "", nil)
	req.Equal(http.StatusOK, code)
	req.True(env.Success)
	req.Equal("server is running", env.Message)
	req.NotEmpty(env.Data)
}
