package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/learnportal/internal/client/models"
	"github.com/dmitrijs2005/learnportal/internal/logging"
)

type fakeSession struct {
	mu        sync.Mutex
	token     string
	teardowns int
	rejected  []string
}

func (s *fakeSession) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *fakeSession) Unauthorized(ctx context.Context, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected = append(s.rejected, token)
	if token == s.token {
		s.token = ""
		s.teardowns++
	}
}

func (s *fakeSession) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teardowns
}

func newTestClient(t *testing.T, h http.Handler) (*HTTPClient, *fakeSession) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(srv.URL, logging.Discard(), WithTimeout(2*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	sess := &fakeSession{}
	c.AttachSession(sess)
	return c, sess
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.com", logging.Discard())
	require.Error(t, err)

	_, err = NewHTTPClient("://nope", logging.Discard())
	require.Error(t, err)
}

func TestLoginWithPassword_SendsFormAndReturnsToken(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "secret", r.PostForm.Get("password"))

		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok-1", "token_type": "bearer"})
	}))

	token, err := c.LoginWithPassword(context.Background(), "alice", []byte("secret"))
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
}

func TestLoginWithPassword_EmptyTokenIsMalformed(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token_type": "bearer"})
	}))

	_, err := c.LoginWithPassword(context.Background(), "alice", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, "login failed", Message(err))
}

func TestLoginWithWallet_SendsJSON(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/wallet/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "0xabc", body["address"])
		assert.Equal(t, "0xsig", body["signature"])

		writeJSON(w, http.StatusOK, map[string]string{"access_token": "wallet-tok"})
	}))

	token, err := c.LoginWithWallet(context.Background(), "0xabc", "0xsig")
	require.NoError(t, err)
	assert.Equal(t, "wallet-tok", token)
}

func TestRegister(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/register", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "bob", body["username"])
		assert.Equal(t, "bob@example.com", body["email"])
		assert.Equal(t, "pw", body["password"])

		writeJSON(w, http.StatusOK, map[string]string{"message": "User registered", "username": "bob"})
	}))

	got, err := c.Register(context.Background(), "bob", "bob@example.com", []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, models.RegisteredUser{Username: "bob", Message: "User registered"}, got)
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		sentinel error
	}{
		{"detail string", http.StatusBadRequest, `{"detail":"Username already taken"}`, "Username already taken", ErrValidation},
		{"detail array", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email"}]}`, "value is not a valid email", ErrValidation},
		{"empty detail", http.StatusBadRequest, `{"detail":""}`, "registration failed", ErrValidation},
		{"no body", http.StatusInternalServerError, ``, "registration failed", ErrServer},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, "registration failed", ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			_, err := c.Register(context.Background(), "bob", "b@x.io", []byte("pw"))
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.ErrorIs(t, err, tt.sentinel)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, "register", apiErr.Op)
		})
	}
}

func TestTransportErrorUsesErrorText(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, logging.Discard(), WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = c.GetTools(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.NotEqual(t, "failed to load tools", Message(err))
	assert.NotEmpty(t, Message(err))
}

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	c, sess := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "username": "alice"})
	}))
	sess.token = "tok-9"

	profile, err := c.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-9", gotAuth)
	assert.Equal(t, models.ID("7"), profile.ID)
	assert.Equal(t, "alice", profile.Username)
}

func TestNoTokenNoAuthorizationHeader(t *testing.T) {
	var hadAuth bool
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		writeJSON(w, http.StatusOK, []any{})
	}))

	_, err := c.GetLearningTopics(context.Background())
	require.NoError(t, err)
	assert.False(t, hadAuth)
}

func TestUnauthorizedTearsDownBeforeReturning(t *testing.T) {
	c, sess := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
	}))
	sess.token = "expired"

	_, err := c.GetLearningTopics(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Could not validate credentials", Message(err))
	assert.Equal(t, 1, sess.count())
	assert.Empty(t, sess.Token())
	assert.Equal(t, []string{"expired"}, sess.rejected)
}

func TestUnauthorizedReportsTheTokenTheRequestCarried(t *testing.T) {
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	c, sess := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-old", r.Header.Get("Authorization"))
		arrived <- struct{}{}
		<-release
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
	}))
	sess.mu.Lock()
	sess.token = "tok-old"
	sess.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		_, err := c.GetLearningTopics(context.Background())
		errCh <- err
	}()

	// The session moves on while the request is in flight.
	<-arrived
	sess.mu.Lock()
	sess.token = "tok-new"
	sess.mu.Unlock()
	close(release)

	require.ErrorIs(t, <-errCh, ErrUnauthorized)
	assert.Equal(t, []string{"tok-old"}, sess.rejected)
	assert.Equal(t, "tok-new", sess.Token())
	assert.Equal(t, 0, sess.count())
}

func TestUnauthorizedWithoutDetailUsesFallback(t *testing.T) {
	c, sess := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	sess.token = "expired"

	_, err := c.GetTools(context.Background())
	require.Error(t, err)
	assert.Equal(t, "failed to load tools", Message(err))
	assert.Equal(t, 1, sess.count())
}

func TestGetCurrentUser_Malformed(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "x", "email": "a@b.c"})
	}))

	_, err := c.GetCurrentUser(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, "failed to load user profile", Message(err))
}

func TestGetLearningTopics(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `null`)
		}))
		topics, err := c.GetLearningTopics(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, topics)
		assert.Empty(t, topics)
	})

	t.Run("decodes topics", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[{"id":1,"title":"Go","description":"basics","progress":40}]`)
		}))
		topics, err := c.GetLearningTopics(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []models.Topic{{ID: 1, Title: "Go", Description: "basics", Progress: 40}}, topics)
	})

	t.Run("progress out of range", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[{"id":1,"title":"Go","progress":140}]`)
		}))
		_, err := c.GetLearningTopics(context.Background())
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("not a list", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"items":[]}`)
		}))
		_, err := c.GetLearningTopics(context.Background())
		assert.ErrorIs(t, err, ErrMalformedResponse)
		assert.Equal(t, "failed to load learning topics", Message(err))
	})
}

func TestGetTools_UnknownStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"name":"Linter","status":"retired"}]`)
	}))
	_, err := c.GetTools(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestUpdateProfile(t *testing.T) {
	c, sess := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/users/me", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "new@example.com", body["email"])

		writeJSON(w, http.StatusOK, map[string]string{"message": "Profile updated"})
	}))
	sess.token = "tok"

	email := "new@example.com"
	msg, err := c.UpdateProfile(context.Background(), models.ProfileUpdate{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Profile updated", msg)
}

func TestPing(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	require.NoError(t, c.Ping(context.Background()))
}

func TestNoSessionAttached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, logging.Discard())
	require.NoError(t, err)

	_, err = c.GetTools(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}
