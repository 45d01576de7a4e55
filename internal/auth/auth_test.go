package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var adminCreds = Credentials{Username: "admin", Password: "123456"}

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		user    string
		pass    string
		wantErr bool
	}{
		{"valid", "admin", "123456", false},
		{"wrong password", "admin", "12345", true},
		{"wrong user", "root", "123456", true},
		{"empty", "", "", true},
		{"case sensitive", "Admin", "123456", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			m := NewManager(store, adminCreds, 0)

			s, err := m.Login(context.Background(), tt.user, tt.pass)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCredentials)
				assert.Nil(t, s)
				assert.Equal(t, 0, store.Len(), "no session on failed login")
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, s.ID)
			assert.Equal(t, 1, store.Len())
		})
	}
}

func TestLogin_EmptyConfiguredUserRejectsAll(t *testing.T) {
	m := NewManager(NewMemoryStore(), Credentials{}, 0)
	_, err := m.Login(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLookup_NoExpiryByDefault(t *testing.T) {
	m := NewManager(NewMemoryStore(), adminCreds, 0)
	base := time.Now()
	m.now = func() time.Time { return base }
	s, err := m.Login(context.Background(), "admin", "123456")
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(90 * 24 * time.Hour) }
	got, err := m.Lookup(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}

func TestLookup_IdleTimeout(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, adminCreds, 30*time.Minute)
	base := time.Now()
	m.now = func() time.Time { return base }
	s, err := m.Login(context.Background(), "admin", "123456")
	require.NoError(t, err)

	// Activity inside the window keeps the session alive.
	m.now = func() time.Time { return base.Add(20 * time.Minute) }
	_, err = m.Lookup(context.Background(), s.ID)
	require.NoError(t, err)
	m.now = func() time.Time { return base.Add(45 * time.Minute) }
	_, err = m.Lookup(context.Background(), s.ID)
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(80 * time.Minute) }
	_, err = m.Lookup(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 0, store.Len())
}

func TestLogout(t *testing.T) {
	m := NewManager(NewMemoryStore(), adminCreds, 0)
	s, err := m.Login(context.Background(), "admin", "123456")
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background(), s.ID))
	_, err = m.Lookup(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.NoError(t, m.Logout(context.Background(), ""))
}

func TestRequire(t *testing.T) {
	m := NewManager(NewMemoryStore(), adminCreds, 0)
	s, err := m.Login(context.Background(), "admin", "123456")
	require.NoError(t, err)

	denied := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
	protected := m.Require(denied)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := FromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(got.Username))
	}))

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/properties", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("forged cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard/properties", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "true"})
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})

	t.Run("valid session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard/properties", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: s.ID})
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "admin", rec.Body.String())
	})
}

func TestCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookie(rec, httptest.NewRequest(http.MethodPost, "/login", nil), &Session{ID: "abc"})
	c := rec.Result().Cookies()
	require.Len(t, c, 1)
	assert.Equal(t, "abc", c[0].Value)
	assert.True(t, c[0].HttpOnly)

	rec = httptest.NewRecorder()
	ClearCookie(rec)
	c = rec.Result().Cookies()
	require.Len(t, c, 1)
	assert.Equal(t, -1, c[0].MaxAge)
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	m := NewManager(store, adminCreds, time.Minute)
	s, err := m.Login(ctx, "admin", "123456")
	require.NoError(t, err)
	assert.True(t, mr.Exists(redisKeyPrefix+s.ID))
	assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+s.ID))

	got, err := m.Lookup(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Username)
	assert.Equal(t, s.CreatedAt.Unix(), got.CreatedAt.Unix())

	require.NoError(t, m.Logout(ctx, s.ID))
	_, err = store.Load(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.False(t, mr.Exists(redisKeyPrefix+s.ID))
}

func TestRedisStore_IdleKeyExpires(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	m := NewManager(store, adminCreds, time.Minute)
	s, err := m.Login(ctx, "admin", "123456")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = m.Lookup(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRedisStore_NoTimeoutKeepsKey(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	m := NewManager(store, adminCreds, 0)
	s, err := m.Login(ctx, "admin", "123456")
	require.NoError(t, err)
	assert.Zero(t, mr.TTL(redisKeyPrefix+s.ID))

	mr.FastForward(24 * time.Hour)
	_, err = m.Lookup(ctx, s.ID)
	assert.NoError(t, err)
}

func TestRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-url")
	assert.Error(t, err)
}
