package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectOverwritesClientValues(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set(HeaderUserID, "999")
	h.Add(HeaderRole, "admin")
	h.Add(HeaderRole, "root")

	Inject(h, Identity{UserID: 7, Email: "a@x.com", Role: "manager", Name: "Ana"})

	assert.Equal(t, []string{"7"}, h.Values(HeaderUserID))
	assert.Equal(t, []string{"manager"}, h.Values(HeaderRole))
	assert.Equal(t, "a@x.com", h.Get(HeaderEmail))
	assert.Equal(t, "Ana", h.Get(HeaderName))
}

func TestFromHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		want    Identity
		wantErr bool
	}{
		{
			name:    "complete",
			headers: map[string]string{HeaderUserID: "7", HeaderEmail: "a@x.com", HeaderRole: "manager", HeaderName: "Ana"},
			want:    Identity{UserID: 7, Email: "a@x.com", Role: "manager", Name: "Ana"},
		},
		{
			name:    "role and name optional",
			headers: map[string]string{HeaderUserID: "7", HeaderEmail: "a@x.com"},
			want:    Identity{UserID: 7, Email: "a@x.com"},
		},
		{name: "missing id", headers: map[string]string{HeaderEmail: "a@x.com"}, wantErr: true},
		{name: "missing email", headers: map[string]string{HeaderUserID: "7"}, wantErr: true},
		{name: "non numeric id", headers: map[string]string{HeaderUserID: "seven", HeaderEmail: "a@x.com"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}

			got, err := FromHeaders(h)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMissingIdentity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStrip(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	Inject(h, Identity{UserID: 1, Email: "a@x.com", Role: "admin", Name: "A"})
	Strip(h)

	_, err := FromHeaders(h)
	require.ErrorIs(t, err, ErrMissingIdentity)
	assert.Empty(t, h.Get(HeaderRole))
}

func TestRequire(t *testing.T) {
	t.Parallel()

	handler := Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(id.Email))
	}))

	t.Run("rejects anonymous requests", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Unauthorized", body["error"])
	})

	t.Run("passes identity downstream", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		Inject(req.Header, Identity{UserID: 3, Email: "m@x.com"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "m@x.com", rec.Body.String())
	})
}
