package google

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuthInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare code", "  4/abc  ", "4/abc", false},
		{"redirect url", "http://127.0.0.1:5555/?state=s&code=4%2Fxyz&scope=x", "4/xyz", false},
		{"url without code", "http://127.0.0.1:5555/?state=s", "", true},
		{"empty", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAuthInput(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
		wantErr    bool
	}{
		{"success", "?state=s1&code=abc", http.StatusOK, "abc", false},
		{"state mismatch", "?state=other&code=abc", http.StatusBadRequest, "", false},
		{"missing code", "?state=s1", http.StatusBadRequest, "", false},
		{"denied", "?error=access_denied", http.StatusBadRequest, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resCh := make(chan callbackResult, 1)
			rec := httptest.NewRecorder()
			callbackHandler("s1", resCh).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			select {
			case r := <-resCh:
				assert.Equal(t, tt.wantCode, r.code)
				assert.Equal(t, tt.wantErr, r.err != nil)
			default:
				assert.Empty(t, tt.wantCode, "expected a delivered code")
				assert.False(t, tt.wantErr, "expected a delivered error")
			}
		})
	}
}

func TestRandomState(t *testing.T) {
	a, err := randomState()
	require.NoError(t, err)
	b, err := randomState()
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
