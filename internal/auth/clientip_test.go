package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestClientIP(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "x-real-ip wins",
			headers: map[string]string{"X-Real-IP": "203.0.113.7", "X-Forwarded-For": "198.51.100.4"},
			remote:  "10.0.0.1:4321",
			want:    "203.0.113.7",
		},
		{
			name:    "first forwarded hop",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.4, 10.0.0.2, 10.0.0.3"},
			remote:  "10.0.0.1:4321",
			want:    "198.51.100.4",
		},
		{
			name:    "forwarded hop is trimmed",
			headers: map[string]string{"X-Forwarded-For": "  198.51.100.4 , 10.0.0.2"},
			remote:  "10.0.0.1:4321",
			want:    "198.51.100.4",
		},
		{
			name:    "no proxy headers falls back to remote addr",
			headers: nil,
			remote:  "192.0.2.10:5555",
			want:    "192.0.2.10",
		},
		{
			name:    "blank headers fall back to remote addr",
			headers: map[string]string{"X-Real-IP": "  ", "X-Forwarded-For": " , "},
			remote:  "192.0.2.10:5555",
			want:    "192.0.2.10",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}

			if got := clientIP(c); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
