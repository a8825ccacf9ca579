package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestNewDefaultsToInfo(t *testing.T) {
	log := New("nonsense", "json", &bytes.Buffer{})
	if log.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %v, want info", log.GetLevel())
	}
	if New("debug", "json", &bytes.Buffer{}).GetLevel() != zerolog.DebugLevel {
		t.Fatalf("debug level not honoured")
	}
}

func TestGinLoggerRecordsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(GinLogger(New("info", "json", &buf)))
	r.GET("/things/:id", func(c *gin.Context) {
		c.Set(UserIDKey, "u1")
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/42", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line not JSON: %v (%q)", err, buf.String())
	}
	if line["path"] != "/things/:id" || line["level"] != "warn" || line["user_id"] != "u1" {
		t.Fatalf("unexpected log line: %v", line)
	}
	if status, _ := line["status"].(float64); int(status) != http.StatusNotFound {
		t.Fatalf("status = %v", line["status"])
	}
}
