package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return Parse(c)
}

func TestParseDefaults(t *testing.T) {
	p := paramsFor(t, "")
	if p.Page != DefaultPage || p.Limit != DefaultLimit || p.Offset != 0 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestParseClampsLimit(t *testing.T) {
	p := paramsFor(t, "page=3&limit=1000")
	if p.Limit != MaxLimit {
		t.Errorf("limit = %d, want %d", p.Limit, MaxLimit)
	}
	if p.Offset != (3-1)*MaxLimit {
		t.Errorf("offset = %d", p.Offset)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	p := paramsFor(t, "page=-1&limit=abc")
	if p.Page != DefaultPage || p.Limit != DefaultLimit {
		t.Fatalf("garbage input must fall back to defaults: %+v", p)
	}
}
