package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyFor(t *testing.T, path string, uid uint64, header, body string) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	c.Request.RemoteAddr = "10.0.0.1:1234"
	if header != "" {
		c.Request.Header.Set(idempotenceHeader, header)
	}
	if uid != 0 {
		c.Set(ContextKeyUserID, uid)
	}
	key, err := resolveIdempotenceKey(c)
	require.NoError(t, err)
	return key
}

func TestIdempotenceKeyScopedByCallerAndPath(t *testing.T) {
	base := keyFor(t, "/api/v1/polls/1/votes", 1, "abc", "")

	assert.Equal(t, base, keyFor(t, "/api/v1/polls/1/votes", 1, "abc", ""))
	assert.NotEqual(t, base, keyFor(t, "/api/v1/polls/1/votes", 2, "abc", ""), "another user reusing the header")
	assert.NotEqual(t, base, keyFor(t, "/api/v1/polls/2/votes", 1, "abc", ""), "same header on another poll")
	assert.NotEqual(t, base, keyFor(t, "/api/v1/polls/1/votes", 1, "xyz", ""))
	assert.NotContains(t, base, "abc")
}

func TestIdempotenceKeyFromBody(t *testing.T) {
	yes := keyFor(t, "/api/v1/polls/1/votes", 1, "", `{"choice":"YES"}`)

	assert.Equal(t, yes, keyFor(t, "/api/v1/polls/1/votes", 1, "", `{"choice":"YES"}`))
	assert.NotEqual(t, yes, keyFor(t, "/api/v1/polls/1/votes", 1, "", `{"choice":"NO"}`))
	assert.NotEqual(t, yes, keyFor(t, "/api/v1/polls/1/votes", 1, "yes", ""))
}

func TestReplayAnswersAlreadyVoted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/votes", func(c *gin.Context) { abortReplay(c) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/votes", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ALREADY_VOTED", body["error"])
}
