package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/votehub/core/internal/pkg/apperr"
	"github.com/votehub/core/internal/pkg/response"
)

const (
	idempotenceHeader = "x-idempotence"
	idempotenceTTL    = 60 * time.Second
)

// Idempotence answers a replay of a ballot that already succeeded within the
// TTL with ALREADY_VOTED. Vote uniqueness is still enforced by the store.
func Idempotence(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key, err := resolveIdempotenceKey(c)
		if err != nil || key == "" {
			c.Next()
			return
		}

		redisKey := fmt.Sprintf("votehub:idempotence:%s", key)
		ctx := c.Request.Context()

		val, err := rdb.Get(ctx, redisKey).Result()
		if err == nil {
			if val == "1" {
				abortReplay(c)
				return
			}
			// still in flight; the store decides between the two
			c.Next()
			return
		}

		if !errors.Is(err, redis.Nil) {
			c.Next()
			return
		}

		if setErr := rdb.Set(ctx, redisKey, "0", idempotenceTTL).Err(); setErr != nil {
			c.Next()
			return
		}

		c.Next()

		status := c.Writer.Status()
		if status >= 200 && status < 300 {
			rdb.Set(ctx, redisKey, "1", redis.KeepTTL)
		} else {
			rdb.Del(ctx, redisKey)
		}
	}
}

// abortReplay answers a ballot that already succeeded the way the vote
// engine would.
func abortReplay(c *gin.Context) {
	response.Error(c, apperr.New(apperr.AlreadyVoted, "already voted"))
}

// resolveIdempotenceKey hashes the request identity and path together with
// either the client supplied key or the request body.
func resolveIdempotenceKey(c *gin.Context) (string, error) {
	identity := requestIdentity(c)
	scope := c.Request.Method + "|" + c.Request.URL.Path + "|" + identity

	if hdr := c.GetHeader(idempotenceHeader); hdr != "" {
		return digest(scope + "|key:" + hdr), nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	if identity == "" && len(body) == 0 {
		return "", nil
	}
	return digest(scope + "|body:" + string(body)), nil
}

func requestIdentity(c *gin.Context) string {
	identity := InviteToken(c)
	if uid := CurrentUserID(c); uid != 0 {
		identity = strconv.FormatUint(uid, 10) + "|" + identity
	}
	if identity == "" {
		identity = c.ClientIP()
	}
	return identity
}

func digest(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
