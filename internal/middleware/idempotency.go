package middleware

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// HeaderIdempotencyKey is the request header carrying the client-chosen key
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotentReplayed marks a response served from the store
	HeaderIdempotentReplayed = "Idempotent-Replayed"

	// DefaultIdempotencyTTL is how long a stored response is replayed
	DefaultIdempotencyTTL = 5 * time.Minute

	maxIdempotencyKeyLength = 255
	idempotencyKeyPrefix    = "idempotency:"
	idempotencyPending      = "pending"
)

// storedResponse is what gets replayed for a repeated key
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// IdempotencyStore remembers responses to mutating requests so a collector
// retrying on a flaky connection does not register the same payment twice.
type IdempotencyStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewIdempotencyStore creates a store. A zero ttl uses DefaultIdempotencyTTL.
func NewIdempotencyStore(client redis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Ping checks the Redis connection
func (s *IdempotencyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// reserve claims key. ok is false when the key already exists.
func (s *IdempotencyStore) reserve(ctx context.Context, key string) (bool, error) {
	return s.client.SetNX(ctx, key, idempotencyPending, s.ttl).Result()
}

// lookup returns the stored response, or nil while the first request is in flight
func (s *IdempotencyStore) lookup(ctx context.Context, key string) (*storedResponse, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	if string(raw) == idempotencyPending {
		return nil, nil
	}
	var resp storedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *IdempotencyStore) save(ctx context.Context, key string, resp storedResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, s.ttl).Err()
}

func (s *IdempotencyStore) release(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Idempotency returns an Echo middleware honoring the Idempotency-Key header on
// mutating requests. Keys are scoped per user and route. A nil store disables
// it, and Redis failures let the request through.
func Idempotency(store *IdempotencyStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if store == nil || !isMutating(c.Request().Method) {
				return next(c)
			}
			clientKey := c.Request().Header.Get(HeaderIdempotencyKey)
			if clientKey == "" {
				return next(c)
			}
			if len(clientKey) > maxIdempotencyKeyLength {
				return problem(c, http.StatusBadRequest, errorTypeBadRequest, "Bad Request", "Idempotency-Key demasiado largo")
			}

			scope := "anonymous"
			if user := GetUser(c); user != nil {
				scope = user.ID.String()
			}
			key := idempotencyKeyPrefix + scope + ":" + c.Request().Method + ":" + c.Request().URL.Path + ":" + clientKey
			ctx := c.Request().Context()

			reserved, err := store.reserve(ctx, key)
			if err != nil {
				log.Warn().Err(err).Msg("Idempotency store unavailable, processing request without it")
				return next(c)
			}
			if !reserved {
				return replay(c, store, key)
			}

			// First request with this key: capture what gets written
			rec := &responseRecorder{ResponseWriter: c.Response().Writer}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			// Server errors are not remembered so the client can retry
			if status >= http.StatusInternalServerError {
				if err := store.release(context.WithoutCancel(ctx), key); err != nil {
					log.Warn().Err(err).Str("key", clientKey).Msg("Failed to release idempotency key")
				}
				return nil
			}
			resp := storedResponse{
				Status:      status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        rec.body.Bytes(),
			}
			if err := store.save(context.WithoutCancel(ctx), key, resp); err != nil {
				log.Warn().Err(err).Str("key", clientKey).Msg("Failed to store idempotent response")
			}
			return nil
		}
	}
}

func replay(c echo.Context, store *IdempotencyStore, key string) error {
	resp, err := store.lookup(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between reserve and lookup
			return problem(c, http.StatusConflict, errorTypeConflict, "Conflict", "La solicitud expiró, intente de nuevo")
		}
		log.Warn().Err(err).Msg("Idempotency lookup failed")
		return unavailableError(c, "No se pudo verificar la solicitud, intente de nuevo")
	}
	if resp == nil {
		return problem(c, http.StatusConflict, errorTypeConflict, "Conflict", "Una solicitud con la misma clave está en curso")
	}

	c.Response().Header().Set(HeaderIdempotentReplayed, "true")
	if resp.ContentType == "" {
		return c.NoContent(resp.Status)
	}
	return c.Blob(resp.Status, resp.ContentType, resp.Body)
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseRecorder tees the response body into a buffer
type responseRecorder struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(r.ResponseWriter).Hijack()
}
