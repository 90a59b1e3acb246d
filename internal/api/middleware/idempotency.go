package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyRecord ties a client key to the run its first request started
type IdempotencyRecord struct {
	RunID       string
	RequestHash string
	CreatedAt   time.Time
}

// IdempotencyStore remembers started runs by Idempotency-Key
type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]IdempotencyRecord
	ttl     time.Duration
	now     func() time.Time
}

// NewIdempotencyStore creates a store whose keys are forgotten after ttl
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{records: make(map[string]IdempotencyRecord), ttl: ttl, now: time.Now}
}

func (s *IdempotencyStore) Get(key string) (IdempotencyRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if ok && s.now().Sub(rec.CreatedAt) > s.ttl {
		delete(s.records, key)
		return IdempotencyRecord{}, false
	}
	return rec, ok
}

func (s *IdempotencyStore) Put(key, requestHash, runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, rec := range s.records {
		if now.Sub(rec.CreatedAt) > s.ttl {
			delete(s.records, k)
		}
	}
	s.records[key] = IdempotencyRecord{RunID: runID, RequestHash: requestHash, CreatedAt: now}
}

// IdempotencyMiddleware handles idempotency key validation
func IdempotencyMiddleware(store *IdempotencyStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logger.Error("Failed to read request body for idempotency", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process request"})
			c.Abort()
			return
		}

		// Restore body for handler
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		if existing, ok := store.Get(idempotencyKey); ok {
			if existing.RequestHash != requestHash {
				c.JSON(http.StatusConflict, gin.H{
					"error": "idempotency key conflict: same key used with different payload",
				})
				c.Abort()
				return
			}
			c.Set("idempotency_existing_run_id", existing.RunID)
		} else {
			c.Set("idempotency_key", idempotencyKey)
			c.Set("idempotency_request_hash", requestHash)
		}

		c.Next()
	}
}

// GetIdempotencyInfo retrieves idempotency information from context
func GetIdempotencyInfo(c *gin.Context) (key string, requestHash string, existingRunID string, isExisting bool) {
	if existingID, exists := c.Get("idempotency_existing_run_id"); exists {
		if id, ok := existingID.(string); ok {
			return "", "", id, true
		}
	}

	keyVal, _ := c.Get("idempotency_key")
	hashVal, _ := c.Get("idempotency_request_hash")

	key, _ = keyVal.(string)
	requestHash, _ = hashVal.(string)

	return key, requestHash, "", false
}
