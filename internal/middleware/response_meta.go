package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	metaKey      = "response_meta"
	metaStartKey = "response_meta_start"

	// MetaCacheHit reports whether a calendar or dashboard view came from the cache.
	MetaCacheHit = "cache_hit"
	// MetaProcessingTime is the elapsed handler time in milliseconds.
	MetaProcessingTime = "processing_time_ms"
)

// WithResponseMeta prepares a per-request meta map that handlers attach to the envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(metaStartKey, time.Now())
		c.Set(metaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit marks whether the projection or utilization payload was served from the cache.
func SetCacheHit(c *gin.Context, hit bool) {
	if meta := metaFor(c); meta != nil {
		meta[MetaCacheHit] = hit
	}
}

// ExtractMeta returns the meta map with the processing time stamped at call time.
// Nil when WithResponseMeta is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := metaFor(c)
	if meta == nil {
		return nil
	}
	if start, ok := c.Value(metaStartKey).(time.Time); ok {
		meta[MetaProcessingTime] = time.Since(start).Milliseconds()
	}
	return meta
}

func metaFor(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta, _ := c.Value(metaKey).(map[string]interface{})
	return meta
}
