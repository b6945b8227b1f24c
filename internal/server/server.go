package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agenthands/kwmerge/internal/core"
	"github.com/agenthands/kwmerge/internal/core/common"
)

const requestIDHeader = "X-Request-ID"

type Server struct {
	Engine *core.Engine
	Log    zerolog.Logger
}

func NewServer(engine *core.Engine, log zerolog.Logger) *Server {
	return &Server{
		Engine: engine,
		Log:    log.With().Str("component", "server").Logger(),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.Health)

	fuzzy := r.Group("/fuzzy")
	fuzzy.POST("/similarity", s.Similarity)
	fuzzy.POST("/closest", s.Closest)
	fuzzy.POST("/matches", s.Matches)
	fuzzy.POST("/test", s.TestVocabulary)

	admin := r.Group("/admin")
	admin.GET("/keywords/suggest-merges", s.SuggestMerges)
	admin.POST("/keywords/merge", s.MergeKeywords)
	admin.GET("/keywords/families", s.Families)
	admin.GET("/keywords/stats", s.Stats)
	admin.POST("/keywords/cleanup", s.Cleanup)
	admin.GET("/answers/:answerID/keywords", s.AnswerKeywords)
	admin.POST("/answers/:answerID/keywords", s.AttachKeyword)
	admin.POST("/answers/:answerID/dedupe", s.DedupeAnswer)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
}

// requestLogger tags each request with an id and logs it once it completes.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set("request_id", id)

		c.Next()

		s.Log.Info().
			Str("request_id", id).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

// fail maps engine errors onto status codes.
func (s *Server) fail(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrKeywordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, common.ErrInvalidKeyword):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.Log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msgf("failed to %s", op)
		c.JSON(status, gin.H{"success": false, "error": "failed to " + op})
		return
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
