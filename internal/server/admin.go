package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type MergeRequest struct {
	ParentKeywordID string `json:"parent_keyword_id"`
	ChildKeywordID  string `json:"child_keyword_id"`
}

type AttachRequest struct {
	Text string `json:"text"`
}

func (s *Server) SuggestMerges(c *gin.Context) {
	suggestions, err := s.Engine.SuggestMerges(c.Request.Context())
	if err != nil {
		s.fail(c, "suggest merges", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"total":       len(suggestions),
		"suggestions": suggestions,
	})
}

func (s *Server) MergeKeywords(c *gin.Context) {
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request")
		return
	}

	result, err := s.Engine.MergeKeywords(c.Request.Context(), req.ParentKeywordID, req.ChildKeywordID)
	if err != nil {
		s.fail(c, "merge keywords", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (s *Server) Families(c *gin.Context) {
	families, err := s.Engine.Families(c.Request.Context())
	if err != nil {
		s.fail(c, "detect keyword families", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"total":    len(families),
		"families": families,
	})
}

func (s *Server) Stats(c *gin.Context) {
	stats, err := s.Engine.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, "load stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

func (s *Server) Cleanup(c *gin.Context) {
	result, err := s.Engine.CleanupOrphans(c.Request.Context())
	if err != nil {
		s.fail(c, "clean up keywords", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deleted": len(result.Deleted),
		"result":  result,
	})
}

// AnswerKeywords lists an answer's keywords and the duplicates dedupe would
// remove.
func (s *Server) AnswerKeywords(c *gin.Context) {
	answerID := c.Param("answerID")
	keywords, removals, err := s.Engine.AnswerDuplicates(c.Request.Context(), answerID)
	if err != nil {
		s.fail(c, "load answer keywords", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"answer_id":  answerID,
		"keywords":   keywords,
		"duplicates": removals,
	})
}

func (s *Server) AttachKeyword(c *gin.Context) {
	var req AttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request")
		return
	}

	answerID := c.Param("answerID")
	kw, removals, err := s.Engine.AttachKeyword(c.Request.Context(), answerID, req.Text)
	if err != nil {
		s.fail(c, "attach keyword", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"answer_id": answerID,
		"keyword":   kw,
		"removed":   removals,
	})
}

func (s *Server) DedupeAnswer(c *gin.Context) {
	answerID := c.Param("answerID")
	removals, err := s.Engine.DeduplicateAnswer(c.Request.Context(), answerID)
	if err != nil {
		s.fail(c, "deduplicate answer", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"answer_id": answerID,
		"removed":   removals,
	})
}
