package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type SimilarityRequest struct {
	Str1 string `json:"str1"`
	Str2 string `json:"str2"`
}

type MatchRequest struct {
	Input      string   `json:"input"`
	Candidates []string `json:"candidates"`
	Threshold  *float64 `json:"threshold"`
}

type VocabularyRequest struct {
	Input     string   `json:"input"`
	Threshold *float64 `json:"threshold"`
}

// threshold falls back to the configured threshold only when t is unset;
// an explicit 0 is kept.
func (s *Server) threshold(t *float64) (float64, error) {
	if t == nil {
		return s.Engine.DefaultThreshold(), nil
	}
	if *t < 0 || *t > 1 {
		return 0, fmt.Errorf("threshold must be between 0 and 1, got %v", *t)
	}
	return *t, nil
}

func (s *Server) Similarity(c *gin.Context) {
	var req SimilarityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request")
		return
	}
	if req.Str1 == "" || req.Str2 == "" {
		s.badRequest(c, "str1 and str2 are required")
		return
	}

	score := s.Engine.Similarity(req.Str1, req.Str2)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"str1":       req.Str1,
		"str2":       req.Str2,
		"similarity": score,
		"percentage": fmt.Sprintf("%.2f%%", score*100),
	})
}

func (s *Server) bindMatch(c *gin.Context) (MatchRequest, float64, bool) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request")
		return req, 0, false
	}
	if req.Input == "" {
		s.badRequest(c, "input is required")
		return req, 0, false
	}
	t, err := s.threshold(req.Threshold)
	if err != nil {
		s.badRequest(c, err.Error())
		return req, 0, false
	}
	return req, t, true
}

func (s *Server) Closest(c *gin.Context) {
	req, t, ok := s.bindMatch(c)
	if !ok {
		return
	}

	resp := gin.H{"success": true, "input": req.Input, "match": nil}
	if m, found := s.Engine.ClosestMatch(req.Input, req.Candidates, t); found {
		resp["match"] = m
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) Matches(c *gin.Context) {
	req, t, ok := s.bindMatch(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"input":   req.Input,
		"matches": s.Engine.AllMatches(req.Input, req.Candidates, t),
	})
}

// TestVocabulary matches input against every stored keyword.
func (s *Server) TestVocabulary(c *gin.Context) {
	var req VocabularyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request")
		return
	}
	if req.Input == "" {
		s.badRequest(c, "input is required")
		return
	}
	t, err := s.threshold(req.Threshold)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}

	matches, total, err := s.Engine.MatchVocabulary(c.Request.Context(), req.Input, t)
	if err != nil {
		s.fail(c, "match vocabulary", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"input":            req.Input,
		"total_candidates": total,
		"matches":          matches,
	})
}
