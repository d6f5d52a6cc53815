package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"careercompass/internal/app"
	"careercompass/internal/index"
	"careercompass/internal/kb"
	"careercompass/internal/repository"
	"careercompass/internal/transport/http/response"
)

type CareerHandler struct {
	career *app.CareerService
	repo   *repository.RecommendationRepository // nil when history storage is disabled
	apiKey string
}

type RecommendRequest struct {
	Query  string `json:"query" binding:"required"`
	APIKey string `json:"api_key"`
}

type StructuredRecommendRequest struct {
	Degree          string   `json:"degree" binding:"required"`
	Branch          string   `json:"branch" binding:"required"`
	ExperienceYears int      `json:"experience_years"`
	ExperienceType  string   `json:"experience_type"`
	Skills          []string `json:"skills"`
	Interests       []string `json:"interests"`
	APIKey          string   `json:"api_key"`
}

type SimilarRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

func NewCareerHandler(career *app.CareerService, repo *repository.RecommendationRepository, apiKey string) *CareerHandler {
	return &CareerHandler{career: career, repo: repo, apiKey: apiKey}
}

func (h *CareerHandler) Recommend(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	rec, err := h.career.Recommend(c.Request.Context(), req.Query, h.credential(req.APIKey))
	if err != nil {
		h.writeRecommendError(c, err)
		return
	}
	response.OK(c, rec)
}

// RecommendStructured flattens a structured profile into a query string and
// runs the same recommendation pipeline.
func (h *CareerHandler) RecommendStructured(c *gin.Context) {
	var req StructuredRecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	rec, err := h.career.Recommend(c.Request.Context(), formatProfile(req), h.credential(req.APIKey))
	if err != nil {
		h.writeRecommendError(c, err)
		return
	}
	response.OK(c, rec)
}

func (h *CareerHandler) Similar(c *gin.Context) {
	var req SimilarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	results, err := h.career.RetrieveSimilar(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, index.ErrUninitialized):
			response.Error(c, http.StatusServiceUnavailable, response.CodeIndexNotReady, "vector index not ready")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "retrieval failed")
		}
		return
	}
	response.OK(c, gin.H{"results": results, "count": len(results)})
}

func (h *CareerHandler) RebuildIndex(c *gin.Context) {
	if err := h.career.Rebuild(c.Request.Context()); err != nil {
		switch {
		case errors.Is(err, kb.ErrNoSources), errors.Is(err, kb.ErrEmptyKnowledgeBase):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "rebuild failed: "+err.Error())
		}
		return
	}
	response.OK(c, h.career.Status())
}

func (h *CareerHandler) IndexStatus(c *gin.Context) {
	response.OK(c, h.career.Status())
}

func (h *CareerHandler) ListRecommendations(c *gin.Context) {
	if h.repo == nil {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "recommendation history is disabled")
		return
	}

	limit := 0
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	records, err := h.repo.ListRecent(limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list recommendations failed")
		return
	}
	response.OK(c, records)
}

func (h *CareerHandler) writeRecommendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrMissingCredential):
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
	case errors.Is(err, app.ErrRetrievalUnavailable):
		response.Error(c, http.StatusServiceUnavailable, response.CodeIndexNotReady, "vector index not ready")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "recommendation failed")
	}
}

func (h *CareerHandler) credential(requestKey string) string {
	if requestKey != "" {
		return requestKey
	}
	return h.apiKey
}

func formatProfile(req StructuredRecommendRequest) string {
	experienceType := req.ExperienceType
	if experienceType == "" {
		experienceType = "professional"
	}
	lines := []string{
		fmt.Sprintf("Education: %s in %s", req.Degree, req.Branch),
		fmt.Sprintf("Experience: %d years (%s)", req.ExperienceYears, experienceType),
		"Skills: " + strings.Join(req.Skills, ", "),
		"Interests: " + strings.Join(req.Interests, ", "),
	}
	return strings.Join(lines, "\n")
}
