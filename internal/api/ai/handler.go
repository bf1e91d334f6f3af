package ai

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/anonqa/internal/api/qa"
	"github.com/liliang-cn/anonqa/internal/api/response"
	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/liliang-cn/anonqa/internal/service"
)

// Handler handles AI assistance requests
type Handler struct {
	aiService *service.AIService
}

// NewHandler creates a new AI handler
func NewHandler(aiService *service.AIService) *Handler {
	return &Handler{aiService: aiService}
}

// RegisterRoutes registers AI routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/generate-answer", h.GenerateAnswer)
	r.POST("/generate-question", h.GenerateQuestion)
	r.POST("/similar-questions", h.SimilarQuestions)
}

// GenerateAnswer streams an AI answer as plain text
func (h *Handler) GenerateAnswer(c *gin.Context) {
	var req domain.GenerateAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	req.GroupPassword = c.GetHeader(qa.GroupPasswordHeader)

	w := &textStream{c: c}
	result, err := h.aiService.GenerateAnswer(c.Request.Context(), c.ClientIP(), &req, w)
	h.finish(c, w, result, err)
}

// GenerateQuestion streams AI-suggested questions as plain text
func (h *Handler) GenerateQuestion(c *gin.Context) {
	var req domain.GenerateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	req.GroupPassword = c.GetHeader(qa.GroupPasswordHeader)

	w := &textStream{c: c}
	result, err := h.aiService.GenerateQuestions(c.Request.Context(), c.ClientIP(), &req, w)
	h.finish(c, w, result, err)
}

// SimilarQuestions returns existing questions that resemble a draft
func (h *Handler) SimilarQuestions(c *gin.Context) {
	var req domain.SimilarQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	req.GroupPassword = c.GetHeader(qa.GroupPasswordHeader)

	resp, err := h.aiService.FindSimilar(c.Request.Context(), c.ClientIP(), &req)
	if err != nil {
		if c.Request.Context().Err() != nil {
			c.Abort()
			return
		}
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) finish(c *gin.Context, w *textStream, result *service.StreamResult, err error) {
	if err != nil {
		// the service guarantees nothing was written yet
		response.Error(c, err)
		return
	}
	if !w.started && result.State == service.StreamCompleted {
		// empty completion still gets a well-formed response
		w.start()
	}
}

// textStream writes completion chunks as a chunked text/plain body
type textStream struct {
	c       *gin.Context
	started bool
}

func (w *textStream) start() {
	header := w.c.Writer.Header()
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Cache-Control", "no-cache")
	header.Set("X-Content-Type-Options", "nosniff")
	w.c.Status(http.StatusOK)
	w.c.Writer.WriteHeaderNow()
	w.started = true
}

func (w *textStream) WriteChunk(chunk string) error {
	if !w.started {
		w.start()
	}
	if _, err := w.c.Writer.WriteString(chunk); err != nil {
		return err
	}
	w.c.Writer.Flush()
	return nil
}
