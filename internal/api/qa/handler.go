package qa

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/anonqa/internal/api/response"
	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/liliang-cn/anonqa/internal/service"
)

// GroupPasswordHeader carries the password of a private group on reads and posts
const GroupPasswordHeader = "X-Group-Password"

// Handler handles group, question and answer requests
type Handler struct {
	qaService *service.QAService
}

// NewHandler creates a new Q&A handler
func NewHandler(qaService *service.QAService) *Handler {
	return &Handler{qaService: qaService}
}

// RegisterRoutes registers Q&A routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	groups := r.Group("/groups")
	{
		groups.POST("", h.CreateGroup)
		groups.GET("", h.ListGroups)
		groups.GET("/:id", h.GetGroup)
		groups.POST("/:id/access", h.VerifyGroupAccess)
		groups.GET("/:id/questions", h.ListQuestions)
		groups.POST("/:id/questions", h.CreateQuestion)
	}

	questions := r.Group("/questions")
	{
		questions.GET("/:id", h.GetQuestion)
		questions.PUT("/:id", h.UpdateQuestion)
		questions.DELETE("/:id", h.DeleteQuestion)
		questions.POST("/:id/vote", h.VoteQuestion)
		questions.GET("/:id/answers", h.ListAnswers)
		questions.POST("/:id/answers", h.CreateAnswer)
	}

	answers := r.Group("/answers")
	{
		answers.PUT("/:id", h.UpdateAnswer)
		answers.DELETE("/:id", h.DeleteAnswer)
		answers.POST("/:id/vote", h.VoteAnswer)
		answers.POST("/:id/accept", h.AcceptAnswer)
	}
}

// Group handlers

func (h *Handler) CreateGroup(c *gin.Context) {
	var req domain.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	group, err := h.qaService.CreateGroup(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, group)
}

func (h *Handler) ListGroups(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	groups, err := h.qaService.ListGroups(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (h *Handler) GetGroup(c *gin.Context) {
	group, err := h.qaService.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, group)
}

func (h *Handler) VerifyGroupAccess(c *gin.Context) {
	var req domain.GroupAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	group, err := h.qaService.VerifyGroupAccess(c.Request.Context(), c.Param("id"), req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, group)
}

// Question handlers

func (h *Handler) CreateQuestion(c *gin.Context) {
	var req domain.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	question, err := h.qaService.CreateQuestion(c.Request.Context(), c.Param("id"), c.GetHeader(GroupPasswordHeader), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, question.View())
}

func (h *Handler) ListQuestions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	questions, err := h.qaService.ListQuestions(c.Request.Context(), c.Param("id"), c.GetHeader(GroupPasswordHeader), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	views := make([]domain.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, q.View())
	}
	c.JSON(http.StatusOK, gin.H{"questions": views})
}

func (h *Handler) GetQuestion(c *gin.Context) {
	question, err := h.qaService.GetQuestion(c.Request.Context(), c.Param("id"), c.GetHeader(GroupPasswordHeader))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, question.View())
}

func (h *Handler) UpdateQuestion(c *gin.Context) {
	var req domain.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	question, err := h.qaService.UpdateQuestion(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, question.View())
}

func (h *Handler) DeleteQuestion(c *gin.Context) {
	var req domain.PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	if err := h.qaService.DeleteQuestion(c.Request.Context(), c.Param("id"), req.Password); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) VoteQuestion(c *gin.Context) {
	var req domain.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	question, err := h.qaService.VoteQuestion(c.Request.Context(), c.Param("id"), req.Direction)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, question.View())
}

// Answer handlers

func (h *Handler) CreateAnswer(c *gin.Context) {
	var req domain.CreateAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	answer, err := h.qaService.CreateAnswer(c.Request.Context(), c.Param("id"), c.GetHeader(GroupPasswordHeader), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, answer.View())
}

func (h *Handler) ListAnswers(c *gin.Context) {
	answers, err := h.qaService.ListAnswers(c.Request.Context(), c.Param("id"), c.GetHeader(GroupPasswordHeader))
	if err != nil {
		response.Error(c, err)
		return
	}

	views := make([]domain.AnswerView, 0, len(answers))
	for _, a := range answers {
		views = append(views, a.View())
	}
	c.JSON(http.StatusOK, gin.H{"answers": views})
}

func (h *Handler) UpdateAnswer(c *gin.Context) {
	var req domain.UpdateAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	answer, err := h.qaService.UpdateAnswer(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, answer.View())
}

func (h *Handler) DeleteAnswer(c *gin.Context) {
	var req domain.PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	if err := h.qaService.DeleteAnswer(c.Request.Context(), c.Param("id"), req.Password); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) VoteAnswer(c *gin.Context) {
	var req domain.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	answer, err := h.qaService.VoteAnswer(c.Request.Context(), c.Param("id"), req.Direction)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, answer.View())
}

// AcceptAnswer expects the password of the question, not of the answer
func (h *Handler) AcceptAnswer(c *gin.Context) {
	var req domain.PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	answer, err := h.qaService.AcceptAnswer(c.Request.Context(), c.Param("id"), req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, answer.View())
}
