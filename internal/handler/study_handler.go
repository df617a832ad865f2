// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"research-pilot-go/internal/service"
	"research-pilot-go/pkg/log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StudyHandler 负责处理学习材料相关的 API 请求。
type StudyHandler struct {
	studyService service.StudyService
}

// NewStudyHandler 创建一个新的 StudyHandler 实例。
func NewStudyHandler(studyService service.StudyService) *StudyHandler {
	return &StudyHandler{studyService: studyService}
}

// Note 返回论文的学习笔记。
func (h *StudyHandler) Note(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}

	note, err := h.studyService.GetNote(user.ID, paperID)
	if err != nil {
		respondStudyError(c, err, "学习笔记不存在")
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": note, "message": "success"})
}

// Flashcards 返回论文的抽认卡。
func (h *StudyHandler) Flashcards(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}

	cards, err := h.studyService.GetFlashcards(user.ID, paperID)
	if err != nil {
		respondStudyError(c, err, "抽认卡不存在")
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": cards, "message": "success"})
}

// MindMap 返回论文的思维导图。
func (h *StudyHandler) MindMap(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}

	mindMap, err := h.studyService.GetMindMap(user.ID, paperID)
	if err != nil {
		respondStudyError(c, err, "思维导图不存在")
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": mindMap, "message": "success"})
}

// CreatePlanRequest 定义了创建学习计划的请求体结构。
type CreatePlanRequest struct {
	Goal     string `json:"goal" binding:"required"`
	Deadline string `json:"deadline"`
}

// CreatePlan 为当前用户生成学习计划。
func (h *StudyHandler) CreatePlan(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：goal 不能为空"})
		return
	}

	plan, err := h.studyService.CreateStudyPlan(c.Request.Context(), user, req.Goal, req.Deadline)
	if err != nil {
		log.Errorf("CreatePlan: 创建学习计划失败, user: %d, error: %v", user.ID, err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": plan, "message": "success"})
}

// ListPlans 列出当前用户的学习计划。
func (h *StudyHandler) ListPlans(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	plans, err := h.studyService.ListStudyPlans(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询学习计划失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": plans, "message": "success"})
}

// GenerateInsights 跨论文生成洞察。
func (h *StudyHandler) GenerateInsights(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	insights, err := h.studyService.GenerateInsights(c.Request.Context(), user)
	if err != nil {
		log.Errorf("GenerateInsights: 生成洞察失败, user: %d, error: %v", user.ID, err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": insights, "message": "success"})
}

// ListInsights 列出当前用户的历史洞察。
func (h *StudyHandler) ListInsights(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	insights, err := h.studyService.ListInsights(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询洞察失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": insights, "message": "success"})
}

// respondStudyError 把服务层错误映射为合适的 HTTP 状态码。
func respondStudyError(c *gin.Context, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": notFoundMsg})
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "无权访问该论文"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error()})
	}
}
