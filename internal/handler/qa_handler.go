// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"research-pilot-go/internal/service"
	"research-pilot-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// QAHandler 负责处理基于检索的问答请求。
type QAHandler struct {
	qaService service.QAService
}

// NewQAHandler 创建一个新的 QAHandler 实例。
func NewQAHandler(qaService service.QAService) *QAHandler {
	return &QAHandler{qaService: qaService}
}

// AskRequest 定义了问答 API 的请求体结构。
type AskRequest struct {
	Question string `json:"question" binding:"required"`
	PaperID  *uint  `json:"paperId"`
}

// Ask 回答用户关于论文的问题。
func (h *QAHandler) Ask(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：question 不能为空"})
		return
	}

	answer, err := h.qaService.Ask(c.Request.Context(), user, req.Question, req.PaperID)
	if err != nil {
		log.Errorf("Ask: 问答失败, user: %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "问答失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": answer, "message": "success"})
}

// History 返回当前用户的问答历史。
func (h *QAHandler) History(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	history, err := h.qaService.History(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询对话历史失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": history, "message": "success"})
}

// ClearHistory 清空当前用户的问答历史。
func (h *QAHandler) ClearHistory(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	if err := h.qaService.ClearHistory(c.Request.Context(), user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "清空对话历史失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success"})
}
