// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strconv"

	"research-pilot-go/internal/service"
	"research-pilot-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 负责处理语义搜索请求。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// SearchRequest 定义了搜索 API 的请求体结构。
type SearchRequest struct {
	Query   string `json:"query" binding:"required"`
	TopK    int    `json:"topK"`
	PaperID *uint  `json:"paperId"`
}

// Search 处理语义搜索请求，支持 POST body 和 GET query 两种形式。
func (h *SearchHandler) Search(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req SearchRequest
	if c.Request.Method == http.MethodGet {
		req.Query = c.Query("q")
		if req.Query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "查询参数 q 不能为空"})
			return
		}
		req.TopK, _ = strconv.Atoi(c.DefaultQuery("topK", "5"))
		if pid, err := strconv.ParseUint(c.Query("paperId"), 10, 32); err == nil {
			id := uint(pid)
			req.PaperID = &id
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：query 不能为空"})
		return
	}

	results, err := h.searchService.Search(c.Request.Context(), req.Query, req.TopK, req.PaperID, user)
	if err != nil {
		log.Errorf("Search: 搜索失败, user: %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "搜索失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code": http.StatusOK,
		"data": gin.H{
			"results": results,
			"total":   len(results),
		},
		"message": "success",
	})
}
