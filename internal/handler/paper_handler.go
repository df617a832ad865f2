// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"research-pilot-go/internal/service"
	"research-pilot-go/pkg/log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// 上传文件大小上限 50MB
const maxUploadSize = 50 << 20

// PaperHandler 负责处理论文管理相关的 API 请求。
type PaperHandler struct {
	paperService service.PaperService
}

// NewPaperHandler 创建一个新的 PaperHandler 实例。
func NewPaperHandler(paperService service.PaperService) *PaperHandler {
	return &PaperHandler{paperService: paperService}
}

// Upload 处理论文 PDF 上传请求。
func (h *PaperHandler) Upload(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "缺少上传文件"})
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"code": http.StatusRequestEntityTooLarge, "message": "文件超过大小限制"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "读取上传文件失败"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "读取上传文件失败"})
		return
	}

	paper, err := h.paperService.Upload(c.Request.Context(), user, fileHeader.Filename, data)
	if err != nil {
		log.Errorf("Upload: 论文上传失败, user: %d, error: %v", user.ID, err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": paper, "message": "success"})
}

// List 分页列出当前用户的论文。
func (h *PaperHandler) List(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	papers, total, err := h.paperService.List(user.ID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询论文列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code": http.StatusOK,
		"data": gin.H{
			"papers": papers,
			"total":  total,
			"page":   page,
		},
		"message": "success",
	})
}

// Get 返回单篇论文的详细信息。
func (h *PaperHandler) Get(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}

	paper, err := h.paperService.Get(user.ID, paperID)
	if err != nil {
		respondPaperError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": paper, "message": "success"})
}

// Delete 删除论文及其派生数据。
func (h *PaperHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}

	if err := h.paperService.Delete(c.Request.Context(), user.ID, paperID); err != nil {
		respondPaperError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success"})
}

// Reprocess 重新提交论文处理任务。
func (h *PaperHandler) Reprocess(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}

	if err := h.paperService.Reprocess(c.Request.Context(), user.ID, paperID); err != nil {
		respondPaperError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success"})
}

// Download 返回论文原始文件的预签名下载链接。
func (h *PaperHandler) Download(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	paperID, ok := paperIDParam(c)
	if !ok {
		return
	}

	url, err := h.paperService.DownloadURL(c.Request.Context(), user.ID, paperID)
	if err != nil {
		respondPaperError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": gin.H{"url": url}, "message": "success"})
}

// Stats 返回论文与索引的统计信息。
func (h *PaperHandler) Stats(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	stats, err := h.paperService.Stats(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询统计信息失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": stats, "message": "success"})
}

// paperIDParam 解析路径中的论文 ID。
func paperIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的论文 ID"})
		return 0, false
	}
	return uint(id), true
}

// respondPaperError 把服务层错误映射为合适的 HTTP 状态码。
func respondPaperError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "论文不存在"})
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "无权访问该论文"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error()})
	}
}
