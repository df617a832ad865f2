package model

import "time"

// Paper 的处理状态。入队时置为 queued，worker 取出后置为 processing，
// 处理结束后落在 ready 或 error 两个终态之一，不会自动重试。
const (
	PaperStatusQueued     = "queued"
	PaperStatusProcessing = "processing"
	PaperStatusReady      = "ready"
	PaperStatusError      = "error"
)

// Paper 定义了 papers 表的 ORM 模型。
// 结构化字段（Title/Authors/Abstract/FullText/Sections）只由处理管道写入。
type Paper struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"userId"`
	Title       string     `gorm:"type:varchar(512);index" json:"title"`
	Authors     string     `gorm:"type:text" json:"authors"`
	Abstract    string     `gorm:"type:text" json:"abstract"`
	FullText    string     `gorm:"type:longtext" json:"-"`
	Sections    string     `gorm:"type:json" json:"-"` // 序列化后的 []Section
	ObjectName  string     `gorm:"type:varchar(512);not null" json:"-"`
	FileName    string     `gorm:"type:varchar(255);not null" json:"fileName"`
	FileSize    int64      `gorm:"not null" json:"fileSize"`
	Status      string     `gorm:"type:varchar(20);not null;default:'queued';index" json:"status"`
	ErrorDetail *string    `gorm:"type:text" json:"errorDetail,omitempty"`
	UploadDate  time.Time  `gorm:"autoCreateTime" json:"uploadDate"`
	ProcessedAt *time.Time `gorm:"default:null" json:"processedAt,omitempty"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Paper) TableName() string {
	return "papers"
}

// Section 是从论文全文中抽取出的一个章节，只读、不单独入库。
type Section struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	StartOffset int    `json:"startOffset"`
}
