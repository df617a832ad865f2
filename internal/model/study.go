package model

import "time"

// Note 定义了 notes 表的 ORM 模型，存储一篇论文的结构化学习笔记。
// Content 是 study.StudyNotes 的 JSON 序列化结果。
type Note struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PaperID      uint      `gorm:"index;not null" json:"paperId"`
	Title        string    `gorm:"type:varchar(512)" json:"title"`
	Content      string    `gorm:"type:json" json:"content"`
	Summary      string    `gorm:"type:text" json:"summary"`
	KeyTakeaways string    `gorm:"type:json" json:"keyTakeaways"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Note) TableName() string {
	return "notes"
}

// Flashcard 定义了 flashcards 表的 ORM 模型。
type Flashcard struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PaperID    uint      `gorm:"index;not null" json:"paperId"`
	Question   string    `gorm:"type:text;not null" json:"question"`
	Answer     string    `gorm:"type:text;not null" json:"answer"`
	Difficulty string    `gorm:"type:varchar(20);default:'medium'" json:"difficulty"`
	Category   string    `gorm:"type:varchar(50)" json:"category"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Flashcard) TableName() string {
	return "flashcards"
}

// MindMap 定义了 mind_maps 表的 ORM 模型。
// Structure 是 study.MindMapData 的 JSON 序列化结果，供前端可视化使用。
type MindMap struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PaperID   uint      `gorm:"index;not null" json:"paperId"`
	Title     string    `gorm:"type:varchar(512)" json:"title"`
	Structure string    `gorm:"type:json" json:"structure"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (MindMap) TableName() string {
	return "mind_maps"
}

// StudyPlan 定义了 study_plans 表的 ORM 模型。
type StudyPlan struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"userId"`
	Title     string     `gorm:"type:varchar(512)" json:"title"`
	Goal      string     `gorm:"type:text" json:"goal"`
	Deadline  *time.Time `gorm:"default:null" json:"deadline,omitempty"`
	Status    string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	Schedule  string     `gorm:"type:json" json:"schedule"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (StudyPlan) TableName() string {
	return "study_plans"
}

// Insight 定义了 insights 表的 ORM 模型，存储跨论文分析得到的洞察。
type Insight struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint      `gorm:"index;not null" json:"userId"`
	Type           string    `gorm:"type:varchar(30)" json:"type"`
	Title          string    `gorm:"type:varchar(512)" json:"title"`
	Description    string    `gorm:"type:text" json:"description"`
	RelevanceScore int       `gorm:"not null;default:5" json:"relevanceScore"`
	RelatedPapers  string    `gorm:"type:json" json:"relatedPapers"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Insight) TableName() string {
	return "insights"
}
