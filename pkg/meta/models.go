package meta

import (
	"time"

	"gorm.io/datatypes"
)

// CommitModel 是 core.Commit 在关系型数据库中的投影 (索引)
// 用于快速查询历史 (gv log --author)。对象库仍然是唯一的事实来源。
type CommitModel struct {
	// Hash 是主键 (commit id)
	Hash string `gorm:"primaryKey;type:char(40)"`

	AuthorName  string `gorm:"index;type:varchar(100)"`
	AuthorEmail string `gorm:"index;type:varchar(255)"`
	Message     string `gorm:"type:text"`
	Timestamp   int64  `gorm:"index"` // unix 秒，方便范围查询和排序
	TimeZone    string `gorm:"type:varchar(5)"`

	TreeHash string `gorm:"type:char(40);not null"`

	// Parents: JSON 数组 ["id"]，根提交为 []
	Parents datatypes.JSON

	// Meta: 非结构化的附加信息 (目前是 committer 与 summary)
	Meta datatypes.JSON

	CreatedAt time.Time
}

// TableName 强制指定表名
func (CommitModel) TableName() string {
	return "commits"
}
