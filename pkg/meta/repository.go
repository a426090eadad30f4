package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gitvault/pkg/core"
	"gitvault/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCommitNotFound = errors.New("commit not found in metadata")

// Repository 封装所有对 SQL 数据库的操作
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

type commitMeta struct {
	Committer string `json:"committer"`
	Summary   string `json:"summary"`
}

// IndexCommit 将 core.Commit 对象“投影”到 SQL 数据库中 (幂等)
func (r *Repository) IndexCommit(ctx context.Context, c *core.Commit) error {
	parents := []types.ObjectID{}
	if !c.IsRoot() {
		parents = append(parents, c.Parent)
	}
	parentsJSON, err := json.Marshal(parents)
	if err != nil {
		return fmt.Errorf("failed to marshal parents: %w", err)
	}
	metaJSON, err := json.Marshal(commitMeta{Committer: c.Committer.Ident(), Summary: c.Summary()})
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}

	model := CommitModel{
		Hash:        c.ID().String(),
		AuthorName:  c.Author.Name,
		AuthorEmail: c.Author.Email,
		Message:     c.Message,
		Timestamp:   c.Author.When.Unix(),
		TimeZone:    c.Author.When.Format("-0700"),
		TreeHash:    c.TreeID.String(),
		Parents:     datatypes.JSON(parentsJSON),
		Meta:        datatypes.JSON(metaJSON),
		CreatedAt:   time.Unix(c.Author.When.Unix(), 0).UTC(),
	}

	// 如果 Hash 已存在，则什么都不做
	err = r.db.GetConn().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hash"}},
			DoNothing: true,
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to index commit: %w", err)
	}
	return nil
}

func (r *Repository) GetCommit(ctx context.Context, id types.ObjectID) (*CommitModel, error) {
	var commit CommitModel
	err := r.db.GetConn().WithContext(ctx).
		Where("hash = ?", id.String()).
		First(&commit).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &commit, nil
}

// FindCommitsByAuthor 按作者名或邮箱查询，最新的在前
func (r *Repository) FindCommitsByAuthor(ctx context.Context, author string, limit int) ([]CommitModel, error) {
	var commits []CommitModel
	q := r.db.GetConn().WithContext(ctx).
		Where("author_name = ? OR author_email = ?", author, author).
		Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&commits).Error
	return commits, err
}

// ParentIDs 解码 Parents 字段
func (m *CommitModel) ParentIDs() ([]types.ObjectID, error) {
	var ids []types.ObjectID
	if len(m.Parents) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(m.Parents, &ids); err != nil {
		return nil, fmt.Errorf("commit %s: bad parents: %w", m.Hash, err)
	}
	return ids, nil
}
