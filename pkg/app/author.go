package app

import (
	"errors"
	"os"
	"time"

	"gitvault/pkg/config"
	"gitvault/pkg/core"
)

var ErrNoAuthor = errors.New("author identity unknown (set user.name and user.email)")

// ResolveAuthor 使用配置中的 user.name / user.email，缺失时回退到
// GIT_AUTHOR_NAME / GIT_AUTHOR_EMAIL 环境变量。
func ResolveAuthor(u config.UserConfig, now time.Time) (core.Author, error) {
	name, email := u.Name, u.Email
	if name == "" {
		name = os.Getenv("GIT_AUTHOR_NAME")
	}
	if email == "" {
		email = os.Getenv("GIT_AUTHOR_EMAIL")
	}
	if name == "" || email == "" {
		return core.Author{}, ErrNoAuthor
	}
	return core.Author{Name: name, Email: email, When: now}, nil
}
