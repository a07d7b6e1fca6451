package repository

import (
	"strings"

	"gorm.io/gorm"
)

// 默认分页
const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 200
)

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = defaultPage
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// likeOp PostgreSQL 使用 ILIKE，其它方言（测试用 SQLite）退回 LIKE
func likeOp(db *gorm.DB) string {
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return "ILIKE"
	}
	return "LIKE"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeClause 模糊匹配条件，配合 containsPattern 使用
func likeClause(db *gorm.DB, column string) string {
	return column + " " + likeOp(db) + ` ? ESCAPE '\'`
}

// containsPattern 转义用户输入中的通配符后包成 %keyword%
func containsPattern(keyword string) string {
	return "%" + likeEscaper.Replace(keyword) + "%"
}
