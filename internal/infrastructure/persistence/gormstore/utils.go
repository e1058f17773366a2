package gormstore

import (
	"strings"

	"gorm.io/gorm"
)

// likePattern 生成不区分大小写的LIKE模式
func likePattern(keyword string) string {
	escaped := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(strings.ToLower(keyword))
	return "%" + escaped + "%"
}

// whereContains 对列做不区分大小写的子串匹配
func whereContains(query *gorm.DB, column, keyword string) *gorm.DB {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return query
	}
	return query.Where("LOWER("+column+") LIKE ? ESCAPE '!'", likePattern(keyword))
}

// paginate 分页,pageSize<=0表示不分页
func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
