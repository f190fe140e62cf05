// Package storage 定义存储层领域错误
//
// 这些错误用于隔离业务层与底层存储引擎的错误类型，
// mongostore 驱动负责将底层错误转换为这些领域错误。
package storage

import "errors"

var (
	// ErrNotFound 实体不存在
	// 替代 mongo.ErrNoDocuments
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate 唯一键冲突（login/email 已存在）
	ErrDuplicate = errors.New("duplicate: entity already exists")

	// ErrInvalidID 标识格式非法（必须是 24 位十六进制 ObjectID）
	// 在任何存储调用之前抛出
	ErrInvalidID = errors.New("invalid identifier")
)
