package model

import "go.mongodb.org/mongo-driver/v2/bson"

// NewID 生成新的实体标识（24 位十六进制 ObjectID）
func NewID() string {
	return bson.NewObjectID().Hex()
}

// ValidID 检查标识格式是否合法
// 非法标识必须在任何存储调用之前被拒绝
func ValidID(id string) bool {
	_, err := bson.ObjectIDFromHex(id)
	return err == nil
}
