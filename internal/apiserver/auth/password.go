package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// argon2id 参数，改动会使已有哈希失效
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltBytes    = 16
)

// GenerateSalt 生成每用户随机盐（16 字节，十六进制编码）
func GenerateSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashPassword 计算盐 + 全局 pepper 的 argon2id 哈希
// pepper 来自进程配置，不落库；同一口令在不同部署间的哈希互不通用
func HashPassword(password, salt, pepper string) string {
	key := argon2.IDKey([]byte(password+pepper), []byte(salt), argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(key)
}

// AreEqualPasswords 黑盒口令比较（常数时间）
func AreEqualPasswords(password, salt, pepper, hash string) bool {
	computed := HashPassword(password, salt, pepper)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}
