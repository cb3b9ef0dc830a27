package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt 只使用前 72 字节，先压成定长摘要再交给 bcrypt。
func digestSecret(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return []byte(hex.EncodeToString(sum[:]))
}

// HashSecret 使用 bcrypt 生成密码哈希，任意长度的密码都完整参与计算。
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(digestSecret(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(bytes), nil
}

// CheckSecret 校验明文是否与哈希完全匹配。
func CheckSecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), digestSecret(secret)) == nil
}
