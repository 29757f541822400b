package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// 密码使用 PBKDF2-SHA256 派生，盐与摘要分开存储（均为 hex）。
const (
	pbkdf2Iterations = 100_000
	pbkdf2KeyLength  = 32
	saltLength       = 16
)

// GenerateSalt 生成 16 字节随机盐（hex 编码）。
func GenerateSalt() (string, error) {
	b := make([]byte, saltLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashPassword 由密码与盐派生 256 位摘要（hex 编码）。
func HashPassword(password, saltHex string) string {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		// 盐非法时退回把原文当盐，避免 panic；校验一定不通过
		salt = []byte(saltHex)
	}
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLength, sha256.New)
	return hex.EncodeToString(key)
}

// VerifyPassword 恒定时间比较，防止计时侧信道。
func VerifyPassword(password, saltHex, storedHash string) bool {
	derived := HashPassword(password, saltHex)
	return subtle.ConstantTimeCompare([]byte(derived), []byte(storedHash)) == 1
}
