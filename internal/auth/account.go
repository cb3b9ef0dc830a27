package auth

import "time"

// Account 表示一个可登录的简历作者。SecretHash 保存 bcrypt 哈希，从不保存明文。
type Account struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}
