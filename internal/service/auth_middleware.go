// Package service file: internal/service/auth_middleware.go
package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

/* ---------- Context Helpers for Claims ---------- */

type ctxKey int

const claimKey ctxKey = 0

// ContextWithClaim 将认证信息注入上下文，测试中也会直接使用。
func ContextWithClaim(ctx context.Context, c *Claim) context.Context {
	return context.WithValue(ctx, claimKey, c)
}

// ClaimFrom 从请求上下文中取出认证信息，未认证时返回 nil。
func ClaimFrom(r *http.Request) *Claim {
	val := r.Context().Value(claimKey)
	if val == nil {
		return nil
	}
	claims, ok := val.(*Claim)
	if !ok {
		log.Printf("警告: context 中 claimKey 的值类型不是 *Claim: %T", val)
		return nil
	}
	return claims
}

/* ---------- 中间件 (Middleware) ---------- */

// Authenticator 结构体，用于持有数据库连接等依赖
type Authenticator struct {
	DB *sql.DB
}

// NewAuthenticator 创建 Authenticator 实例
func NewAuthenticator(db *sql.DB) *Authenticator {
	if db == nil {
		log.Fatal("严重错误: NewAuthenticator 接收到空的数据库连接！")
	}
	return &Authenticator{DB: db}
}

// Middleware 是一个JWT认证中间件。
// 只负责解析与注入 Claim，不做拒绝；是否要求认证由路由层决定。
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString != "" {
				claims, err := ParseToken(tokenString)

				if err == nil && claims != nil {
					_, _, userExists := GetUserById(a.DB, claims.ID)
					if userExists {
						r = r.WithContext(ContextWithClaim(r.Context(), claims))
					} else {
						log.Printf("认证中间件: 用户 ID %d (来自有效JWT) 在数据库中未找到。Token被拒绝。请求路径: %s, IP: %s", claims.ID, r.URL.Path, r.RemoteAddr)
					}
				} else {
					errMsg := "认证中间件: Token无效或解析错误。"
					if errors.Is(err, jwt.ErrTokenExpired) {
						errMsg = "认证中间件: Token已过期。"
					}
					log.Printf("%s 请求路径: %s, IP: %s (错误详情: %v)", errMsg, r.URL.Path, r.RemoteAddr, err)
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
