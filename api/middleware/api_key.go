/*
 * @module api/middleware/api_key
 * @description API Key鉴权中间件，保护启动/中止同步等变更类接口
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @documentReference DESIGN.md
 * @stateFlow 提取X-API-Key -> bcrypt比对 -> 下一个处理器
 * @rules 未配置哈希时放行；比对失败返回401统一响应
 * @dependencies golang.org/x/crypto/bcrypt, github.com/go-chi/render
 * @refs api/routes.go
 */

package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader 请求头名称
const APIKeyHeader = "X-API-Key"

// APIKeyAuth 校验请求头中的API Key与配置的bcrypt哈希是否匹配
func APIKeyAuth(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if key == "" {
				unauthorized(w, r, "缺少API Key")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
				unauthorized(w, r, "API Key无效")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HashAPIKey 生成API Key的bcrypt哈希，用于配置API_KEY_HASH
func HashAPIKey(key string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusUnauthorized,
		"msg":    msg,
	})
}
