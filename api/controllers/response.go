package controllers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"100"`
	Page   int         `json:"page" example:"1"`
	Size   int         `json:"size" example:"10"`
}

// SuccessResponse 成功响应
func SuccessResponse(msg string, data interface{}) APIResponse {
	return APIResponse{Status: 0, Msg: msg, Data: data}
}

// ErrorResponse 错误响应，err 不为空时拼接到消息后
func ErrorResponse(status int, msg string, err error) APIResponse {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return APIResponse{Status: status, Msg: msg}
}

// BadRequestResponse 请求参数错误
func BadRequestResponse(msg string, err error) APIResponse {
	return ErrorResponse(http.StatusBadRequest, msg, err)
}

// NotFoundResponse 资源不存在
func NotFoundResponse(msg string, err error) APIResponse {
	return ErrorResponse(http.StatusNotFound, msg, err)
}

// ConflictResponse 状态冲突
func ConflictResponse(msg string, err error) APIResponse {
	return ErrorResponse(http.StatusConflict, msg, err)
}

// InternalErrorResponse 服务器内部错误
func InternalErrorResponse(msg string, err error) APIResponse {
	return ErrorResponse(http.StatusInternalServerError, msg, err)
}

// writeError 以响应中的状态码写出错误
func writeError(w http.ResponseWriter, r *http.Request, resp APIResponse) {
	render.Status(r, resp.Status)
	render.JSON(w, r, resp)
}
