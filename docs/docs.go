// Package docs 注册Swagger文档
// 由 `swag init -g cmd/api/main.go` 重新生成
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/books": {
            "get": {"tags": ["图书"], "summary": "图书列表", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["图书"], "summary": "新增图书", "responses": {"201": {"description": "Created"}, "400": {"description": "参数错误或超出馆藏上限"}}}
        },
        "/books/available": {
            "get": {"tags": ["图书"], "summary": "可借图书列表", "responses": {"200": {"description": "OK"}}}
        },
        "/books/{id}": {
            "get": {"tags": ["图书"], "summary": "图书详情", "responses": {"200": {"description": "OK"}, "404": {"description": "图书不存在"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["图书"], "summary": "修改图书", "responses": {"200": {"description": "OK"}, "400": {"description": "参数错误或业务规则拒绝"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["图书"], "summary": "删除图书", "responses": {"200": {"description": "OK"}, "400": {"description": "仍有未归还的预约"}}}
        },
        "/stock": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["图书"], "summary": "馆藏使用情况", "responses": {"200": {"description": "OK"}}}
        },
        "/reservations": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["预约"], "summary": "全部预约", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["预约"], "summary": "预约图书", "responses": {"201": {"description": "Created"}, "400": {"description": "超出配额/重复预约/无可借副本"}, "503": {"description": "系统繁忙"}}}
        },
        "/reservations/me": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["预约"], "summary": "我的预约", "responses": {"200": {"description": "OK"}}}
        },
        "/reservations/user/{userId}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["预约"], "summary": "指定用户的预约", "responses": {"200": {"description": "OK"}}}
        },
        "/reservations/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["预约"], "summary": "预约详情", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["预约"], "summary": "修改预约状态", "responses": {"200": {"description": "OK"}, "400": {"description": "非法状态或状态转换"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["预约"], "summary": "删除预约", "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo 文档元信息
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "图书馆库存与预约服务 API",
	Description:      "馆藏管理、图书预约与归还;保证可借副本数与有效预约一致",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
