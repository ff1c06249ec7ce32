// Package docs is generated by swag from the handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/verification/request": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Проверяет номер, сохраняет хэш кода и отправляет SMS",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Verification"],
                "summary": "Запросить код подтверждения",
                "parameters": [
                    {"description": "Номер телефона и страна", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.RequestVerificationInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/verification/resend": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Генерирует новый код для номера из последнего запроса",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Verification"],
                "summary": "Отправить код повторно",
                "parameters": [
                    {"description": "Номер телефона", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ResendVerificationInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/verification/verify": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Сверяет код и помечает номер как подтверждённый",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Verification"],
                "summary": "Подтвердить номер",
                "parameters": [
                    {"description": "Номер и код", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.VerifyPhoneInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/verification/cleanup": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Maintenance"],
                "summary": "Очистить просроченные коды",
                "parameters": [
                    {"type": "string", "description": "Ключ обслуживания", "name": "X-Maintenance-Key", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.APIResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "data": {},
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "models.RequestVerificationInput": {
            "type": "object",
            "required": ["country_code", "phone_number"],
            "properties": {
                "country_code": {"type": "string"},
                "phone_number": {"type": "string"}
            }
        },
        "models.ResendVerificationInput": {
            "type": "object",
            "required": ["phone_number"],
            "properties": {
                "country_code": {"type": "string"},
                "phone_number": {"type": "string"}
            }
        },
        "models.VerifyPhoneInput": {
            "type": "object",
            "required": ["otp", "phone_number"],
            "properties": {
                "otp": {"type": "string"},
                "phone_number": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Phone Verification API",
	Description:      "OTP verification of user phone numbers.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
