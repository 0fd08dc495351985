// Package docs registers the OpenAPI document served under /swagger.
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
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign in with e-mail and password",
                "parameters": [
                    {"description": "Login credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.sessionResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/signup": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Create an account",
                "parameters": [
                    {"description": "Account details", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.signUpRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.signUpResponse"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/handler.signUpResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/oauth/{provider}": {
            "get": {
                "tags": ["auth"],
                "summary": "Start an OAuth sign-in",
                "parameters": [
                    {"type": "string", "description": "OAuth provider (e.g. google)", "name": "provider", "in": "path", "required": true}
                ],
                "responses": {
                    "302": {"description": "Found"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/session": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Complete an OAuth sign-in",
                "parameters": [
                    {"description": "Tokens from the redirect fragment", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.oauthSessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.sessionResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign out",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.sessionResponse"}}
                }
            }
        },
        "/v1/session": {
            "get": {
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Current session state",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.sessionResponse"}}
                }
            }
        },
        "/v1/session/path": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Report the current path",
                "parameters": [
                    {"description": "Path shown by the app", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.pathRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.sessionResponse"}}
                }
            }
        },
        "/v1/session/role": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Choose the user's role",
                "parameters": [
                    {"description": "fan or creator", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.roleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.sessionResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/session/stream": {
            "get": {
                "description": "Upgrades to a websocket and sends a sessionResponse after every state change.",
                "tags": ["session"],
                "summary": "Stream session state",
                "responses": {
                    "101": {"description": "Switching Protocols"}
                }
            }
        },
        "/v1/dashboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Dashboard for the current role",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.dashboardResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        }
    },
    "definitions": {
        "handler.errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "handler.loginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "handler.signUpRequest": {
            "type": "object",
            "required": ["email", "full_name", "password"],
            "properties": {"email": {"type": "string"}, "full_name": {"type": "string", "maxLength": 120}, "password": {"type": "string", "minLength": 6}}
        },
        "handler.oauthSessionRequest": {
            "type": "object",
            "required": ["access_token"],
            "properties": {"access_token": {"type": "string"}, "refresh_token": {"type": "string"}}
        },
        "handler.pathRequest": {
            "type": "object",
            "required": ["path"],
            "properties": {"path": {"type": "string", "maxLength": 2048}}
        },
        "handler.roleRequest": {
            "type": "object",
            "required": ["role"],
            "properties": {"role": {"type": "string", "enum": ["fan", "creator"]}}
        },
        "handler.userResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "full_name": {"type": "string"},
                "avatar_url": {"type": "string"},
                "role": {"type": "string", "x-nullable": true},
                "bio": {"type": "string"},
                "followed_club_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handler.sessionResponse": {
            "type": "object",
            "properties": {
                "phase": {"type": "string", "enum": ["booting", "ready"]},
                "authenticated": {"type": "boolean"},
                "user": {"$ref": "#/definitions/handler.userResponse"},
                "path": {"type": "string"},
                "navigate": {"type": "string"}
            }
        },
        "handler.signUpResponse": {
            "type": "object",
            "properties": {
                "confirmation_required": {"type": "boolean"},
                "session": {"$ref": "#/definitions/handler.sessionResponse"}
            }
        },
        "handler.dashboardSection": {
            "type": "object",
            "properties": {"key": {"type": "string"}, "title": {"type": "string"}}
        },
        "handler.dashboardResponse": {
            "type": "object",
            "properties": {
                "role": {"type": "string"},
                "greeting": {"type": "string"},
                "sections": {"type": "array", "items": {"$ref": "#/definitions/handler.dashboardSection"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "ClubConnect session API",
	Description:      "Backend-for-frontend that keeps each device's signed-in user and profile in step and tells the app where to navigate.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
