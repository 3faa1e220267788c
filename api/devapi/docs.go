// Package docs holds the OpenAPI description of the development backend,
// in the layout `swag init` emits for the annotations in internal/devapi.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "AussieBroadWAN Team",
            "url": "https://github.com/aussiebroadwan/examprep"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/login/": {
            "post": {
                "description": "Exchanges a username and password for an access and refresh token pair",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log in",
                "parameters": [
                    {
                        "description": "credentials",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/devapi.loginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "token pair", "schema": {"$ref": "#/definitions/authclient.TokenPair"}},
                    "400": {"description": "missing fields"},
                    "401": {"description": "invalid credentials"},
                    "429": {"description": "too many attempts"}
                }
            }
        },
        "/register/": {
            "post": {
                "description": "Creates a user account with the default role",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Register",
                "parameters": [
                    {
                        "description": "account",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/authclient.RegisterRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "created user", "schema": {"$ref": "#/definitions/authclient.RegisterResponse"}},
                    "400": {"description": "per-field validation errors"},
                    "409": {"description": "username or email taken"}
                }
            }
        },
        "/token/refresh/": {
            "post": {
                "description": "Issues a new access token; with rotation enabled a new refresh token is returned too",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Refresh access token",
                "parameters": [
                    {
                        "description": "refresh token",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/devapi.refreshRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "new access token", "schema": {"$ref": "#/definitions/authclient.RefreshResponse"}},
                    "401": {"description": "refresh token invalid, expired or revoked"}
                }
            }
        },
        "/password-reset/": {
            "post": {
                "description": "Accepts a reset request; the response never reveals whether the address exists",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Request password reset",
                "responses": {
                    "200": {"description": "request accepted"}
                }
            }
        },
        "/profile/": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the user identified by the bearer token",
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "user", "schema": {"$ref": "#/definitions/authclient.User"}},
                    "401": {"description": "missing or invalid token"}
                }
            }
        },
        "/users/{id}/": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns a user by id; only the user themself or an admin may read it",
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "User by id",
                "parameters": [
                    {"type": "string", "description": "user id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "user", "schema": {"$ref": "#/definitions/authclient.User"}},
                    "401": {"description": "missing or invalid token"},
                    "403": {"description": "not allowed"},
                    "404": {"description": "unknown user"}
                }
            }
        },
        "/exams/": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Sample authenticated resource",
                "produces": ["application/json"],
                "tags": ["Exams"],
                "summary": "List exams",
                "responses": {
                    "200": {"description": "exams"},
                    "401": {"description": "missing or invalid token"}
                }
            }
        },
        "/livez": {
            "get": {
                "description": "Liveness check",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "status"}
                }
            }
        }
    },
    "definitions": {
        "devapi.loginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "devapi.refreshRequest": {
            "type": "object",
            "properties": {
                "refresh": {"type": "string"}
            }
        },
        "authclient.TokenPair": {
            "type": "object",
            "properties": {
                "access": {"type": "string"},
                "refresh": {"type": "string"}
            }
        },
        "authclient.RefreshResponse": {
            "type": "object",
            "properties": {
                "access": {"type": "string"},
                "refresh": {"type": "string"}
            }
        },
        "authclient.RegisterRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "password": {"type": "string"},
                "confirm_password": {"type": "string"}
            }
        },
        "authclient.RegisterResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "email": {"type": "string"}
            }
        },
        "authclient.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "user", "moderator"]}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT access token. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8000",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Exam Prep Development API",
	Description:      "Local stand-in for the exam platform REST backend: login, registration, token refresh and profile.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
