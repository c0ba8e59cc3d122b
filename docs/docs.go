// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with: swag init -g cmd/server/main.go
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
                "description": "Authenticates with email and password and returns a short-lived access token.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log in",
                "parameters": [
                    {
                        "description": "Login credentials",
                        "name": "loginRequest",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/api.LoginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.TokenResponse"}},
                    "401": {"description": "Invalid email or password", "schema": {"type": "string"}},
                    "403": {"description": "Account disabled or not verified", "schema": {"type": "string"}}
                }
            }
        },
        "/auth/register": {
            "post": {
                "description": "Creates an unverified account and emails a confirmation link.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new account",
                "parameters": [
                    {
                        "description": "Account details",
                        "name": "registerRequest",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/api.RegisterRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.User"}},
                    "400": {"description": "Invalid input", "schema": {"type": "string"}},
                    "409": {"description": "Email already registered", "schema": {"type": "string"}}
                }
            }
        },
        "/files": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "List files",
                "parameters": [
                    {"type": "string", "default": "all", "description": "owned, shared or all", "name": "scope", "in": "query"},
                    {"type": "integer", "default": 100, "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.FileListResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Upload a file",
                "parameters": [
                    {"type": "file", "description": "File to upload", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.File"}},
                    "400": {"description": "Invalid upload", "schema": {"type": "string"}},
                    "413": {"description": "Upload too large", "schema": {"type": "string"}}
                }
            }
        },
        "/files/batch": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Upload several files",
                "parameters": [
                    {"type": "file", "description": "Files to upload", "name": "files", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/api.BatchUploadResponse"}},
                    "400": {"description": "No files provided", "schema": {"type": "string"}},
                    "413": {"description": "Upload too large", "schema": {"type": "string"}}
                }
            }
        },
        "/files/{fileId}/download": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/octet-stream"],
                "tags": ["files"],
                "summary": "Download a file",
                "parameters": [
                    {"type": "string", "description": "File ID", "name": "fileId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "File not found", "schema": {"type": "string"}}
                }
            }
        },
        "/events": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Get new events",
                "description": "Returns file events journaled for the caller after the given journal ID, oldest first, at most 100 per call.",
                "parameters": [
                    {"type": "integer", "description": "Journal ID of the last event received", "name": "since", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/api.EventResponse"}}},
                    "400": {"description": "Invalid 'since' parameter", "schema": {"type": "string"}}
                }
            }
        },
        "/files/{fileId}/share": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["shares"],
                "summary": "Share a file",
                "parameters": [
                    {"type": "string", "description": "File ID", "name": "fileId", "in": "path", "required": true},
                    {
                        "description": "Recipient and flags",
                        "name": "shareRequest",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/api.ShareRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Grant"}},
                    "409": {"description": "File is already shared with this user", "schema": {"type": "string"}}
                }
            }
        },
        "/files/{fileId}/transfer": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["shares"],
                "summary": "Transfer ownership",
                "parameters": [
                    {"type": "string", "description": "File ID", "name": "fileId", "in": "path", "required": true},
                    {
                        "description": "New owner",
                        "name": "recipientRequest",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/api.RecipientRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.File"}},
                    "409": {"description": "File changed since it was loaded", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "api.BatchUploadResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "2 files uploaded"},
                "files": {"type": "array", "items": {"$ref": "#/definitions/models.File"}},
                "errors": {"type": "array", "items": {"type": "string"}}
            }
        },
        "api.EventResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer", "example": 123},
                "event_type": {
                    "type": "string",
                    "enum": ["file_uploaded", "file_deleted", "file_restored", "file_unlink_failed", "file_shared_with_you", "share_updated_for_you", "share_revoked_for_you", "file_transferred_to_you", "file_transferred_away", "trash_purged"],
                    "example": "file_transferred_to_you"
                },
                "event_time": {"type": "string"},
                "payload": {"type": "object"}
            }
        },
        "api.FileListResponse": {
            "type": "object",
            "properties": {
                "owned": {"type": "array", "items": {"$ref": "#/definitions/models.File"}},
                "shared": {"type": "array", "items": {"$ref": "#/definitions/models.File"}}
            }
        },
        "api.LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "alice@example.com"},
                "password": {"type": "string", "example": "password123"}
            }
        },
        "api.RecipientRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "bob@example.com"},
                "user_id": {"type": "integer", "example": 2}
            }
        },
        "api.RegisterRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "alice@example.com"},
                "name": {"type": "string", "example": "Alice"},
                "password": {"type": "string", "example": "password123"}
            }
        },
        "api.ShareRequest": {
            "type": "object",
            "properties": {
                "can_delete": {"type": "boolean"},
                "can_write": {"type": "boolean"},
                "email": {"type": "string", "example": "bob@example.com"},
                "user_id": {"type": "integer", "example": 2}
            }
        },
        "api.TokenResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "expires_in": {"type": "integer", "example": 3600},
                "token_type": {"type": "string", "example": "Bearer"},
                "user": {"$ref": "#/definitions/models.User"}
            }
        },
        "models.File": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "deleted_at": {"type": "string"},
                "filename": {"type": "string"},
                "id": {"type": "string"},
                "is_deleted": {"type": "boolean"},
                "is_public": {"type": "boolean"},
                "last_accessed_at": {"type": "string"},
                "mime_type": {"type": "string"},
                "original_filename": {"type": "string"},
                "owner_id": {"type": "integer"},
                "size_bytes": {"type": "integer"},
                "updated_at": {"type": "string"}
            }
        },
        "models.Grant": {
            "type": "object",
            "properties": {
                "can_delete": {"type": "boolean"},
                "can_write": {"type": "boolean"},
                "file_id": {"type": "string"},
                "granted_at": {"type": "string"},
                "user_id": {"type": "integer"}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "email": {"type": "string"},
                "email_confirmed_at": {"type": "string"},
                "id": {"type": "integer"},
                "is_active": {"type": "boolean"},
                "is_verified": {"type": "boolean"},
                "last_login_at": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "manager", "user", "guest"]},
                "updated_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "File Sharing API",
	Description:      "Authenticated file storage with sharing and ownership transfer.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
