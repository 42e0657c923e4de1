// Package docs registers the OpenAPI document served under /api/docs.
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
    "securityDefinitions": {
        "Bearer": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a spectator account",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.RegisterInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Log in with username or email",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.LoginInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            }
        },
        "/films": {
            "get": {
                "tags": ["films"],
                "summary": "List films",
                "description": "Anonymous callers and spectators only see published films.",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "string", "name": "evaluation", "in": "query"},
                    {"type": "string", "name": "source", "in": "query"},
                    {"type": "integer", "name": "author", "in": "query"},
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "string", "name": "ordering", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Envelope"}}
                }
            }
        },
        "/films/{id}": {
            "get": {
                "tags": ["films"],
                "summary": "Get a film with its rating",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            }
        },
        "/films/{id}/archive": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["films"],
                "summary": "Archive a film (admin)",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Envelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            }
        },
        "/authors": {
            "get": {
                "tags": ["authors"],
                "summary": "List authors with their ratings",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "source", "in": "query"},
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "string", "name": "ordering", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Envelope"}}
                }
            }
        },
        "/authors/{id}": {
            "delete": {
                "security": [{"Bearer": []}],
                "tags": ["authors"],
                "summary": "Delete an author (admin)",
                "description": "Refused with 409 AUTHOR_HAS_FILMS while the author still has films.",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            }
        },
        "/reviews": {
            "get": {
                "tags": ["reviews"],
                "summary": "List film reviews",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "film", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Envelope"}}
                }
            },
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["reviews"],
                "summary": "Review a film (spectators)",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "409": {"description": "already reviewed", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            }
        },
        "/spectators/favorites": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["spectators"],
                "summary": "List the caller's favourite films in the order they were added",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Envelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            }
        },
        "/spectators/favorites/add": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["spectators"],
                "summary": "Add a film to the caller's favourites",
                "description": "Adding a film twice is not an error.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "handler.Envelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "message": {"type": "string"}
            }
        },
        "handler.ErrorBody": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "field_errors": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "handler.ErrorEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {"$ref": "#/definitions/handler.ErrorBody"}
            }
        },
        "service.LoginInput": {
            "type": "object",
            "properties": {
                "login": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "service.RegisterInput": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Cinema Catalogue API",
	Description:      "Films, authors, reviews and spectator favourites.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
