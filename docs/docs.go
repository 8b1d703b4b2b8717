// Package docs holds the swagger 2.0 document served at /api/swagger and registered
// with swag. It is maintained by hand alongside the handler annotations; cmd/openapi-compat
// checks it against the previous revision.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
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
        "/comments": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "Comment on a submission",
                "parameters": [
                    {"description": "Comment", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.CreateCommentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.CommentResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/comments/{submissionId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "List comments",
                "parameters": [
                    {"type": "integer", "description": "Submission ID", "name": "submissionId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.CommentResponse"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/dashboard": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Stats, merged recent activity and the latest five submissions of the caller.",
                "produces": ["application/json"],
                "tags": ["me"],
                "summary": "Dashboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Dashboard"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/follow": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Flip whether the caller follows username. Counts in the response are the target's.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Follow or unfollow",
                "parameters": [
                    {"description": "Target", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.FollowRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.FollowState"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["me"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.MeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "description": "Change username, display name, bio or avatar url. Omitted fields are left alone.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["me"],
                "summary": "Update profile",
                "parameters": [
                    {"description": "Profile changes", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.UpdateProfileInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.UpdateMeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/me/ensure": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Create the local user for the verified identity, or return the existing one.",
                "produces": ["application/json"],
                "tags": ["me"],
                "summary": "Ensure local user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.User"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/profile/avatar": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Square-crop, resize and store an avatar image. The returned url is applied through PATCH /api/me.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["me"],
                "summary": "Upload avatar",
                "parameters": [
                    {"type": "file", "description": "jpeg, png, gif or webp image", "name": "avatar", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/profile/check-username": {
            "get": {
                "produces": ["application/json"],
                "tags": ["me"],
                "summary": "Check username availability",
                "parameters": [
                    {"type": "string", "description": "Candidate username", "name": "username", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/recs": {
            "get": {
                "description": "Personalized from viewing history unless opted out through ?off=1, DNT or Sec-GPC.",
                "produces": ["application/json"],
                "tags": ["feed"],
                "summary": "Recommended submissions",
                "parameters": [
                    {"type": "string", "description": "Set to 1 to disable personalization", "name": "off", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.RecommendationsResponse"}}
                }
            }
        },
        "/submissions": {
            "get": {
                "description": "Keyset page of public submissions, newest first, plus the caller's own private ones.",
                "produces": ["application/json"],
                "tags": ["submissions"],
                "summary": "List submissions",
                "parameters": [
                    {"type": "integer", "description": "Page size (5-50, default 20)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Id of the last submission already seen", "name": "cursor", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SubmissionPage"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["submissions"],
                "summary": "Create submission",
                "parameters": [
                    {"description": "Submission", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.CreateSubmissionInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.SubmissionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/submissions/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["submissions"],
                "summary": "Get submission",
                "parameters": [
                    {"type": "integer", "description": "Submission ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SubmissionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/users/{username}": {
            "get": {
                "description": "Profile, stats and public submissions of a user. isFollowing reflects the caller when identified.",
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Public profile",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.PublicProfile"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/views": {
            "post": {
                "description": "Identified readers also accumulate tag preferences used by the feed.",
                "consumes": ["application/json"],
                "tags": ["feed"],
                "summary": "Record a view",
                "parameters": [
                    {"description": "Viewed submission", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.RecordViewRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/ws": {
            "get": {
                "description": "Upgrades to a websocket that receives follow and comment_created events for the ticket owner.",
                "tags": ["notifications"],
                "summary": "Notification stream",
                "parameters": [
                    {"type": "string", "description": "Ticket from POST /api/ws/ticket", "name": "ticket", "in": "query", "required": true}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "426": {"description": "Upgrade Required", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/ws/ticket": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Single-use ticket, valid for 30 seconds, to pass as ?ticket= when opening /api/ws.",
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Issue websocket ticket",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.WSTicketResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.ActivityItem": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "createdAt": {"type": "string"},
                "id": {"type": "integer"},
                "submissionId": {"type": "integer"},
                "title": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "models.AuthorSummary": {
            "type": "object",
            "properties": {
                "displayName": {"type": "string"},
                "id": {"type": "integer"},
                "username": {"type": "string"}
            }
        },
        "models.CommentResponse": {
            "type": "object",
            "properties": {
                "author": {"$ref": "#/definitions/models.AuthorSummary"},
                "content": {"type": "string"},
                "createdAt": {"type": "string"},
                "id": {"type": "integer"},
                "submissionId": {"type": "integer"}
            }
        },
        "models.Dashboard": {
            "type": "object",
            "properties": {
                "activity": {"type": "array", "items": {"$ref": "#/definitions/models.ActivityItem"}},
                "displayName": {"type": "string"},
                "recentWork": {"type": "array", "items": {"$ref": "#/definitions/models.RecentWork"}},
                "stats": {"$ref": "#/definitions/models.ProfileStats"},
                "username": {"type": "string"}
            }
        },
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "object", "additionalProperties": {"type": "string"}},
                "error": {"type": "string"}
            }
        },
        "models.FollowState": {
            "type": "object",
            "properties": {
                "followers": {"type": "integer"},
                "following": {"type": "integer"},
                "isFollowing": {"type": "boolean"}
            }
        },
        "models.MeResponse": {
            "type": "object",
            "properties": {
                "avatarUrl": {"type": "string"},
                "bio": {"type": "string"},
                "createdAt": {"type": "string"},
                "displayName": {"type": "string"},
                "id": {"type": "integer"},
                "role": {"type": "string"},
                "submissionCount": {"type": "integer"},
                "username": {"type": "string"}
            }
        },
        "models.ProfileStats": {
            "type": "object",
            "properties": {
                "comments": {"type": "integer"},
                "followers": {"type": "integer"},
                "following": {"type": "integer"},
                "submissions": {"type": "integer"}
            }
        },
        "models.PublicProfile": {
            "type": "object",
            "properties": {
                "avatarUrl": {"type": "string"},
                "bio": {"type": "string"},
                "displayName": {"type": "string"},
                "isFollowing": {"type": "boolean"},
                "joinedAt": {"type": "string"},
                "stats": {"$ref": "#/definitions/models.ProfileStats"},
                "submissions": {"type": "array", "items": {"$ref": "#/definitions/models.SubmissionResponse"}},
                "username": {"type": "string"}
            }
        },
        "models.RecentWork": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "commentCount": {"type": "integer"},
                "createdAt": {"type": "string"},
                "id": {"type": "integer"},
                "title": {"type": "string"}
            }
        },
        "models.SubmissionPage": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/models.SubmissionResponse"}},
                "nextCursor": {"type": "integer"}
            }
        },
        "models.SubmissionResponse": {
            "type": "object",
            "properties": {
                "aiNote": {"type": "string"},
                "allowComments": {"type": "boolean"},
                "author": {"$ref": "#/definitions/models.AuthorSummary"},
                "category": {"type": "string"},
                "commentCount": {"type": "integer"},
                "content": {"type": "string"},
                "createdAt": {"type": "string"},
                "fileUrl": {"type": "string"},
                "id": {"type": "integer"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "title": {"type": "string"},
                "upvotes": {"type": "integer"},
                "visibility": {"type": "string"}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "avatarUrl": {"type": "string"},
                "bio": {"type": "string"},
                "createdAt": {"type": "string"},
                "displayName": {"type": "string"},
                "id": {"type": "integer"},
                "role": {"type": "string"},
                "updatedAt": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "server.CreateCommentRequest": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "submissionId": {"type": "integer"}
            }
        },
        "server.FollowRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"}
            }
        },
        "server.RecommendationsResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/models.SubmissionResponse"}}
            }
        },
        "server.RecordViewRequest": {
            "type": "object",
            "properties": {
                "submissionId": {"type": "integer"}
            }
        },
        "server.UpdateMeResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "user": {"$ref": "#/definitions/models.User"}
            }
        },
        "server.WSTicketResponse": {
            "type": "object",
            "properties": {
                "expiresIn": {"type": "integer"},
                "ticket": {"type": "string"}
            }
        },
        "service.CreateSubmissionInput": {
            "type": "object",
            "properties": {
                "aiNote": {"type": "string"},
                "allowComments": {"type": "boolean"},
                "category": {"type": "string"},
                "content": {"type": "string"},
                "fileUrl": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "title": {"type": "string"},
                "visibility": {"type": "string"}
            }
        },
        "service.UpdateProfileInput": {
            "type": "object",
            "properties": {
                "avatarUrl": {"type": "string"},
                "bio": {"type": "string"},
                "displayName": {"type": "string"},
                "username": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the identity provider token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8375",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "UnboundedFigures API",
	Description:      "Math writeups, comments, follows and a tag-preference feed.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
