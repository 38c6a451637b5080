// Package docs holds the OpenAPI document served under /swagger. It mirrors
// the route annotations in internal/api/routes.go.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/me/preferences": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "users"
                ],
                "summary": "Update post preferences",
                "parameters": [
                    {
                        "description": "Preferences",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/models.UserPreferences"
                        }
                    }
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.User"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/posts": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "posts"
                ],
                "summary": "List posts",
                "parameters": [
                    {
                        "description": "draft, scheduled, published or failed",
                        "name": "status",
                        "in": "query",
                        "required": false,
                        "type": "string"
                    },
                    {
                        "description": "Number of posts to return",
                        "name": "limit",
                        "in": "query",
                        "required": false,
                        "type": "integer",
                        "default": 20
                    },
                    {
                        "description": "Number of posts to skip",
                        "name": "offset",
                        "in": "query",
                        "required": false,
                        "type": "integer",
                        "default": 0
                    }
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/posts.ListResult"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            },
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "posts"
                ],
                "summary": "Create a draft post",
                "parameters": [
                    {
                        "description": "Post content",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/api.PostContentRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Post"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/posts/{id}/publish": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "posts"
                ],
                "summary": "Publish a post to X",
                "parameters": [
                    {
                        "description": "Post ID",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    }
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Post"
                        }
                    },
                    "400": {
                        "description": "Post is already published",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "429": {
                        "description": "Daily post limit reached",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Publishing failed",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/posts/{id}/schedule": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "posts"
                ],
                "summary": "Schedule a post",
                "parameters": [
                    {
                        "description": "Post ID",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "description": "Publication time",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/api.ScheduleRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Post"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/repositories": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "repositories"
                ],
                "summary": "List tracked repositories",
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/models.Repository"
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            },
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "repositories"
                ],
                "summary": "Track a repository",
                "parameters": [
                    {
                        "description": "Repository",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/api.TrackRepositoryRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Repository"
                        }
                    },
                    "400": {
                        "description": "Repository is already tracked",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/repositories/{id}/commits": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "repositories"
                ],
                "summary": "List ingested commits",
                "parameters": [
                    {
                        "description": "Repository ID",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "description": "Number of commits to return",
                        "name": "limit",
                        "in": "query",
                        "required": false,
                        "type": "integer",
                        "default": 50
                    },
                    {
                        "description": "Number of commits to skip",
                        "name": "offset",
                        "in": "query",
                        "required": false,
                        "type": "integer",
                        "default": 0
                    }
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/github.CommitPage"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/repositories/{id}/sync": {
            "post": {
                "description": "Ingests commits since the last sync, or the last 7 days",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "repositories"
                ],
                "summary": "Pull recent commits",
                "parameters": [
                    {
                        "description": "Repository ID",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    }
                ],
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/github.SyncResult"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/auth/device": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Start GitHub device flow",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/oauth.DeviceStart"
                        }
                    },
                    "429": {
                        "description": "Too many pending device codes",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/auth/poll": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Poll GitHub device flow",
                "parameters": [
                    {
                        "description": "Device code",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/api.DevicePollRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.DevicePollResponse"
                        }
                    },
                    "202": {
                        "description": "Accepted",
                        "schema": {
                            "$ref": "#/definitions/api.DevicePollResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.DevicePollResponse"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/api.DevicePollResponse"
                        }
                    }
                }
            }
        },
        "/auth/status/{device_code}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Device code status",
                "parameters": [
                    {
                        "description": "Device code",
                        "name": "device_code",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/oauth.DeviceInfo"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/dashboard": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "pages"
                ],
                "summary": "Dashboard",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.DashboardResponse"
                        }
                    }
                }
            }
        },
        "/health": {
            "get": {
                "description": "Liveness probe. Does not touch the database.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "system"
                ],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.HealthResponse"
                        }
                    }
                }
            }
        },
        "/oauth/x/status": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "oauth"
                ],
                "summary": "X connection status",
                "security": [
                    {
                        "SessionCookie": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/oauth.XStatus"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/reports": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "reports"
                ],
                "summary": "List reports",
                "parameters": [
                    {
                        "description": "Organization",
                        "name": "organization",
                        "in": "query",
                        "required": false,
                        "type": "string"
                    },
                    {
                        "description": "pending, completed or failed",
                        "name": "status",
                        "in": "query",
                        "required": false,
                        "type": "string"
                    },
                    {
                        "description": "Created on or after (YYYY-MM-DD)",
                        "name": "from_date",
                        "in": "query",
                        "required": false,
                        "type": "string"
                    },
                    {
                        "description": "Created on or before (YYYY-MM-DD)",
                        "name": "to_date",
                        "in": "query",
                        "required": false,
                        "type": "string"
                    },
                    {
                        "description": "Number of reports to return",
                        "name": "limit",
                        "in": "query",
                        "required": false,
                        "type": "integer",
                        "default": 50
                    },
                    {
                        "description": "Number of reports to skip",
                        "name": "offset",
                        "in": "query",
                        "required": false,
                        "type": "integer",
                        "default": 0
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/reports.ListResult"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/reports/bottom5": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "reports"
                ],
                "summary": "Lowest scoring reports",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    }
                }
            }
        },
        "/reports/generate": {
            "post": {
                "description": "Queues report generation. With sync=true the report is generated before answering.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "reports"
                ],
                "summary": "Generate a CodeRabbit report",
                "parameters": [
                    {
                        "description": "Generate synchronously",
                        "name": "sync",
                        "in": "query",
                        "required": false,
                        "type": "boolean"
                    },
                    {
                        "description": "Report request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.ReportQueuedResponse"
                        }
                    },
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/api.ReportCreatedResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/api.ReportFailedResponse"
                        }
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "reports"
                ],
                "summary": "Get a report",
                "parameters": [
                    {
                        "description": "Report ID",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Report"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/reports/{id}/metrics": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "reports"
                ],
                "summary": "Report metrics",
                "parameters": [
                    {
                        "description": "Report ID",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/reports.MetricsResult"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/webhook/github": {
            "post": {
                "description": "Receives push deliveries signed with X-Hub-Signature-256 and drafts a post per new commit",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "webhook"
                ],
                "summary": "GitHub webhook",
                "parameters": [
                    {
                        "description": "Event name",
                        "name": "X-GitHub-Event",
                        "in": "header",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "HMAC-SHA256 of the body",
                        "name": "X-Hub-Signature-256",
                        "in": "header",
                        "required": false,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.MessageResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "api.DashboardResponse": {
            "type": "object",
            "properties": {
                "flash": {
                    "type": "string"
                },
                "user": {
                    "$ref": "#/definitions/models.User"
                },
                "repos_count": {
                    "type": "integer"
                },
                "posts_count": {
                    "type": "integer"
                },
                "published_posts": {
                    "type": "integer"
                },
                "recent_posts": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.Post"
                    }
                }
            }
        },
        "api.DevicePollRequest": {
            "type": "object",
            "required": [
                "device_code"
            ],
            "properties": {
                "device_code": {
                    "type": "string"
                }
            }
        },
        "api.DevicePollResponse": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "error": {
                    "type": "string"
                },
                "access_token": {
                    "type": "string"
                },
                "token_type": {
                    "type": "string"
                },
                "scope": {
                    "type": "string"
                },
                "user": {
                    "$ref": "#/definitions/models.User"
                }
            }
        },
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string"
                }
            }
        },
        "api.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                },
                "service": {
                    "type": "string"
                },
                "active_device_codes": {
                    "type": "integer"
                }
            }
        },
        "api.MessageResponse": {
            "type": "object",
            "properties": {
                "message": {
                    "type": "string"
                }
            }
        },
        "api.PostContentRequest": {
            "type": "object",
            "required": [
                "content"
            ],
            "properties": {
                "content": {
                    "type": "string"
                }
            }
        },
        "api.ReportCreatedResponse": {
            "type": "object",
            "properties": {
                "report_id": {
                    "type": "integer"
                },
                "status": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "organization": {
                    "type": "string"
                },
                "from": {
                    "type": "string"
                },
                "to": {
                    "type": "string"
                },
                "parameters_used": {
                    "$ref": "#/definitions/models.ReportOptions"
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "api.ReportFailedResponse": {
            "type": "object",
            "properties": {
                "report_id": {
                    "type": "integer"
                },
                "status": {
                    "type": "string"
                },
                "error": {
                    "type": "string"
                },
                "details": {}
            }
        },
        "api.ReportQueuedResponse": {
            "type": "object",
            "properties": {
                "report_id": {
                    "type": "integer"
                },
                "status": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "api.ScheduleRequest": {
            "type": "object",
            "required": [
                "scheduled_at"
            ],
            "properties": {
                "scheduled_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "api.TrackRepositoryRequest": {
            "type": "object",
            "required": [
                "full_name"
            ],
            "properties": {
                "full_name": {
                    "type": "string"
                }
            }
        },
        "github.CommitPage": {
            "type": "object",
            "properties": {
                "commits": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.Commit"
                    }
                },
                "total": {
                    "type": "integer"
                },
                "limit": {
                    "type": "integer"
                },
                "offset": {
                    "type": "integer"
                }
            }
        },
        "github.SyncResult": {
            "type": "object",
            "properties": {
                "repository_id": {
                    "type": "integer"
                },
                "fetched": {
                    "type": "integer"
                },
                "processed": {
                    "type": "integer"
                },
                "synced_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "models.Commit": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "github_id": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "author_name": {
                    "type": "string"
                },
                "author_email": {
                    "type": "string"
                },
                "committer_name": {
                    "type": "string"
                },
                "committer_email": {
                    "type": "string"
                },
                "html_url": {
                    "type": "string"
                },
                "additions": {
                    "type": "integer"
                },
                "deletions": {
                    "type": "integer"
                },
                "changed_files": {
                    "type": "integer"
                },
                "processed": {
                    "type": "boolean"
                },
                "post_generated": {
                    "type": "boolean"
                },
                "post_published": {
                    "type": "boolean"
                },
                "processing_error": {
                    "type": "string"
                },
                "repository_id": {
                    "type": "integer"
                },
                "committed_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "processed_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "models.Post": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "updated_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "content": {
                    "type": "string"
                },
                "platform": {
                    "type": "string"
                },
                "platform_post_id": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "scheduled_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "published_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "hashtags": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "mentions": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "media_urls": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "likes_count": {
                    "type": "integer"
                },
                "retweets_count": {
                    "type": "integer"
                },
                "comments_count": {
                    "type": "integer"
                },
                "views_count": {
                    "type": "integer"
                },
                "error_message": {
                    "type": "string"
                },
                "retry_count": {
                    "type": "integer"
                },
                "user_id": {
                    "type": "integer"
                },
                "repository_id": {
                    "type": "integer"
                },
                "commit_id": {
                    "type": "integer"
                }
            }
        },
        "models.Report": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "organization": {
                    "type": "string"
                },
                "from_date": {
                    "type": "string"
                },
                "to_date": {
                    "type": "string"
                },
                "parameters_used": {
                    "$ref": "#/definitions/models.ReportOptions"
                },
                "status": {
                    "type": "string"
                },
                "summary": {
                    "type": "string"
                },
                "commits_analyzed": {
                    "type": "integer"
                },
                "files_changed": {
                    "type": "integer"
                },
                "issues_found": {
                    "type": "integer"
                },
                "score": {
                    "type": "number"
                },
                "report_data": {},
                "error_message": {
                    "type": "string"
                },
                "request_id": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "completed_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "metrics": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.ReportMetric"
                    }
                }
            }
        },
        "models.ReportMetric": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "report_id": {
                    "type": "integer"
                },
                "metric_name": {
                    "type": "string"
                },
                "metric_value": {
                    "type": "string"
                },
                "metadata": {}
            }
        },
        "models.ReportOptions": {
            "type": "object",
            "properties": {
                "scheduleRange": {
                    "type": "string"
                },
                "prompt": {
                    "type": "string"
                },
                "promptTemplate": {
                    "type": "string"
                },
                "parameters": {},
                "groupBy": {
                    "type": "string"
                },
                "subgroupBy": {
                    "type": "string"
                },
                "orgId": {
                    "type": "string"
                }
            }
        },
        "models.Repository": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "updated_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "github_id": {
                    "type": "integer"
                },
                "name": {
                    "type": "string"
                },
                "full_name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "html_url": {
                    "type": "string"
                },
                "language": {
                    "type": "string"
                },
                "is_private": {
                    "type": "boolean"
                },
                "user_id": {
                    "type": "integer"
                },
                "settings": {
                    "$ref": "#/definitions/models.RepositorySettings"
                },
                "last_synced_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "models.RepositorySettings": {
            "type": "object",
            "properties": {
                "auto_post_enabled": {
                    "type": "boolean"
                },
                "post_commits": {
                    "type": "boolean"
                },
                "post_issues": {
                    "type": "boolean"
                },
                "post_pull_requests": {
                    "type": "boolean"
                },
                "post_releases": {
                    "type": "boolean"
                },
                "min_commit_message_length": {
                    "type": "integer"
                }
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "updated_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "github_id": {
                    "type": "integer"
                },
                "username": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "avatar_url": {
                    "type": "string"
                },
                "post_tone": {
                    "type": "string"
                },
                "include_hashtags": {
                    "type": "boolean"
                },
                "max_posts_per_day": {
                    "type": "integer"
                }
            }
        },
        "models.UserPreferences": {
            "type": "object",
            "properties": {
                "post_tone": {
                    "type": "string"
                },
                "include_hashtags": {
                    "type": "boolean"
                },
                "max_posts_per_day": {
                    "type": "integer"
                }
            }
        },
        "oauth.DeviceInfo": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                },
                "expires_in": {
                    "type": "integer"
                },
                "interval": {
                    "type": "integer"
                }
            }
        },
        "oauth.DeviceStart": {
            "type": "object",
            "properties": {
                "device_code": {
                    "type": "string"
                },
                "user_code": {
                    "type": "string"
                },
                "verification_uri": {
                    "type": "string"
                },
                "verification_uri_complete": {
                    "type": "string"
                },
                "expires_in": {
                    "type": "integer"
                },
                "interval": {
                    "type": "integer"
                }
            }
        },
        "oauth.XStatus": {
            "type": "object",
            "properties": {
                "connected": {
                    "type": "boolean"
                },
                "expires_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "scope": {
                    "type": "string"
                }
            }
        },
        "posts.ListResult": {
            "type": "object",
            "properties": {
                "posts": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.Post"
                    }
                },
                "total": {
                    "type": "integer"
                },
                "limit": {
                    "type": "integer"
                },
                "offset": {
                    "type": "integer"
                }
            }
        },
        "reports.ListResult": {
            "type": "object",
            "properties": {
                "reports": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.Report"
                    }
                },
                "total_count": {
                    "type": "integer"
                },
                "limit": {
                    "type": "integer"
                },
                "offset": {
                    "type": "integer"
                },
                "has_more": {
                    "type": "boolean"
                }
            }
        },
        "reports.MetricsResult": {
            "type": "object",
            "properties": {
                "report_id": {
                    "type": "integer"
                },
                "metrics": {
                    "type": "object",
                    "additionalProperties": true
                }
            }
        }
    },
    "securityDefinitions": {
        "SessionCookie": {
            "type": "apiKey",
            "name": "sc2sm_session",
            "in": "cookie"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "SC2SM API",
	Description:      "Turns GitHub commits and CodeRabbit reports into social media posts",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
