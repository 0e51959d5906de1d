// Package docs holds the Swagger 2.0 description of the API, registered with
// swag and served by gin-swagger under /swagger when SWAGGER_ENABLED is set.
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
        "/day": {
            "get": {
                "description": "Lists the habits possible on the given date (created on or before it and scheduled on its weekday)\nand the ids of those completed that day. Never creates a day.",
                "produces": ["application/json"],
                "tags": ["Days"],
                "summary": "Habits of a day",
                "operationId": "getDay",
                "parameters": [
                    {
                        "type": "string",
                        "example": "2026-10-12",
                        "description": "Date (YYYY-MM-DD or RFC3339)",
                        "name": "date",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.DayView"}},
                    "400": {"description": "Missing or invalid date", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/habits": {
            "get": {
                "description": "Returns habits newest first with their weekdays. Supports weak ETag via If-None-Match and may return 304.",
                "produces": ["application/json"],
                "tags": ["Habits"],
                "summary": "List habits (paginated)",
                "operationId": "listHabits",
                "parameters": [
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handlers.ListHabitsResponse"},
                        "headers": {"ETag": {"type": "string", "description": "Weak ETag for current result"}}
                    },
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Creates a habit available from today on the given weekdays. Duplicate weekdays are kept.\nSupports idempotency via the Idempotency-Key header (same key → no second habit,\n409 while the first request with that key is still running).",
                "consumes": ["application/json"],
                "tags": ["Habits"],
                "summary": "Create a habit",
                "operationId": "createHabit",
                "parameters": [
                    {"type": "string", "description": "Idempotency key for safe retries", "name": "Idempotency-Key", "in": "header"},
                    {"type": "string", "description": "Client identifier (scopes idempotency and rate limits)", "name": "X-Client-ID", "in": "header"},
                    {
                        "description": "Habit payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.CreateHabitRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Created (no body)",
                        "headers": {"Idempotency-Replayed": {"type": "string", "description": "true when served from a previous request"}}
                    },
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Same Idempotency-Key still in progress", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/habits/{id}/toggle": {
            "patch": {
                "description": "Marks the habit completed today, or un-marks it when already completed. Calling it twice restores the previous state.",
                "tags": ["Habits"],
                "summary": "Toggle today's completion of a habit",
                "operationId": "toggleHabit",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Habit ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Toggled (no body)"},
                    "400": {"description": "Invalid id", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Habit not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Concurrent toggle", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/summary": {
            "get": {
                "description": "One row per stored day, ordered by date: completed habits and possible habits (amount) of that day.",
                "produces": ["application/json"],
                "tags": ["Summary"],
                "summary": "Per-day completion summary",
                "operationId": "getSummary",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.SummaryRow"}}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/summary/calendar": {
            "get": {
                "description": "One cell per date from January 1st of the current year up to today, with completion percentage.",
                "produces": ["application/json"],
                "tags": ["Summary"],
                "summary": "Year-to-date completion grid",
                "operationId": "getCalendar",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/services.CalendarCell"}}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Habit": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "title": {"type": "string"},
                "week_days": {"type": "array", "items": {"$ref": "#/definitions/domain.HabitWeekDay"}}
            }
        },
        "domain.HabitWeekDay": {
            "type": "object",
            "properties": {
                "habit_id": {"type": "string"},
                "id": {"type": "string"},
                "week_day": {"type": "integer"}
            }
        },
        "domain.SummaryRow": {
            "type": "object",
            "properties": {
                "amount": {"type": "number"},
                "completed": {"type": "number"},
                "date": {"type": "string"},
                "id": {"type": "string"}
            }
        },
        "handlers.CreateHabitRequest": {
            "type": "object",
            "properties": {
                "title": {"description": "Title is the habit name (1–255 chars).", "type": "string", "example": "Drink 2L of water"},
                "weekDays": {
                    "description": "WeekDays lists the weekdays the habit applies to, Sunday=0..Saturday=6.",
                    "type": "array",
                    "items": {"type": "integer"},
                    "example": [1, 3, 5]
                }
            }
        },
        "handlers.ErrorDetail": {
            "type": "object",
            "properties": {
                "field": {"type": "string", "example": "weekDays[0]"},
                "reason": {"type": "string", "example": "must be <= 6"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"description": "Stable, machine-readable code (see errors.go constants)", "type": "string", "example": "validation_failed"},
                "details": {"description": "Present on validation failures", "allOf": [{"$ref": "#/definitions/handlers.ErrorDetail"}]},
                "message": {"description": "Human-readable message (safe to show to users)", "type": "string", "example": "weekDays[0] must be <= 6"},
                "request_id": {"description": "Correlates server logs and client errors", "type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        },
        "handlers.ListHabitsResponse": {
            "type": "object",
            "properties": {
                "habits": {"type": "array", "items": {"$ref": "#/definitions/domain.Habit"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "has_next": {"type": "boolean"},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "services.CalendarCell": {
            "type": "object",
            "properties": {
                "amount": {"type": "number", "example": 3},
                "completed": {"type": "number", "example": 2},
                "date": {"type": "string", "example": "2026-10-12"},
                "percentage": {"type": "integer", "example": 67}
            }
        },
        "services.DayView": {
            "type": "object",
            "properties": {
                "completedHabits": {"type": "array", "items": {"type": "string"}},
                "possibleHabits": {"type": "array", "items": {"$ref": "#/definitions/domain.Habit"}}
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
	Title:            "Habit Tracker API",
	Description:      "REST API for recurring habits, daily completions and the completion summary.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
