package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TTGT Schedule API",
        "description": "Normalized class timetable with daily substitution overlays",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Schedule", "description": "Timetables, raw pages and daily substitutions"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/schedule/items": {
            "get": {
                "tags": ["Schedule"],
                "summary": "List known groups and teachers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/{item}/schedule": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Base timetable of a group or teacher",
                "parameters": [
                    {"name": "item", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown group or teacher", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/{item}/page": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Raw export page of a group or teacher",
                "produces": ["text/html"],
                "parameters": [
                    {"name": "item", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Unknown group or teacher", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/{item}/overrides": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Today's substitutions for a group or teacher",
                "description": "Names containing a hyphen are resolved as groups, anything else as teachers.",
                "parameters": [
                    {"name": "item", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown group or teacher", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Bulletin unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/refresh": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Force a rebuild of the timetable archive",
                "parameters": [
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/RefreshScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "Rebuilt synchronously", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Rebuild queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RefreshScheduleRequest": {
            "type": "object",
            "properties": {
                "sync": {"type": "boolean"}
            }
        },
        "CommonLesson": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "teacher": {"type": "string"},
                "group": {"type": "string"},
                "room": {"type": "string"}
            }
        },
        "Subgroup": {
            "type": "object",
            "properties": {
                "teacher": {"type": "string"},
                "room": {"type": "string"},
                "subgroup_index": {"type": "integer"}
            }
        },
        "SubgroupedLesson": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "subgroups": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/Subgroup"}
                }
            }
        },
        "Lesson": {
            "type": "object",
            "properties": {
                "commonLesson": {"$ref": "#/definitions/CommonLesson"},
                "subgroupedLesson": {"$ref": "#/definitions/SubgroupedLesson"}
            }
        },
        "Override": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "shouldBe": {"$ref": "#/definitions/Lesson"},
                "willBe": {"$ref": "#/definitions/Lesson"}
            }
        },
        "BulletinDay": {
            "type": "object",
            "properties": {
                "overrides": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/Override"}
                },
                "weekNum": {"type": "integer"},
                "weekDay": {"type": "integer"},
                "day": {"type": "integer"},
                "month": {"type": "integer"},
                "year": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
