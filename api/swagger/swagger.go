package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Class Scheduler API",
        "description": "Generates, reviews and applies weekly class timetables.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Scheduler", "description": "Timetable generation and proposals"},
        {"name": "Health", "description": "Probes"}
    ],
    "paths": {
        "/scheduler/validate": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Validate a scheduling scope",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScopeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown session", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduler/generate": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Generate a schedule proposal",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Pending proposal created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload or time slot configuration", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Blocked by validation", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduler/proposals": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "List proposals of a session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "sessionId", "in": "query", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "approved", "rejected"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduler/proposals/{id}": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Get a proposal",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Scheduler"],
                "summary": "Discard a pending proposal",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Proposal already applied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduler/proposals/{id}/apply": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Apply a pending proposal to the live schedule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Applied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "APPLY_CONFLICT or INVALID_STATE", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduler/proposals/{id}/export": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Download a proposal",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf", "text/calendar"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "ics"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/scheduler/schedules/close": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Close live schedules by batch or session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CloseSchedulesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduler/schedules/status": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Count live schedules per status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "sessionId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Liveness probe with a metrics snapshot",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is down"}
                }
            }
        }
    },
    "definitions": {
        "TimeBlock": {
            "type": "object",
            "properties": {
                "start": {"type": "string", "example": "08:30"},
                "end": {"type": "string", "example": "13:00"}
            }
        },
        "DaySlot": {
            "type": "object",
            "properties": {
                "blocks": {"type": "array", "items": {"$ref": "#/definitions/TimeBlock"}},
                "classTypeConstraint": {"type": "string", "enum": ["theory", "lab"]}
            }
        },
        "ShiftTimeConfig": {
            "type": "object",
            "properties": {
                "defaultBlocks": {"type": "array", "items": {"$ref": "#/definitions/TimeBlock"}},
                "dayOverrides": {"type": "object", "additionalProperties": {"$ref": "#/definitions/DaySlot"}}
            }
        },
        "ScopeRequest": {
            "type": "object",
            "required": ["sessionId", "selectionMode"],
            "properties": {
                "sessionId": {"type": "string"},
                "selectionMode": {"type": "string", "enum": ["all", "department", "single_batch", "multi_batch"]},
                "departmentId": {"type": "string"},
                "batchIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "GenerateScheduleRequest": {
            "type": "object",
            "required": ["sessionId", "selectionMode"],
            "properties": {
                "sessionId": {"type": "string"},
                "selectionMode": {"type": "string", "enum": ["all", "department", "single_batch", "multi_batch"]},
                "departmentId": {"type": "string"},
                "batchIds": {"type": "array", "items": {"type": "string"}},
                "classDurations": {
                    "type": "object",
                    "properties": {
                        "theory": {"type": "integer"},
                        "lab": {"type": "integer"},
                        "project": {"type": "integer"}
                    }
                },
                "offDays": {"type": "array", "items": {"type": "string"}},
                "customTimeSlots": {
                    "type": "object",
                    "properties": {
                        "day": {"$ref": "#/definitions/ShiftTimeConfig"},
                        "evening": {"$ref": "#/definitions/ShiftTimeConfig"}
                    }
                },
                "preferredRooms": {
                    "type": "object",
                    "properties": {
                        "theory": {"type": "string"},
                        "lab": {"type": "string"}
                    }
                },
                "targetShift": {"type": "string", "enum": ["day", "evening"]},
                "groupLabsTogether": {"type": "boolean"}
            }
        },
        "CloseSchedulesRequest": {
            "type": "object",
            "properties": {
                "batchIds": {"type": "array", "items": {"type": "string"}},
                "sessionId": {"type": "string"}
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
