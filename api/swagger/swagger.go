package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Canvas Alt Text API",
        "description": "Scans LMS course content for images, captions them and writes reviewed alt text back.",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "AltText", "description": "Course scan and alt text review"}
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
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/api/v1/alt-text/courses/{courseId}/scan": {
            "post": {
                "tags": ["AltText"],
                "summary": "Trigger a course content scan",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "202": {"description": "Scan queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid course id", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["AltText"],
                "summary": "Get scan status with per-type content summaries",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/alt-text/courses/{courseId}/content-images": {
            "get": {
                "tags": ["AltText"],
                "summary": "List tracked content with images for review",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "integer"},
                    {"name": "content_type", "in": "query", "required": true, "type": "string", "enum": ["assignment", "page", "quiz", "quiz_question"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid content type", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["AltText"],
                "summary": "Apply reviewed alt text back to course content",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSubmission"}}
                ],
                "responses": {
                    "200": {"description": "All approved images updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Partial failure with annotated report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "ImagePayload": {
            "type": "object",
            "required": ["image_url", "image_id", "action"],
            "properties": {
                "image_url": {"type": "string"},
                "image_id": {"type": "integer"},
                "action": {"type": "string", "enum": ["approve", "skip"]},
                "approved_alt_text": {"type": "string", "maxLength": 2000},
                "image_url_for_update": {"type": "string"},
                "is_alt_text_updated": {"type": "boolean"},
                "alt_text_failed_error_message": {"type": "string"}
            }
        },
        "ContentPayload": {
            "type": "object",
            "required": ["content_id", "content_type", "images"],
            "properties": {
                "content_id": {"type": "integer"},
                "content_name": {"type": "string"},
                "content_parent_id": {"type": "integer"},
                "content_type": {"type": "string", "enum": ["assignment", "page", "quiz", "quiz_question"]},
                "images": {"type": "array", "items": {"$ref": "#/definitions/ImagePayload"}}
            }
        },
        "UpdateSubmission": {
            "type": "object",
            "required": ["content_items"],
            "properties": {
                "content_items": {"type": "array", "items": {"$ref": "#/definitions/ContentPayload"}}
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
