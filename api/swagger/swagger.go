package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Sports Registration API",
        "description": "Term, sport and student registration with capacity-safe admission.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http"],
    "tags": [
        {"name": "Terms", "description": "Registration periods"},
        {"name": "Sports", "description": "Sports and live availability"},
        {"name": "Students", "description": "Student administration"},
        {"name": "Registrations", "description": "Public registration form"},
        {"name": "System", "description": "Registration window"},
        {"name": "Exports", "description": "Roster downloads"}
    ],
    "paths": {
        "/terms": {
            "get": {"tags": ["Terms"], "summary": "List terms", "responses": {"200": {"$ref": "#/responses/Envelope"}}},
            "post": {
                "tags": ["Terms"], "summary": "Create term",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateTermRequest"}}],
                "responses": {"201": {"$ref": "#/responses/Envelope"}, "409": {"$ref": "#/responses/Error"}}
            }
        },
        "/terms/current": {
            "get": {"tags": ["Terms"], "summary": "Active term", "responses": {"200": {"$ref": "#/responses/Envelope"}, "404": {"$ref": "#/responses/Error"}}}
        },
        "/terms/{id}/activate": {
            "post": {
                "tags": ["Terms"], "summary": "Make a term the only active term",
                "parameters": [{"$ref": "#/parameters/ID"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}, "404": {"$ref": "#/responses/Error"}}
            }
        },
        "/terms/{id}/export": {
            "get": {
                "tags": ["Exports"], "summary": "Download a term roster",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"$ref": "#/parameters/ID"}, {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}],
                "responses": {"200": {"description": "Roster file", "schema": {"type": "file"}}, "400": {"$ref": "#/responses/Error"}}
            }
        },
        "/sports": {
            "get": {
                "tags": ["Sports"], "summary": "List sports with live availability",
                "parameters": [{"in": "query", "name": "term_id", "type": "string"}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            },
            "post": {
                "tags": ["Sports"], "summary": "Create sport",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateSportRequest"}}],
                "responses": {"201": {"$ref": "#/responses/Envelope"}, "409": {"$ref": "#/responses/Error"}}
            }
        },
        "/sports/{id}": {
            "get": {"tags": ["Sports"], "summary": "Get sport", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"$ref": "#/responses/Envelope"}, "404": {"$ref": "#/responses/Error"}}},
            "delete": {"tags": ["Sports"], "summary": "Delete sport", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"204": {"description": "Deleted"}, "404": {"$ref": "#/responses/Error"}}}
        },
        "/sports/{id}/capacity": {
            "put": {
                "tags": ["Sports"], "summary": "Change a sport's capacity",
                "parameters": [{"$ref": "#/parameters/ID"}, {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/UpdateCapacityRequest"}}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}, "400": {"$ref": "#/responses/Error"}, "412": {"$ref": "#/responses/Error"}}
            }
        },
        "/sports/{id}/mark-full": {
            "post": {"tags": ["Sports"], "summary": "Close a sport at its current count", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"$ref": "#/responses/Envelope"}}}
        },
        "/sports/{id}/registrations": {
            "get": {"tags": ["Sports"], "summary": "Students registered for a sport", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"$ref": "#/responses/Envelope"}}}
        },
        "/students": {
            "get": {
                "tags": ["Students"], "summary": "List students",
                "parameters": [
                    {"in": "query", "name": "term_id", "type": "string"},
                    {"in": "query", "name": "year", "type": "string"},
                    {"in": "query", "name": "sport_id", "type": "string"},
                    {"in": "query", "name": "waitlisted", "type": "boolean"}
                ],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/students/waitlist": {
            "get": {"tags": ["Students"], "summary": "Waitlisted students", "parameters": [{"in": "query", "name": "term_id", "type": "string"}], "responses": {"200": {"$ref": "#/responses/Envelope"}}}
        },
        "/students/{id}": {
            "get": {"tags": ["Students"], "summary": "Get student", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"$ref": "#/responses/Envelope"}, "404": {"$ref": "#/responses/Error"}}},
            "delete": {"tags": ["Students"], "summary": "Delete student", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"204": {"description": "Deleted"}, "404": {"$ref": "#/responses/Error"}}}
        },
        "/students/{id}/register": {
            "post": {
                "tags": ["Students"], "summary": "Admit a student to a sport",
                "parameters": [{"$ref": "#/parameters/ID"}, {"in": "body", "name": "payload", "required": true, "schema": {"type": "object", "properties": {"sport_id": {"type": "string"}}}}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}, "404": {"$ref": "#/responses/Error"}, "409": {"$ref": "#/responses/Error"}}
            }
        },
        "/students/{id}/waitlist": {
            "post": {"tags": ["Students"], "summary": "Waitlist a student", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"$ref": "#/responses/Envelope"}, "409": {"$ref": "#/responses/Error"}}}
        },
        "/students/purge/confirmation": {
            "post": {
                "tags": ["Students"], "summary": "Start deleting every student of a term",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"type": "object", "properties": {"term_id": {"type": "string"}}}}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/students/purge": {
            "post": {
                "tags": ["Students"], "summary": "Delete every student of a term",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/PurgeStudentsRequest"}}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}, "403": {"$ref": "#/responses/Error"}, "409": {"$ref": "#/responses/Error"}}
            }
        },
        "/verify-email": {
            "post": {
                "tags": ["Registrations"], "summary": "Check whether an email can still register",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"type": "object", "properties": {"email": {"type": "string"}}}}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}, "409": {"$ref": "#/responses/Error"}}
            }
        },
        "/registrations": {
            "post": {
                "tags": ["Registrations"], "summary": "Register for a sport",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}],
                "responses": {"201": {"$ref": "#/responses/Envelope"}, "403": {"$ref": "#/responses/Error"}, "409": {"$ref": "#/responses/Error"}}
            }
        },
        "/registrations/waitlist": {
            "post": {
                "tags": ["Registrations"], "summary": "Join the waitlist",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/StudentDetails"}}],
                "responses": {"201": {"$ref": "#/responses/Envelope"}, "403": {"$ref": "#/responses/Error"}}
            }
        },
        "/system-status": {
            "get": {"tags": ["System"], "summary": "Registration window status", "responses": {"200": {"$ref": "#/responses/Envelope"}}},
            "put": {
                "tags": ["System"], "summary": "Open, close or schedule registration",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/UpdateSystemStatusRequest"}}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}, "400": {"$ref": "#/responses/Error"}}
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"], "summary": "Queue a roster export",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}],
                "responses": {"202": {"$ref": "#/responses/Envelope"}, "412": {"$ref": "#/responses/Error"}}
            }
        },
        "/exports/{id}": {
            "get": {"tags": ["Exports"], "summary": "Export job status", "parameters": [{"$ref": "#/parameters/ID"}], "responses": {"200": {"$ref": "#/responses/Envelope"}, "404": {"$ref": "#/responses/Error"}}}
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"], "summary": "Download a finished export",
                "parameters": [{"in": "path", "name": "token", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Roster file", "schema": {"type": "file"}}, "403": {"$ref": "#/responses/Error"}}
            }
        },
        "/ws/sports": {
            "get": {
                "tags": ["Sports"], "summary": "Live sport availability over websocket",
                "parameters": [{"in": "query", "name": "term_id", "type": "string"}],
                "responses": {"101": {"description": "Switching protocols"}}
            }
        }
    },
    "parameters": {
        "ID": {"in": "path", "name": "id", "required": true, "type": "string", "format": "uuid"}
    },
    "responses": {
        "Envelope": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
        "Error": {"description": "Error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
    },
    "definitions": {
        "CreateTermRequest": {
            "type": "object",
            "required": ["name", "year"],
            "properties": {"name": {"type": "string"}, "year": {"type": "integer"}, "activate": {"type": "boolean"}}
        },
        "CreateSportRequest": {
            "type": "object",
            "required": ["term_id", "name", "capacity"],
            "properties": {"term_id": {"type": "string"}, "name": {"type": "string"}, "description": {"type": "string"}, "capacity": {"type": "integer", "minimum": 1}}
        },
        "UpdateCapacityRequest": {
            "type": "object",
            "required": ["capacity"],
            "properties": {"capacity": {"type": "integer", "minimum": 1}}
        },
        "StudentDetails": {
            "type": "object",
            "required": ["name", "email", "phone", "year"],
            "properties": {"name": {"type": "string"}, "email": {"type": "string"}, "phone": {"type": "string"}, "year": {"type": "string", "enum": ["7", "8", "9", "10"]}}
        },
        "EnrollRequest": {
            "allOf": [
                {"$ref": "#/definitions/StudentDetails"},
                {"type": "object", "required": ["sport_id"], "properties": {"sport_id": {"type": "string"}}}
            ]
        },
        "PurgeStudentsRequest": {
            "type": "object",
            "required": ["term_id", "token", "code"],
            "properties": {"term_id": {"type": "string"}, "token": {"type": "string"}, "code": {"type": "string"}}
        },
        "UpdateSystemStatusRequest": {
            "type": "object",
            "properties": {"is_open": {"type": "boolean"}, "open_at": {"type": "string", "format": "date-time"}}
        },
        "ExportRequest": {
            "type": "object",
            "required": ["term_id", "format"],
            "properties": {"term_id": {"type": "string"}, "format": {"type": "string", "enum": ["csv", "pdf"]}}
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
