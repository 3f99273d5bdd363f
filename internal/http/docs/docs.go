// Package docs registers the OpenAPI document served by gin-swagger.
// Annotations live on the handlers; regenerate with `swag init`.
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
        "/cases/{id}/assign": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Assignments"
                ],
                "summary": "Assign a lawyer to a case",
                "operationId": "assignCase",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Idempotency key for safe retries",
                        "name": "Idempotency-Key",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "description": "Case ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Priority tier",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.AssignRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.AssignResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Case not found",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Already assigned or closed",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Storage conflict, retry",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ]
            }
        },
        "/cases/{id}/accept": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Lifecycle"
                ],
                "summary": "Accept a pending assignment",
                "operationId": "acceptAssignment",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Acting lawyer ID",
                        "name": "X-Lawyer-ID",
                        "in": "header",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Idempotency key for safe retries",
                        "name": "Idempotency-Key",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "description": "Case ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.AssignmentResponse"
                        }
                    },
                    "400": {
                        "description": "Missing lawyer",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Stale or invalid transition",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Storage conflict, retry",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/cases/{id}/reject": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Lifecycle"
                ],
                "summary": "Reject a pending assignment",
                "operationId": "rejectAssignment",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Acting lawyer ID",
                        "name": "X-Lawyer-ID",
                        "in": "header",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Idempotency key for safe retries",
                        "name": "Idempotency-Key",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "description": "Case ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Rejection reason",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.RejectRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RejectResponse"
                        }
                    },
                    "400": {
                        "description": "Missing lawyer or invalid reason",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Stale or invalid transition",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Storage conflict, retry",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ]
            }
        },
        "/cases/{id}/complete": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Lifecycle"
                ],
                "summary": "Complete an accepted assignment",
                "operationId": "completeAssignment",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Acting lawyer ID",
                        "name": "X-Lawyer-ID",
                        "in": "header",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Idempotency key for safe retries",
                        "name": "Idempotency-Key",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "description": "Case ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.AssignmentResponse"
                        }
                    },
                    "400": {
                        "description": "Missing lawyer",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Stale or invalid transition",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Storage conflict, retry",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/cases/{id}/cancel": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Assignments"
                ],
                "summary": "Withdraw a pending assignment",
                "operationId": "cancelAssignment",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Case ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.AssignmentResponse"
                        }
                    },
                    "409": {
                        "description": "No pending assignment",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Storage conflict, retry",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/cases/{id}/assignments": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Assignments"
                ],
                "summary": "Assignment history of a case",
                "operationId": "listAssignments",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Case ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "minimum": 1,
                        "type": "integer",
                        "default": 1,
                        "description": "Page number",
                        "name": "page",
                        "in": "query"
                    },
                    {
                        "maximum": 100,
                        "minimum": 1,
                        "type": "integer",
                        "default": 20,
                        "description": "Items per page",
                        "name": "page_size",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.ListAssignmentsResponse"
                        }
                    },
                    "404": {
                        "description": "Case not found",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "304": {
                        "description": "Not modified"
                    }
                }
            }
        },
        "/lawyers/candidates": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Lawyers"
                ],
                "summary": "Ranked eligible lawyers",
                "operationId": "listCandidates",
                "parameters": [
                    {
                        "enum": [
                            "baja",
                            "normal",
                            "alta",
                            "urgente"
                        ],
                        "type": "string",
                        "default": "normal",
                        "description": "Priority tier",
                        "name": "priority",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Comma-separated lawyer IDs to leave out",
                        "name": "exclude",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.CandidatesResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid priority",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/stats/assignments": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Stats"
                ],
                "summary": "Assignment statistics",
                "operationId": "assignmentStats",
                "parameters": [],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/services.AssignmentStats"
                        }
                    },
                    "500": {
                        "description": "Internal error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {
                    "type": "string",
                    "example": "123e4567-e89b-12d3-a456-426614174000"
                },
                "code": {
                    "type": "string",
                    "example": "not_found"
                },
                "message": {
                    "type": "string",
                    "example": "resource not found"
                }
            }
        },
        "handlers.AssignRequest": {
            "type": "object",
            "required": [
                "priority"
            ],
            "properties": {
                "priority": {
                    "type": "string",
                    "enum": [
                        "baja",
                        "normal",
                        "alta",
                        "urgente"
                    ],
                    "example": "alta"
                }
            }
        },
        "handlers.AssignResponse": {
            "type": "object",
            "properties": {
                "success": {
                    "type": "boolean"
                },
                "lawyer_id": {
                    "type": "string"
                },
                "assignment_id": {
                    "type": "string"
                },
                "error": {
                    "type": "string",
                    "example": "no_lawyers_available"
                }
            }
        },
        "handlers.RejectRequest": {
            "type": "object",
            "required": [
                "reason"
            ],
            "properties": {
                "reason": {
                    "type": "string",
                    "example": "conflict of interest"
                }
            }
        },
        "handlers.RejectResponse": {
            "type": "object",
            "properties": {
                "success": {
                    "type": "boolean"
                },
                "rejected_assignment_id": {
                    "type": "string"
                },
                "reassigned_to": {
                    "type": "string"
                },
                "assignment_id": {
                    "type": "string"
                },
                "error": {
                    "type": "string"
                }
            }
        },
        "handlers.AssignmentResponse": {
            "type": "object",
            "properties": {
                "success": {
                    "type": "boolean"
                },
                "assignment": {
                    "$ref": "#/definitions/domain.Assignment"
                }
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total": {
                    "type": "integer"
                },
                "total_pages": {
                    "type": "integer"
                },
                "has_next": {
                    "type": "boolean"
                }
            }
        },
        "handlers.ListAssignmentsResponse": {
            "type": "object",
            "properties": {
                "assignments": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/domain.Assignment"
                    }
                },
                "pagination": {
                    "$ref": "#/definitions/handlers.Pagination"
                }
            }
        },
        "handlers.CandidatesResponse": {
            "type": "object",
            "properties": {
                "priority": {
                    "type": "string"
                },
                "candidates": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/services.ScoredLawyer"
                    }
                }
            }
        },
        "services.ScoredLawyer": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "verification_status": {
                    "type": "string"
                },
                "account_status": {
                    "type": "string"
                },
                "max_concurrent_cases": {
                    "type": "integer"
                },
                "active_cases": {
                    "type": "integer"
                },
                "avg_rating": {
                    "type": "number"
                },
                "review_count": {
                    "type": "integer"
                },
                "rating": {
                    "type": "number"
                },
                "score": {
                    "type": "number"
                }
            }
        },
        "services.AssignmentStats": {
            "type": "object",
            "properties": {
                "by_status": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "status": {
                                "type": "string"
                            },
                            "count": {
                                "type": "integer"
                            }
                        }
                    }
                },
                "lawyers": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "lawyer_id": {
                                "type": "string"
                            },
                            "active_cases": {
                                "type": "integer"
                            },
                            "max_concurrent_cases": {
                                "type": "integer"
                            }
                        }
                    }
                }
            }
        },
        "domain.Assignment": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "case_id": {
                    "type": "string"
                },
                "lawyer_id": {
                    "type": "string"
                },
                "priority": {
                    "type": "string",
                    "enum": [
                        "baja",
                        "normal",
                        "alta",
                        "urgente"
                    ]
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "pending",
                        "aceptado",
                        "rechazado",
                        "completado"
                    ]
                },
                "rejection_reason": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "accepted_at": {
                    "type": "string"
                },
                "rejected_at": {
                    "type": "string"
                },
                "completed_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Case Router API",
	Description:      "Assigns consultation cases to verified lawyers and tracks the assignment lifecycle.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
