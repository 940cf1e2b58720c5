package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SmartAttend API",
        "description": "QR based classroom attendance backend",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Signup and login"},
        {"name": "Classes", "description": "Class management and enrollment"},
        {"name": "Sessions", "description": "Session scheduling and QR codes"},
        {"name": "Attendance", "description": "QR scans and attendance reports"},
        {"name": "Admin", "description": "User management, dashboards and exports"}
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
        "/auth/signup": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a student account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/AuthResponse"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ErrorMessage"}},
                    "409": {"description": "Duplicate email or roll number", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/AuthResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List the teacher's classes with rosters",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Classes"],
                "summary": "Create a class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateClassRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Code already taken", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/classes/join": {
            "post": {
                "tags": ["Classes"],
                "summary": "Join a class by its code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/JoinClassRequest"}}
                ],
                "responses": {
                    "200": {"description": "Joined or already enrolled"},
                    "404": {"description": "Unknown code", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/classes/enrolled": {
            "get": {
                "tags": ["Classes"],
                "summary": "List the student's classes",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/classes/sessions": {
            "get": {
                "tags": ["Classes"],
                "summary": "Student session overview for the coming week",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/classes/today": {
            "get": {
                "tags": ["Classes"],
                "summary": "Today's sessions across the student's classes",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/classes/upcoming": {
            "get": {
                "tags": ["Classes"],
                "summary": "Upcoming sessions scoped to the caller's role",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/classes/{id}/sessions": {
            "get": {
                "tags": ["Classes"],
                "summary": "Sessions of one class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Not enrolled", "schema": {"$ref": "#/definitions/ErrorMessage"}},
                    "404": {"description": "Class not found", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/classes/{id}/register": {
            "get": {
                "tags": ["Classes"],
                "summary": "Per-student attendance register for one class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Not the owner", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List the teacher's sessions, newest first",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Schedule a session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "End not after start", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/sessions/today": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Today's sessions with attendee counts",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/sessions/active-qr": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Ongoing sessions with a live QR code",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get one session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            },
            "delete": {
                "tags": ["Sessions"],
                "summary": "Delete a session and its QR codes and marks",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/sessions/{id}/attendance": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Roster-wide attendance report for one session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Not the owner", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/sessions/{id}/generate-qr": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Issue a fresh QR token, replacing any active one",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/GenerateQRRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Session not ongoing", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/sessions/{id}/end-qr": {
            "put": {
                "tags": ["Sessions"],
                "summary": "Deactivate all QR codes of a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Deactivated"}
                }
            }
        },
        "/attendance/mark": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Redeem a scanned QR token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MarkAttendanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "Marked or already marked"},
                    "400": {"description": "Inactive or expired token", "schema": {"$ref": "#/definitions/ErrorMessage"}},
                    "403": {"description": "Not enrolled", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/attendance/report": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Flat mark feed across the teacher's classes",
                "parameters": [
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "startDate", "in": "query", "type": "string"},
                    {"name": "endDate", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/attendance/today": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Marks recorded today across the teacher's classes",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/attendance/student": {
            "get": {
                "tags": ["Attendance"],
                "summary": "The student's own attendance history",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/reports/class/{classId}": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Flat mark feed for one owned class",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Not the owner", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/admin/users": {
            "get": {
                "tags": ["Admin"],
                "summary": "List users",
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Admin"],
                "summary": "Create a user with any role",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateUserRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Duplicate email or roll number", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/admin/users/{id}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Get a user",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            },
            "put": {
                "tags": ["Admin"],
                "summary": "Update a user",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateUserRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Role change not allowed", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            },
            "delete": {
                "tags": ["Admin"],
                "summary": "Delete a user",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Deleted"},
                    "400": {"description": "Cannot delete own account", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/admin/stats": {
            "get": {
                "tags": ["Admin"],
                "summary": "Dashboard rollup",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/departments": {
            "get": {
                "tags": ["Admin"],
                "summary": "Per-department stats",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/classes": {
            "get": {
                "tags": ["Admin"],
                "summary": "All classes with teacher and size details",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/reports": {
            "get": {
                "tags": ["Admin"],
                "summary": "Unscoped attendance records feed",
                "parameters": [
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "startDate", "in": "query", "type": "string"},
                    {"name": "endDate", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/recent-activity": {
            "get": {
                "tags": ["Admin"],
                "summary": "Latest marks across the system",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/reports/class-wise": {
            "get": {
                "tags": ["Admin"],
                "summary": "Class-wise attendance report",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/reports/students-attendance": {
            "get": {
                "tags": ["Admin"],
                "summary": "Per-student attendance report",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/reports/teachers": {
            "get": {
                "tags": ["Admin"],
                "summary": "Per-teacher workload report",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/attendance/clear": {
            "delete": {
                "tags": ["Admin"],
                "summary": "Wipe all attendance records",
                "responses": {
                    "200": {"description": "Cleared"}
                }
            }
        },
        "/admin/seed": {
            "post": {
                "tags": ["Admin"],
                "summary": "Seed demo accounts and a sample class",
                "responses": {
                    "200": {"description": "Seeded or already seeded"}
                }
            }
        },
        "/admin/system-metrics": {
            "get": {
                "tags": ["Admin"],
                "summary": "Runtime metrics snapshot",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/exports": {
            "post": {
                "tags": ["Admin"],
                "summary": "Queue a CSV or PDF report export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued"},
                    "400": {"description": "Unknown type or format", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/admin/exports/{id}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Export job status with signed download link when finished",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Download a rendered export via its signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "401": {"description": "Bad or expired token", "schema": {"$ref": "#/definitions/ErrorMessage"}}
                }
            }
        }
    },
    "definitions": {
        "SignupRequest": {
            "type": "object",
            "required": ["name", "email", "password", "student_id"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "student_id": {"type": "string", "example": "2023UCP1665"},
                "department": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "AuthResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "role": {"type": "string"},
                "name": {"type": "string"},
                "student_id": {"type": "string"}
            }
        },
        "CreateClassRequest": {
            "type": "object",
            "required": ["name", "code"],
            "properties": {
                "name": {"type": "string"},
                "code": {"type": "string", "example": "CSE101"},
                "department": {"type": "string"}
            }
        },
        "JoinClassRequest": {
            "type": "object",
            "required": ["code"],
            "properties": {
                "code": {"type": "string"}
            }
        },
        "CreateSessionRequest": {
            "type": "object",
            "required": ["class_id", "scheduled_start", "scheduled_end"],
            "properties": {
                "class_id": {"type": "string"},
                "title": {"type": "string"},
                "scheduled_start": {"type": "string", "format": "date-time"},
                "scheduled_end": {"type": "string", "format": "date-time"}
            }
        },
        "GenerateQRRequest": {
            "type": "object",
            "properties": {
                "duration_minutes": {"type": "integer"}
            }
        },
        "MarkAttendanceRequest": {
            "type": "object",
            "required": ["token"],
            "properties": {
                "token": {"type": "string"}
            }
        },
        "CreateUserRequest": {
            "type": "object",
            "required": ["name", "email", "password", "role"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["student", "teacher", "admin"]},
                "student_id": {"type": "string"},
                "department": {"type": "string"}
            }
        },
        "UpdateUserRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string"},
                "student_id": {"type": "string"},
                "department": {"type": "string"}
            }
        },
        "CreateExportRequest": {
            "type": "object",
            "required": ["type", "format"],
            "properties": {
                "type": {"type": "string", "enum": ["class-wise", "students", "teachers"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "ErrorMessage": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
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
