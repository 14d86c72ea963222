// Package docs registers the OpenAPI description served under /swagger/.
// Keep it in step with the routes in internal/platform/httpserver.
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
        "/v1/tournaments": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tournaments"],
                "summary": "List tournaments",
                "parameters": [
                    {"type": "string", "name": "region", "in": "query"},
                    {"type": "string", "name": "state", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tournaments"],
                "summary": "Create a tournament",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTournamentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/tournaments/{tournament_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tournaments"],
                "summary": "Tournament state",
                "parameters": [
                    {"type": "string", "name": "tournament_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/tournaments/{tournament_id}/registration/open": {
            "post": {"tags": ["tournaments"], "summary": "Open registration", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/tournaments/{tournament_id}/competitors": {
            "post": {"tags": ["tournaments"], "summary": "Register a competitor", "responses": {"201": {"description": "Created"}}}
        },
        "/v1/tournaments/{tournament_id}/judges": {
            "post": {"tags": ["tournaments"], "summary": "Add a judge", "responses": {"201": {"description": "Created"}}}
        },
        "/v1/tournaments/{tournament_id}/qualifying/start": {
            "post": {"tags": ["qualifying"], "summary": "Start qualifying", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/tournaments/{tournament_id}/qualifying/advance": {
            "post": {"tags": ["qualifying"], "summary": "Move to the next unscored lap", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/tournaments/{tournament_id}/qualifying/end": {
            "post": {"tags": ["qualifying"], "summary": "Rank qualifiers and build the bracket", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/tournaments/{tournament_id}/laps/{lap_id}/scores": {
            "put": {"tags": ["qualifying"], "summary": "Submit a judge's lap score", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/tournaments/{tournament_id}/laps/{lap_id}/penalty": {
            "put": {"tags": ["qualifying"], "summary": "Set a lap penalty", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/tournaments/{tournament_id}/battles/{battle_id}/votes": {
            "put": {"tags": ["battles"], "summary": "Submit a judge's battle vote", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/tournaments/{tournament_id}/battles/advance": {
            "post": {
                "tags": ["battles"],
                "summary": "Resolve the current battle and advance",
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/tournaments/{tournament_id}/battles/next": {
            "post": {"tags": ["battles"], "summary": "Override the next battle", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/tournaments/{tournament_id}/wildcard": {
            "post": {"tags": ["battles"], "summary": "Assign the wildcard slot", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/ratings/{region}": {
            "get": {
                "tags": ["ratings"],
                "summary": "Region leaderboard",
                "parameters": [
                    {"type": "string", "name": "region", "in": "path", "required": true},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/ratings/{region}/batch": {
            "post": {
                "tags": ["ratings"],
                "summary": "Recompute the region's ratings",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/ratings/{region}/drivers/{driver_id}/history": {
            "get": {"tags": ["ratings"], "summary": "Driver rating history", "responses": {"200": {"description": "OK"}}}
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "CreateTournamentRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "region": {"type": "string"},
                "format": {"type": "string", "enum": ["STANDARD", "DOUBLE_ELIMINATION", "WILDCARD", "DRIFT_WARS"]},
                "qualifying_laps": {"type": "integer"},
                "score_formula": {"type": "string"},
                "bracket_size": {"type": "integer"},
                "full_inclusion": {"type": "boolean"},
                "is_final": {"type": "boolean"},
                "numbering": {"type": "string"}
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
	Title:            "tandem API",
	Description:      "Drift tournament orchestration and regional ratings.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
