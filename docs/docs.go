// Package docs is generated by swaggo/swag from the handler annotations.
// Regenerate with: swag init -g cmd/api/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Courtside"
        },
        "license": {
            "name": "MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/teams": {
            "get": {
                "description": "Returns all teams ordered by name.",
                "produces": ["application/json"],
                "tags": ["teams"],
                "summary": "List teams",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/store.Team"}}
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {"$ref": "#/definitions/respond.ErrorResponse"}
                    }
                }
            }
        },
        "/teams/{teamID}/players": {
            "get": {
                "description": "Returns players currently assigned to the team. Free agents are never listed.",
                "produces": ["application/json"],
                "tags": ["teams"],
                "summary": "List a team's players",
                "parameters": [
                    {"type": "string", "description": "Team UUID", "name": "teamID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/store.Player"}}
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/respond.ErrorResponse"}
                    }
                }
            }
        },
        "/players/{playerID}/stats": {
            "get": {
                "description": "Returns one stat line per stored game for the player, oldest first. A did-not-play line has null stats.",
                "produces": ["application/json"],
                "tags": ["stats"],
                "summary": "Player game log",
                "parameters": [
                    {"type": "string", "description": "Player UUID", "name": "playerID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/store.StatRow"}}
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/respond.ErrorResponse"}
                    }
                }
            }
        },
        "/games/{gameID}/stats": {
            "get": {
                "description": "Returns every stored stat line for the game.",
                "produces": ["application/json"],
                "tags": ["stats"],
                "summary": "Game box score",
                "parameters": [
                    {"type": "string", "description": "Game UUID", "name": "gameID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/store.StatRow"}}
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/respond.ErrorResponse"}
                    }
                }
            }
        }
    },
    "definitions": {
        "respond.ErrorBody": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "detail": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "respond.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/respond.ErrorBody"}
            }
        },
        "store.Team": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "city": {"type": "string"},
                "source_team_id": {"type": "string"},
                "link": {"type": "string"}
            }
        },
        "store.Player": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "first_name": {"type": "string"},
                "family_name": {"type": "string"},
                "source_id": {"type": "integer"},
                "team_id": {"type": "string"}
            }
        },
        "provider.StatLine": {
            "type": "object",
            "properties": {
                "minutes": {"type": "integer"},
                "field_goals_made": {"type": "integer"},
                "field_goals_attempted": {"type": "integer"},
                "three_pointers_made": {"type": "integer"},
                "three_pointers_attempted": {"type": "integer"},
                "free_throws_made": {"type": "integer"},
                "free_throws_attempted": {"type": "integer"},
                "rebounds": {"type": "integer"},
                "assists": {"type": "integer"},
                "steals": {"type": "integer"},
                "blocks": {"type": "integer"},
                "turnovers": {"type": "integer"},
                "fouls": {"type": "integer"},
                "plus_minus": {"type": "integer"},
                "points": {"type": "integer"}
            }
        },
        "store.StatRow": {
            "type": "object",
            "properties": {
                "player_id": {"type": "string"},
                "player_name": {"type": "string"},
                "game_id": {"type": "string"},
                "game_date": {"type": "string"},
                "stats": {"$ref": "#/definitions/provider.StatLine"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8000",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Courtside Data API",
	Description:      "Read API over scraped NBA teams, rosters, games and per-game player box scores.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
