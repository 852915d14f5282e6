// Package docs registers the API description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "RTR Backend",
    "description": "Work-order import reconciliation and permit lifecycle API",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/healthz": {"get": {"tags": ["health"], "summary": "Database health", "responses": {"200": {"description": "ok"}, "503": {"description": "database unavailable"}}}},
    "/api/imports": {"post": {"tags": ["import"], "summary": "Import an RTR workbook", "consumes": ["multipart/form-data"],
      "parameters": [
        {"name": "file", "in": "formData", "type": "file", "required": true},
        {"name": "force", "in": "formData", "type": "boolean"},
        {"name": "X-Actor", "in": "header", "type": "string", "required": true}
      ],
      "responses": {"200": {"description": "import report"}, "400": {"description": "invalid upload"}}}},
    "/api/imports/rows": {"post": {"tags": ["import"], "summary": "Import raw rows", "responses": {"200": {"description": "import report"}}}},
    "/api/sheets/resolve": {"post": {"tags": ["import"], "summary": "Resolve a header row", "responses": {"200": {"description": "resolution"}}}},
    "/api/runs/latest": {"get": {"tags": ["runs"], "summary": "Latest import run", "responses": {"200": {"description": "run"}, "404": {"description": "no runs"}}}},
    "/api/permits": {"post": {"tags": ["permits"], "summary": "Create or update a permit", "responses": {"200": {"description": "permit outcome"}}}},
    "/api/permits/refresh": {"post": {"tags": ["permits"], "summary": "Refresh permit statuses", "responses": {"200": {"description": "refresh summary"}}}},
    "/api/permits/{number}": {"get": {"tags": ["permits"], "summary": "Get a permit by number",
      "parameters": [{"name": "number", "in": "path", "type": "string", "required": true}, {"name": "as_of", "in": "query", "type": "string"}],
      "responses": {"200": {"description": "permit"}, "404": {"description": "not found"}}}},
    "/api/permits/{id}": {"delete": {"tags": ["permits"], "summary": "Soft-delete a permit", "responses": {"200": {"description": "ok"}}}},
    "/api/tickets/{id}": {"delete": {"tags": ["tickets"], "summary": "Soft-delete a ticket", "responses": {"200": {"description": "ok"}}}},
    "/api/tickets/{id}/reevaluate": {"post": {"tags": ["tickets"], "summary": "Re-evaluate a ticket annotation", "responses": {"200": {"description": "annotations"}}}}
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
