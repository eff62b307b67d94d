package legacy

import (
	"github.com/xeipuuv/gojsonschema"
)

// JSON schemas of the records written by the legacy JSON-file storage.
// Unknown properties are tolerated; only what the import relies on is constrained.

const userSchema = `{
	"type": "object",
	"properties": {
		"password": {"type": "string"},
		"role":     {"type": "string", "enum": ["student", "admin"]},
		"name":     {"type": "string"},
		"faculty":  {"type": "string"}
	}
}`

const applicationSchema = `{
	"type": "object",
	"required": ["student_email"],
	"properties": {
		"id":               {"type": "string", "minLength": 1},
		"student_email":    {"type": "string", "minLength": 3},
		"student_name":     {"type": "string"},
		"university":       {"type": "string"},
		"type":             {"type": "string"},
		"status":           {"type": "string"},
		"progress":         {"type": "number", "minimum": 0, "maximum": 100},
		"submitted":        {"type": "string"},
		"approved_at":      {"type": ["string", "null"]},
		"approved_by":      {"type": ["string", "null"]},
		"rejected_at":      {"type": ["string", "null"]},
		"rejected_by":      {"type": ["string", "null"]},
		"rejection_reason": {"type": ["string", "null"]},
		"created_at":       {"type": "string"},
		"documents": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["key", "filename"],
				"properties": {
					"key":      {"type": "string", "minLength": 1},
					"label":    {"type": "string"},
					"filename": {"type": "string", "minLength": 1},
					"status":   {"type": "string"}
				}
			}
		},
		"comments": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["text"],
				"properties": {
					"author_email": {"type": "string"},
					"author":       {"type": "string"},
					"text":         {"type": "string", "minLength": 1},
					"created_at":   {"type": "string"}
				}
			}
		}
	}
}`

const messageSchema = `{
	"type": "object",
	"required": ["from_email", "text"],
	"properties": {
		"id":         {"type": "string", "minLength": 1},
		"from_email": {"type": "string", "minLength": 3},
		"from_name":  {"type": "string"},
		"from_role":  {"type": "string", "enum": ["student", "admin"]},
		"to_email":   {"type": ["string", "null"]},
		"to_role":    {"type": "string", "enum": ["student", "admin"]},
		"text":       {"type": "string", "minLength": 1},
		"read":       {"type": "boolean"},
		"created_at": {"type": "string"}
	}
}`

const announcementSchema = `{
	"type": "object",
	"required": ["title", "content"],
	"properties": {
		"id":          {"type": "string", "minLength": 1},
		"title":       {"type": "string", "minLength": 1},
		"content":     {"type": "string", "minLength": 1},
		"priority":    {"type": "string", "enum": ["low", "normal", "high"]},
		"created_by":  {"type": "string"},
		"author_name": {"type": "string"},
		"created_at":  {"type": "string"}
	}
}`

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(err)
	}
	return schema
}

var (
	userRecord         = mustSchema(userSchema)
	applicationRecord  = mustSchema(applicationSchema)
	messageRecord      = mustSchema(messageSchema)
	announcementRecord = mustSchema(announcementSchema)
)
