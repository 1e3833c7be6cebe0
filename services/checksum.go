package services

import (
	"github.com/turtlelab/labtrack/integrity"
	"github.com/turtlelab/labtrack/models"
)

// The checksum of a versioned record covers every business field plus the
// version counter, in schema order. An audit entry additionally covers the
// action, the acting user and the timestamp; its external entry id does not
// participate. Log rows cover exactly their business fields.

func recordSerial(schema models.Schema, fields models.Fields, version int) (string, error) {
	values := fields.Clone()
	values["version"] = version
	return integrity.Serialize(append(schema.FieldOrder(), "version"), values)
}

func auditSerial(schema models.Schema, entry *models.AuditEntry) (string, error) {
	values := entry.Fields.Clone()
	values["version"] = entry.Version
	values["action"] = entry.Action
	values["user"] = entry.User
	values["timestamp"] = entry.Timestamp
	order := append(schema.AuditFieldOrder(), "version", "action", "user", "timestamp")
	return integrity.Serialize(order, values)
}

func attributeSerial(idRef int64, name, value string) (string, error) {
	return integrity.Serialize(
		[]string{"id_ref", "name", "value"},
		map[string]any{"id_ref": idRef, "name": name, "value": value})
}

func logSerial(schema models.Schema, fields models.Fields) (string, error) {
	return integrity.Serialize(schema.FieldOrder(), fields)
}
