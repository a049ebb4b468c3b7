package scaleway

import "github.com/santhosh-tekuri/jsonschema/v5"

// Each schema lists only the fields snapkeeper reads; anything else the API
// returns is ignored.

var serverListSchema = jsonschema.MustCompileString("servers.json", `{
	"type": "object",
	"required": ["servers"],
	"properties": {
		"servers": {
			"type": "array",
			"items": {"type": "object", "required": ["id", "name"]}
		}
	}
}`)

// The server detail endpoint returns volumes either as a flat "Volumes" array
// or as a map under "server.volumes".
var serverDetailSchema = jsonschema.MustCompileString("server.json", `{
	"type": "object",
	"$defs": {
		"volume": {"type": "object", "required": ["id"]}
	},
	"anyOf": [
		{
			"required": ["Volumes"],
			"properties": {"Volumes": {"type": "array", "items": {"$ref": "#/$defs/volume"}}}
		},
		{
			"required": ["server"],
			"properties": {
				"server": {
					"type": "object",
					"required": ["id", "volumes"],
					"properties": {
						"volumes": {"type": "object", "additionalProperties": {"$ref": "#/$defs/volume"}}
					}
				}
			}
		}
	]
}`)

var instanceSnapshotListSchema = jsonschema.MustCompileString("instance_snapshots.json", `{
	"type": "object",
	"required": ["snapshots"],
	"properties": {
		"snapshots": {
			"type": "array",
			"items": {"type": "object", "required": ["id", "name", "creation_date"]}
		}
	}
}`)

var instanceSnapshotSchema = jsonschema.MustCompileString("instance_snapshot.json", `{
	"type": "object",
	"anyOf": [
		{"required": ["snapshot"], "properties": {"snapshot": {"type": "object", "required": ["id", "name"]}}},
		{"required": ["id", "name"]}
	]
}`)

var blockSnapshotListSchema = jsonschema.MustCompileString("block_snapshots.json", `{
	"type": "object",
	"required": ["snapshots"],
	"properties": {
		"snapshots": {
			"type": "array",
			"items": {"type": "object", "required": ["id", "name", "created_at"]}
		}
	}
}`)

var blockSnapshotSchema = jsonschema.MustCompileString("block_snapshot.json", `{
	"type": "object",
	"anyOf": [
		{"required": ["snapshot"], "properties": {"snapshot": {"type": "object", "required": ["id", "name"]}}},
		{"required": ["id", "name"]}
	]
}`)

var instanceListSchema = jsonschema.MustCompileString("rdb_instances.json", `{
	"type": "object",
	"required": ["instances"],
	"properties": {
		"instances": {
			"type": "array",
			"items": {"type": "object", "required": ["id", "name"]}
		}
	}
}`)

var instanceDetailSchema = jsonschema.MustCompileString("rdb_instance.json", `{
	"type": "object",
	"required": ["id", "status"],
	"properties": {"status": {"type": "string"}}
}`)

var databaseListSchema = jsonschema.MustCompileString("rdb_databases.json", `{
	"type": "object",
	"required": ["databases"],
	"properties": {
		"databases": {
			"type": "array",
			"items": {"type": "object", "required": ["name"]}
		}
	}
}`)

var backupListSchema = jsonschema.MustCompileString("rdb_backups.json", `{
	"type": "object",
	"required": ["database_backups"],
	"properties": {
		"database_backups": {
			"type": "array",
			"items": {"type": "object", "required": ["id", "name", "database_name", "created_at"]}
		}
	}
}`)

var backupSchema = jsonschema.MustCompileString("rdb_backup.json", `{
	"type": "object",
	"anyOf": [
		{"required": ["database_backup"], "properties": {"database_backup": {"type": "object", "required": ["id", "name"]}}},
		{"required": ["id", "name"]}
	]
}`)
