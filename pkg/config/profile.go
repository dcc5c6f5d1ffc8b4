package config

import (
	"sort"
	"strings"
)

// Profile presets the per-deployment knobs of the init hook.
type Profile struct {
	Name                   string
	TargetDB               string
	SuppressDuplicateError bool
	SuccessMessage         string
	// CompletionMessage is worded for MongoDB; see Completion.
	CompletionMessage string
}

// Completion returns the completion message naming engine instead of MongoDB.
func (p Profile) Completion(engine Engine) string {
	return strings.Replace(p.CompletionMessage, EngineMongo.DisplayName(), engine.DisplayName(), 1)
}

const DefaultProfile = "inbox"

var Profiles = map[string]Profile{
	"inbox": {
		Name:                   "inbox",
		TargetDB:               "inbox_connector_db",
		SuppressDuplicateError: true,
		SuccessMessage:         "Application user created successfully",
		CompletionMessage:      "MongoDB initialization completed",
	},
	"m365": {
		Name:                   "m365",
		TargetDB:               "m365_connector",
		SuppressDuplicateError: false,
		SuccessMessage:         "Application user created successfully",
		CompletionMessage:      "MongoDB initialization complete!",
	},
}

// ProfileNames returns the known profile names in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(Profiles))
	for name := range Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
