package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/Veraticus/workitem-scout/internal/model"
)

// LoadTeamMapping reads the team verification mapping from a JSON file of the form
//
//	{"mappings": {"<team>": {"area_path": "Proj\\Team", "verified": true}}}
//
// A missing or unreadable file yields an empty mapping. Entries that fail to
// decode are skipped individually so one bad team does not hide the rest.
func LoadTeamMapping(path string) model.TeamMapping {
	mapping := model.TeamMapping{Mappings: map[string]model.TeamMappingEntry{}}
	logger := slog.Default().With("component", "config")

	if path == "" {
		return mapping
	}
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Team mapping file not found; treating as no verified teams", "path", path)
		} else {
			logger.Warn("Failed to read team mapping file", "path", path, "error", err)
		}
		return mapping
	}

	var doc struct {
		Mappings map[string]json.RawMessage `json:"mappings"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn("Malformed team mapping file; treating as no verified teams", "path", path, "error", err)
		return mapping
	}

	for team, raw := range doc.Mappings {
		var entry model.TeamMappingEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			logger.Warn("Skipping malformed team mapping entry", "team", team, "error", err)
			continue
		}
		mapping.Mappings[team] = entry
	}

	logger.Debug("Loaded team mapping",
		"path", path,
		"teams", len(mapping.Mappings),
		"verified", len(mapping.VerifiedTeams()))
	return mapping
}
