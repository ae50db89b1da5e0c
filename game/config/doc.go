// Package config loads bus-jam levels from a directory of JSON or YAML files.
//
// A level is addressed by its id, the file name without extension, so
// "levels/rush_hour.yaml" is loaded as "rush_hour". Loaded levels are
// validated with engine.ValidateLevelConfig and cached until RefreshCache.
//
// The default level is "default" when such a file exists, otherwise the first
// valid level by id, otherwise the small built-in level from the engine.
//
// Usage:
//
//	manager, err := config.NewManager("levels")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	level, err := manager.LoadConfig("rush_hour")
//	levels, err := manager.ListConfigs()
package config
