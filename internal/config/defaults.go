package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "data/intelhub.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "data/keyword.bleve"
	}
	if cfg.Provider.Kind == "" {
		cfg.Provider.Kind = "openai"
	}
	if cfg.Provider.Dimensions == 0 {
		cfg.Provider.Dimensions = 1536
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = 30
	}
	if cfg.Provider.CacheSize == 0 {
		cfg.Provider.CacheSize = 1024
	}
	if cfg.Search.DefaultThreshold == 0 {
		cfg.Search.DefaultThreshold = 0.7
	}
	if cfg.Search.SemanticWeight == 0 {
		cfg.Search.SemanticWeight = 0.6
	}
	if cfg.Search.KeywordWeight == 0 {
		cfg.Search.KeywordWeight = 0.4
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 50
	}
	if cfg.Batch.ItemDelayMs == 0 {
		cfg.Batch.ItemDelayMs = 100
	}
	if cfg.Batch.PageDelayMs == 0 {
		cfg.Batch.PageDelayMs = 1000
	}
	if cfg.Ingest.DropDir == "" {
		cfg.Ingest.DropDir = "data/inbox"
	}
}
