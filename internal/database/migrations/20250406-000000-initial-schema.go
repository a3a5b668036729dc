package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250406-000000",
		Description: "initial schema: url_configurations and url_mappings",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS url_configurations (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT,
				url TEXT NOT NULL,
				profile_type TEXT NOT NULL DEFAULT 'general',
				category TEXT,
				business_priority INTEGER NOT NULL DEFAULT 5,
				key_data_points TEXT,
				target_data TEXT,
				cost_analysis TEXT,
				metadata TEXT,
				scraping_difficulty TEXT,
				api_pricing TEXT,
				recommendation TEXT,
				rationale TEXT,
				business_value TEXT,
				compliance_notes TEXT,
				has_official_api INTEGER NOT NULL DEFAULT 0,
				is_active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,

			`CREATE TABLE IF NOT EXISTS url_mappings (
				id TEXT PRIMARY KEY,
				url_config_id TEXT NOT NULL,
				url TEXT NOT NULL,
				extractor_ids TEXT NOT NULL,
				rate_limit INTEGER NOT NULL DEFAULT 60,
				priority INTEGER NOT NULL DEFAULT 1,
				crawler_settings TEXT,
				validation_rules TEXT,
				metadata TEXT,
				is_active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				FOREIGN KEY (url_config_id) REFERENCES url_configurations(id) ON DELETE CASCADE
			)`,

			`CREATE INDEX IF NOT EXISTS idx_url_configurations_is_active ON url_configurations(is_active)`,
			`CREATE INDEX IF NOT EXISTS idx_url_configurations_category ON url_configurations(category)`,
			`CREATE INDEX IF NOT EXISTS idx_url_configurations_profile_type ON url_configurations(profile_type)`,
			`CREATE INDEX IF NOT EXISTS idx_url_configurations_priority ON url_configurations(business_priority DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_url_configurations_url ON url_configurations(url)`,

			`CREATE INDEX IF NOT EXISTS idx_url_mappings_config_id ON url_mappings(url_config_id)`,
			`CREATE INDEX IF NOT EXISTS idx_url_mappings_is_active ON url_mappings(is_active)`,
			`CREATE INDEX IF NOT EXISTS idx_url_mappings_url ON url_mappings(url)`,
		},
	})
}
