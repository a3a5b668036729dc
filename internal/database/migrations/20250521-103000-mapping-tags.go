package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250521-103000",
		Description: "add tags, notes and category to url_mappings",
		Statements: []string{
			`ALTER TABLE url_mappings ADD COLUMN tags TEXT`,
			`ALTER TABLE url_mappings ADD COLUMN notes TEXT`,
			`ALTER TABLE url_mappings ADD COLUMN category TEXT`,
			`CREATE INDEX IF NOT EXISTS idx_url_mappings_category ON url_mappings(category)`,
		},
	})
}
