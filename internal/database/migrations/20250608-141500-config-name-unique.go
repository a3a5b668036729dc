package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250608-141500",
		Description: "enforce unique url_configuration names",
		Statements: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_url_configurations_name ON url_configurations(name)`,
		},
	})
}
