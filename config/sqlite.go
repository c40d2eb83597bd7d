package config

type SqliteConfig struct {
	Path string
}

func GetSqliteConfig() *SqliteConfig {
	return &SqliteConfig{
		Path: getEnvOrDefault("SQLITE_PATH", "./data/submissions.db"),
	}
}
