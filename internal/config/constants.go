package config

// DefaultDatabasePath is the default sqlite file used when DATABASE_PATH is unset.
const DefaultDatabasePath = "./biblioteca.db"
