package env

const (
	// Prefix is the environment variable prefix for all flags
	Prefix = "FXCONVERT"

	// DBURLSuffix is the suffix of the database DSN variable
	DBURLSuffix = "_DB_URL"
)
