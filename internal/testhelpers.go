package internal

// CreateTestCommit creates a Commit with a fixed author and date
func CreateTestCommit(hash, message string, paths ...string) *Commit {
	return &Commit{
		Hash:    hash,
		Message: message,
		Author:  "Alice",
		Date:    "Tue Jan 2 15:04:05 2024 +0000",
		Paths:   paths,
	}
}

// CreateTestConfig creates a validated Config for the two directories with
// default policies
func CreateTestConfig(sourceDir, newDir string) *Config {
	cfg := DefaultConfig()
	cfg.SourceDir = sourceDir
	cfg.NewDir = newDir
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}
