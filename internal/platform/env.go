package platform

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
)

// LoadEnv loads process configuration the way the node manager's bootstrap
// does: a local override file first, then the base .env, then a
// network-scoped overlay once the network name is known. Missing files are
// not an error — env vars and flags remain the fallback.
func LoadEnv(logger *slog.Logger) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()
}

func LoadEnvForNetwork(logger *slog.Logger, network string) {
	file := fmt.Sprintf(".env.%s", network)
	if err := godotenv.Load(file); err == nil {
		Infof(logger, "loaded network overlay %s", file)
	}
}

func LoadNamedEnvFile(path string) error {
	return godotenv.Load(path)
}
