package cache

import (
	"log/slog"
	"os"
)

// TODO take a config? let it set container or directory?
func MakeCache() (ListCache, error) {
	if _, ok := os.LookupEnv("AZURE_STORAGE_ACCOUNT_NAME"); ok {
		slog.Info("using azure blob storage for cache")
		return NewBlobCache("larder")
	}
	return NewFileCache("cache"), nil
}
