//go:build !sqlite
// +build !sqlite

package storage

import (
	"errors"

	"spisbot/internal/config"
	"spisbot/pkg/logx"
)

func openSQLite(cfg config.StorageConfig, log logx.Logger) (Store, error) {
	_ = cfg
	_ = log
	return nil, errors.New("sqlite storage not built: build with -tags sqlite")
}
