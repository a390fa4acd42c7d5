package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cavecraft.ai/internal/persistence/indexdb"
	"cavecraft.ai/internal/sim/service"
)

// openIndex picks the generation index from CC_INDEX_BACKEND: sqlite
// (default), d1 or none.
func openIndex(indexPath string, disableDB bool, logger logrus.FieldLogger) (service.Index, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("CC_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(indexPath)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case "d1":
		endpoint := strings.TrimSpace(os.Getenv("CC_INDEX_D1_INGEST_URL"))
		if endpoint == "" {
			return nil, fmt.Errorf("CC_INDEX_BACKEND=d1 but CC_INDEX_D1_INGEST_URL is empty")
		}
		source := strings.TrimSpace(os.Getenv("CC_INDEX_SOURCE"))
		if source == "" {
			source, _ = os.Hostname()
		}
		idx, err := indexdb.OpenD1(indexdb.D1Config{
			Endpoint:      endpoint,
			Token:         strings.TrimSpace(os.Getenv("CC_INDEX_D1_TOKEN")),
			Source:        source,
			BatchSize:     envInt("CC_INDEX_D1_BATCH_SIZE", 32),
			FlushInterval: time.Duration(envInt("CC_INDEX_D1_FLUSH_MS", 500)) * time.Millisecond,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported CC_INDEX_BACKEND: %s", backend)
	}
}
