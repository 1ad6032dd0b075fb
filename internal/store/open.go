package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Options selects and configures a Gateway implementation.
type Options struct {
	Driver string

	MongoURI               string
	MongoDatabase          string
	MongoCollection        string
	ServerSelectionTimeout time.Duration

	SQLitePath string
}

// Open builds the configured Gateway.
//
// For MongoDB the initial connectivity check runs in the background: a
// failure is logged and the gateway is still returned, so requests fail with
// storage errors until the driver reaches a server.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Gateway, error) {
	switch opts.Driver {
	case DriverMongo:
		logger.Info("connecting to MongoDB", slog.String("database", opts.MongoDatabase))
		m, err := ConnectMongo(ctx, opts.MongoURI, opts.MongoDatabase, opts.MongoCollection, opts.ServerSelectionTimeout)
		if err != nil {
			return nil, err
		}
		go func() {
			pingCtx, cancel := context.WithTimeout(context.Background(), opts.ServerSelectionTimeout+time.Second)
			defer cancel()
			if err := m.Ping(pingCtx); err != nil {
				logger.Error("MongoDB connection failed; requests will fail until it is reachable",
					slog.String("error", err.Error()))
				return
			}
			logger.Info("MongoDB connected")
		}()
		return m, nil
	case DriverSQLite:
		s, err := OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("SQLite store opened", slog.String("path", opts.SQLitePath))
		return s, nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", opts.Driver)
	}
}
