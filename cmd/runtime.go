package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/clock"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/device"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

// initStorage connects the configured storage backend. PostgreSQL wins over
// MariaDB; without either, profiles and attendance are kept in memory.
func initStorage(ctx context.Context, cfg *config.Config) (io.Closer, error) {
	switch {
	case cfg.Database.URL != "":
		fmt.Printf("Connecting to PostgreSQL database...\n")
		pool, err := postgres.Initialize(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		fmt.Printf("Using PostgreSQL backend\n")
		printIndexStatus()
		return pool, nil

	case cfg.MariaDB.DSN != "":
		fmt.Printf("Connecting to MariaDB database...\n")
		pool, err := mariadb.Initialize(ctx, cfg.MariaDB.DSN, cfg.Database.UseHNSW)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		fmt.Printf("Using MariaDB backend\n")
		printIndexStatus()
		return pool, nil

	default:
		profiles := mock.NewMockProfileStore()
		attendance := mock.NewMockAttendanceLog()
		database.RegisterBackend("memory",
			func() database.ProfileWriter { return profiles },
			func() database.AttendanceWriter { return attendance },
		)
		fmt.Printf("No database configured, profiles are kept in memory\n")
		return io.NopCloser(nil), nil
	}
}

func printIndexStatus() {
	if idx := database.GetIndexRebuilder(); idx != nil {
		fmt.Printf("Profile HNSW index built with %d profiles (in-memory only)\n", idx.Len())
	}
}

// newClient selects the biometric backend: the embedding server when
// configured, the simulated service otherwise.
func newClient(ctx context.Context, cfg *config.Config) (biometric.Client, error) {
	if cfg.Embedding.URL == "" {
		fmt.Printf("No embedding server configured, using simulated recognition\n")
		return biometric.NewSimulated(clock.Real(), uint64(time.Now().UnixNano()), cfg.Session.Departments), nil
	}

	profiles, err := database.GetProfileWriter(ctx)
	if err != nil {
		return nil, fmt.Errorf("embedding recognition needs storage: %w", err)
	}
	fmt.Printf("Using embedding server at %s\n", cfg.Embedding.URL)
	embedder := biometric.NewEmbeddingClient(cfg.Embedding.URL)
	return biometric.NewEmbeddingService(embedder, profiles, cfg.Embedding.DistanceThreshold), nil
}

// newDeps wires storage, the biometric client and the capture device.
// The returned closer releases the storage connection.
func newDeps(ctx context.Context, cfg *config.Config) (handlers.Deps, io.Closer, error) {
	storage, err := initStorage(ctx, cfg)
	if err != nil {
		return handlers.Deps{}, nil, err
	}

	client, err := newClient(ctx, cfg)
	if err != nil {
		storage.Close()
		return handlers.Deps{}, nil, err
	}

	clk := clock.Real()
	devices := device.NewManager(device.NewSynthetic())
	devices.SetNow(clk.Now)

	return handlers.Deps{
		Devices: devices,
		Client:  client,
		Clock:   clk,
	}, storage, nil
}
