// Command dbtool provisions and resets the POS database.
//
//	dbtool migrate      create tables and indexes
//	dbtool seed         create tables and load demo data
//	dbtool reset -yes   truncate every table
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"pos-service/config"
	"pos-service/internal/provision"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: dbtool migrate | seed | reset -yes")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg := config.Load()
	if err := util.InitLogger(cfg.Server.Env); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	db, err := store.NewStore(cfg.Database.URL, store.PoolOptions{MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()

	switch os.Args[1] {
	case "migrate":
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("Migration failed", zap.Error(err))
		}
		logger.Info("Schema is up to date")

	case "seed":
		if err := provision.NewSeeder(db).Provision(ctx); err != nil {
			logger.Fatal("Seeding failed", zap.Error(err))
		}

	case "reset":
		fs := flag.NewFlagSet("reset", flag.ExitOnError)
		yes := fs.Bool("yes", false, "confirm that every row will be deleted")
		_ = fs.Parse(os.Args[2:])
		if !*yes {
			fmt.Fprintln(os.Stderr, "reset deletes all data; re-run with -yes")
			os.Exit(1)
		}

		if err := db.Reset(ctx); err != nil {
			logger.Fatal("Reset failed", zap.Error(err))
		}
		counts, err := db.RowCounts(ctx)
		if err != nil {
			logger.Fatal("Failed to count rows", zap.Error(err))
		}
		for _, table := range store.Tables {
			fmt.Printf("%-12s %d\n", table, counts[table])
		}

	default:
		usage()
	}
}
