package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stake-plus/guildmod/src/actions"
	"github.com/stake-plus/guildmod/src/api/webserver"
	sharedconfig "github.com/stake-plus/guildmod/src/config"
	shareddata "github.com/stake-plus/guildmod/src/data"
)

func main() {
	sharedconfig.LoadEnv()

	// Use a single DB connection pool for all modules
	dsn, err := shareddata.GetMySQLDSN()
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	db, err := shareddata.Connect(dsn)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := shareddata.Migrate(db); err != nil {
		log.Fatalf("db: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := actions.NewServices(ctx, db)
	if err != nil {
		log.Fatalf("services: %v", err)
	}
	defer services.Close()

	manager, err := actions.StartAll(ctx, db, services)
	if err != nil {
		log.Fatalf("actions start: %v", err)
	}

	var httpSrv *http.Server
	webCfg := sharedconfig.LoadWebConfig(db)
	if webCfg.Enabled {
		httpSrv = &http.Server{
			Addr:              ":" + webCfg.Port,
			Handler:           webserver.New(ctx, webCfg, services.Store, services.Ledger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("http: %v", err)
			}
		}()
		log.Printf("guildmod: admin API listening on %s", webCfg.Port)
	} else {
		log.Printf("guildmod: admin API disabled via configuration")
	}

	// Wait for termination
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	if httpSrv != nil {
		_ = httpSrv.Shutdown(shutCtx)
	}
	if manager != nil {
		manager.Stop(shutCtx)
	}
	cancel()
}
