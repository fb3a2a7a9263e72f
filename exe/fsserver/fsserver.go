package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viert/flatfs/common"
	"github.com/viert/flatfs/config"
	"github.com/viert/flatfs/server"
	"github.com/viert/flatfs/storage"
	"github.com/viert/flatfs/web"
)

const (
	defaultConfigFilename = "/etc/fsserver.cfg"
)

func main() {
	var configFilename string
	flag.StringVar(&configFilename, "c", "", "configuration filename")
	flag.Parse()

	if configFilename == "" {
		configFilename = defaultConfigFilename
	}

	f, err := os.Open(configFilename)
	if err != nil {
		log.Fatalf("can not open config file %s: %s", configFilename, err)
	}
	cfg, err := config.ReadServerConfig(f)
	f.Close()
	if err != nil {
		log.Fatalf("error reading config: %s", err)
	}

	lf, err := common.ConfigureLogging(cfg.LogFileName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("error opening logfile: %s", err)
	}
	if lf != nil {
		defer lf.Close()
	}

	st, err := storage.OpenFile(cfg.StorageFileName, cfg.Geometry)
	if err != nil {
		log.Fatalf("error opening storage: %s", err)
	}
	defer st.Close()

	srv := server.NewServer(st, cfg)
	if err := srv.Start(); err != nil {
		log.Fatalf("error starting server: %s", err)
	}
	defer srv.Stop()

	if cfg.HTTPBind != "" {
		hs, err := web.NewServer(st, cfg.HTTPBind).Start()
		if err != nil {
			log.Fatalf("error starting http server: %s", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			hs.Shutdown(ctx)
		}()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Reset()

	<-sigs
}
