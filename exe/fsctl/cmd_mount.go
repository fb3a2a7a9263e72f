package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/viert/flatfs/common"
	"github.com/viert/flatfs/fusefs"
	"github.com/viert/flatfs/storage"
)

func runMount(filename string, mountPoint string, readOnly bool, g storage.Geometry) {
	if _, err := common.ConfigureLogging("", "info"); err != nil {
		log.Fatalln(err)
	}
	st := openExisting(filename, g)
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := fusefs.Mount(ctx, st, mountPoint, readOnly); err != nil {
		log.Fatalln(err)
	}
}
