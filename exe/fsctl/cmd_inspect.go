package main

import (
	"fmt"
	"log"
	"os"

	"github.com/viert/flatfs/storage"
)

func openExisting(filename string, g storage.Geometry) *storage.Storage {
	// OpenFile formats missing stores, offline commands must not
	if _, err := os.Stat(filename); err != nil {
		log.Fatalf("error opening storage: %s", err)
	}
	st, err := storage.OpenFile(filename, g)
	if err != nil {
		log.Fatalf("error opening storage: %s", err)
	}
	return st
}

func runList(filename string, g storage.Geometry) {
	st := openExisting(filename, g)
	defer st.Close()

	stats, err := st.Stats()
	if err != nil {
		log.Fatalf("error reading storage: %s", err)
	}
	for _, fi := range stats.Files {
		fmt.Printf("%-11s %6d bytes %3d blocks\n", fi.Name, fi.Size, fi.Blocks)
	}
	fmt.Printf("%d files, %d free slots, %d of %d blocks free\n",
		len(stats.Files), stats.FreeSlots, stats.FreeBlocks, stats.TotalBlocks)
}

func runCat(filename string, name string, g storage.Geometry) {
	st := openExisting(filename, g)
	defer st.Close()

	data, err := st.Read(name)
	if err != nil {
		log.Fatalf("error reading %s: %s", name, err)
	}
	os.Stdout.Write(data)
}

func runCheck(filename string, g storage.Geometry) {
	st := openExisting(filename, g)
	defer st.Close()

	if err := st.Verify(); err != nil {
		log.Fatalf("storage check failed: %s", err)
	}
	fmt.Println("Storage is consistent.")
}
