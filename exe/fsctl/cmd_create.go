package main

import (
	"fmt"
	"log"
	"os"

	"github.com/viert/flatfs/storage"
)

func runCreate(f *os.File, g storage.Geometry) {
	defer f.Close()

	if err := g.Validate(); err != nil {
		os.Remove(f.Name())
		log.Fatalln(err)
	}

	err := storage.Format(f, g)
	if err != nil {
		log.Fatalf("error creating storage: %s", err)
	}

	fi, err := f.Stat()
	if err != nil {
		log.Fatalf("error getting file stat: %s", err)
	}

	fmt.Printf("Storage created.\nFile size:     %d bytes\nBlocks:        %d x %d bytes\nInode slots:   %d\nMax file size: %d bytes\n",
		fi.Size(), g.TotalBlocks, g.BlockSize, g.MaxFiles, g.MaxFileSize())
}
