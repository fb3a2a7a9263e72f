package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"

	"github.com/viert/flatfs/storage"
)

func geometryOptions(cmd *argparse.Command) (*int, *int, *int) {
	blocks := cmd.Int("b", "blocks",
		&argparse.Options{Default: storage.DefaultTotalBlocks, Help: "total number of blocks, including the metadata block"})
	blockSize := cmd.Int("s", "block-size",
		&argparse.Options{Default: storage.DefaultBlockSize, Help: "size of a single block in bytes"})
	maxFiles := cmd.Int("i", "max-files",
		&argparse.Options{Default: storage.DefaultMaxFiles, Help: "number of inode slots"})
	return blocks, blockSize, maxFiles
}

func geometry(blocks, blockSize, maxFiles *int) storage.Geometry {
	return storage.Geometry{BlockSize: *blockSize, TotalBlocks: *blocks, MaxFiles: *maxFiles}
}

func main() {
	parser := argparse.NewParser("fsctl", "a tool for manipulating flatfs storage files")

	createCmd := parser.NewCommand("create", "creates a new flatfs storage file")
	createFile := createCmd.File("f", "file", os.O_CREATE|os.O_RDWR|os.O_EXCL, 0644,
		&argparse.Options{Required: true, Help: "filename to create"})
	createB, createS, createN := geometryOptions(createCmd)

	lsCmd := parser.NewCommand("ls", "lists files of a storage file")
	lsFile := lsCmd.String("f", "file", &argparse.Options{Required: true, Help: "storage filename"})
	lsB, lsS, lsN := geometryOptions(lsCmd)

	catCmd := parser.NewCommand("cat", "prints a file from a storage file")
	catFile := catCmd.String("f", "file", &argparse.Options{Required: true, Help: "storage filename"})
	catName := catCmd.String("n", "name", &argparse.Options{Required: true, Help: "name of the file to print"})
	catB, catS, catN := geometryOptions(catCmd)

	checkCmd := parser.NewCommand("check", "verifies block chains and the free block map")
	checkFile := checkCmd.String("f", "file", &argparse.Options{Required: true, Help: "storage filename"})
	checkB, checkS, checkN := geometryOptions(checkCmd)

	execCmd := parser.NewCommand("exec", "sends a single command to a flatfs server")
	execAddr := execCmd.String("a", "addr", &argparse.Options{Default: "127.0.0.1:12345", Help: "server address"})
	execLine := execCmd.String("e", "command", &argparse.Options{Required: true, Help: "command line, e.g. \"LIST\""})

	loadCmd := parser.NewCommand("load", "runs concurrent clients against a flatfs server")
	loadAddr := loadCmd.String("a", "addr", &argparse.Options{Default: "127.0.0.1:12345", Help: "server address"})
	loadClients := loadCmd.Int("c", "clients", &argparse.Options{Default: 5, Help: "number of concurrent clients"})
	loadRounds := loadCmd.Int("r", "rounds", &argparse.Options{Default: 10, Help: "write/read rounds per client"})

	mountCmd := parser.NewCommand("mount", "mounts a storage file through FUSE")
	mountFile := mountCmd.String("f", "file", &argparse.Options{Required: true, Help: "storage filename"})
	mountPoint := mountCmd.String("m", "mountpoint", &argparse.Options{Required: true, Help: "directory to mount at"})
	mountRO := mountCmd.Flag("r", "readonly", &argparse.Options{Help: "mount read-only"})
	mountB, mountS, mountN := geometryOptions(mountCmd)

	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	switch {
	case createCmd.Happened():
		runCreate(createFile, geometry(createB, createS, createN))
	case lsCmd.Happened():
		runList(*lsFile, geometry(lsB, lsS, lsN))
	case catCmd.Happened():
		runCat(*catFile, *catName, geometry(catB, catS, catN))
	case checkCmd.Happened():
		runCheck(*checkFile, geometry(checkB, checkS, checkN))
	case execCmd.Happened():
		runExec(*execAddr, *execLine)
	case loadCmd.Happened():
		runLoad(*loadAddr, *loadClients, *loadRounds)
	case mountCmd.Happened():
		runMount(*mountFile, *mountPoint, *mountRO, geometry(mountB, mountS, mountN))
	}
}
