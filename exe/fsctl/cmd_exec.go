package main

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/viert/flatfs/client"
)

const dialTimeout = 5 * time.Second

func runExec(addr string, line string) {
	cli, err := client.Dial(addr, dialTimeout)
	if err != nil {
		log.Fatalf("error connecting to %s: %s", addr, err)
	}
	defer cli.Close()

	if strings.HasPrefix(strings.ToUpper(line), "READ ") {
		fields := strings.SplitN(line, " ", 3)
		data, err := cli.Read(fields[1])
		if err != nil {
			log.Fatalf("error: %s", err)
		}
		fmt.Printf("%s\n", data)
		return
	}

	resp, err := cli.Do(line)
	if err != nil {
		log.Fatalf("error talking to %s: %s", addr, err)
	}
	fmt.Println(resp)
}

// runLoad starts clients that each create a file and then repeatedly
// write and read it back, checking the content
func runLoad(addr string, clients int, rounds int) {
	var wg sync.WaitGroup
	var failures int
	var lock sync.Mutex

	fail := func(format string, args ...interface{}) {
		lock.Lock()
		failures++
		lock.Unlock()
		log.Printf(format, args...)
	}

	start := time.Now()
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cli, err := client.Dial(addr, dialTimeout)
			if err != nil {
				fail("client %d: %s", i, err)
				return
			}
			defer cli.Quit()

			name := fmt.Sprintf("load%d", i)
			if err := cli.Create(name); err != nil {
				fail("client %d: create %s: %s", i, name, err)
				return
			}
			for r := 0; r < rounds; r++ {
				content := fmt.Sprintf("client %d round %d", i, r)
				if err := cli.Write(name, []byte(content)); err != nil {
					fail("client %d: write %s: %s", i, name, err)
					return
				}
				data, err := cli.Read(name)
				if err != nil {
					fail("client %d: read %s: %s", i, name, err)
					return
				}
				if string(data) != content {
					fail("client %d: read %q, expected %q", i, data, content)
				}
			}
			if err := cli.Delete(name); err != nil {
				fail("client %d: delete %s: %s", i, name, err)
			}
		}(i)
	}
	wg.Wait()

	fmt.Printf("%d clients, %d rounds each, %d failures in %s\n", clients, rounds, failures, time.Since(start))
	if failures > 0 {
		log.Fatalln("load test failed")
	}
}
