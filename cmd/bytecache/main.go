// Command bytecache is a line-oriented demo client for the in-memory cache.
//
//	$ bytecache -limit 40
//	commands: set <key> <value>, get <key>, del <key>
//
// After every command it prints the total usage and the per-band usage of
// the recency tracker, oldest band first.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/bytecache"
	zaplog "github.com/unkn0wn-root/bytecache/log/zap"
)

func main() {
	limit := flag.Uint64("limit", 40, "cache byte budget")
	verbose := flag.Bool("v", false, "log cache internals")
	flag.Parse()

	opts := bytecache.Options[string, []byte]{
		Limit: *limit,
		Size:  bytecache.BytesSize,
	}
	if *verbose {
		zl, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(os.Stderr, "logger:", err)
			os.Exit(1)
		}
		defer zl.Sync()
		opts.Logger = zaplog.ZapLogger{L: zl}
	}

	cache, err := bytecache.New(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("cache max: %d bytes\n", cache.Limit())
	fmt.Println("commands: set <key> <value>, get <key>, del <key>")
	printState(cache)

	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		cmd, rest, _ := strings.Cut(strings.TrimSpace(in.Text()), " ")
		switch cmd {
		case "set":
			key, value, ok := strings.Cut(rest, " ")
			if !ok {
				fmt.Println("usage: set <key> <value>")
				continue
			}
			if err := cache.Set(key, []byte(value)); err != nil {
				fmt.Println(err)
			}
		case "get":
			if v, ok := cache.Get(rest); ok {
				fmt.Println(string(v))
			} else {
				fmt.Println("not found")
			}
		case "del":
			if !cache.Delete(rest) {
				fmt.Println("not found")
			}
		case "":
		default:
			fmt.Println("unknown command:", cmd)
		}

		printState(cache)
	}
}

func printState(c bytecache.Cache[string, []byte]) {
	bands := c.DetailedUsage()
	usages := make([]uint64, len(bands))
	for i, b := range bands {
		usages[i] = b.Usage
	}
	fmt.Printf("mem usage: %d, buckets: %v\n", c.Usage(), usages)
}
