// Command kvsbench exercises the engine under load and checks the
// invariants spec.md §8 names (last-writer-wins, persistence, independent
// keys) against a real temp directory. It is not part of the library's test
// suite — it is a standalone harness for poking at performance and offset
// bookkeeping by hand, in the tradition of the teacher's own tests/test.go.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/lukeojones/kvs/internal/config"
	"github.com/lukeojones/kvs/internal/engine"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "write":
		benchWrite()
	case "overlapping":
		testOverlappingKey()
	case "integrity":
		testIntegrity()
	case "restart":
		testCrossGenerationRestart()
	default:
		fmt.Printf("Unknown test: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: go run ./cmd/kvsbench <test-name>")
	fmt.Println("\nAvailable tests:")
	fmt.Println("  write       - write many unique keys and measure throughput")
	fmt.Println("  overlapping - overwrite the same key and confirm last-writer-wins")
	fmt.Println("  integrity   - write many keys, randomly read a sample back")
	fmt.Println("  restart     - reopen the store across generations and confirm persistence")
}

func openBench(dir string) *engine.Store {
	st, err := engine.Open(dir, config.Default())
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	return st
}

func benchWrite() {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Write throughput")
	fmt.Println(strings.Repeat("=", 60))

	dir, err := os.MkdirTemp("", "kvsbench-write")
	if err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	st := openBench(dir)
	defer st.Close()

	const totalKeys = 100_000
	start := time.Now()
	for i := 0; i < totalKeys; i++ {
		key := fmt.Sprintf("key_%d", i)
		value := fmt.Sprintf("value_%d", i)
		if err := st.Set(key, value); err != nil {
			log.Fatalf("set %s: %v", key, err)
		}
		if (i+1)%10000 == 0 {
			elapsed := time.Since(start)
			fmt.Printf("progress: %d/%d (%.0f keys/sec)\n", i+1, totalKeys, float64(i+1)/elapsed.Seconds())
		}
	}

	elapsed := time.Since(start)
	fmt.Printf("\ntotal time: %v (%.0f keys/sec)\n", elapsed, float64(totalKeys)/elapsed.Seconds())
	fmt.Printf("keys in index: %d\n", st.Len())
}

func testOverlappingKey() {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Overlapping key: last-writer-wins")
	fmt.Println(strings.Repeat("=", 60))

	dir, err := os.MkdirTemp("", "kvsbench-overlap")
	if err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	st := openBench(dir)
	defer st.Close()

	if err := st.Set("k", "value_A"); err != nil {
		log.Fatalf("set value_A: %v", err)
	}
	if err := st.Set("k", "value_B"); err != nil {
		log.Fatalf("set value_B: %v", err)
	}

	got, err := st.Get("k")
	if err != nil {
		log.Fatalf("get k: %v", err)
	}
	if got != "value_B" {
		fmt.Printf("FAILED: expected value_B, got %q\n", got)
		os.Exit(1)
	}
	if st.Len() != 1 {
		fmt.Printf("FAILED: expected 1 live key, got %d\n", st.Len())
		os.Exit(1)
	}

	fmt.Println("PASSED: latest value returned, index holds exactly one entry")
}

func testIntegrity() {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Integrity: write many, sample-read back")
	fmt.Println(strings.Repeat("=", 60))

	dir, err := os.MkdirTemp("", "kvsbench-integrity")
	if err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	st := openBench(dir)
	defer st.Close()

	const totalKeys = 20_000
	for i := 0; i < totalKeys; i++ {
		key := fmt.Sprintf("key_%d", i)
		value := fmt.Sprintf("value_%d", i)
		if err := st.Set(key, value); err != nil {
			log.Fatalf("set %s: %v", key, err)
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	errCount := 0
	const samples = 500
	for i := 0; i < samples; i++ {
		idx := rng.Intn(totalKeys)
		key := fmt.Sprintf("key_%d", idx)
		want := fmt.Sprintf("value_%d", idx)

		got, err := st.Get(key)
		if err != nil {
			errCount++
			fmt.Printf("ERROR: get %s: %v\n", key, err)
			continue
		}
		if got != want {
			errCount++
			fmt.Printf("ERROR: %s: want %q, got %q\n", key, want, got)
		}
	}

	if errCount > 0 {
		fmt.Printf("\nFAILED: %d errors out of %d samples\n", errCount, samples)
		os.Exit(1)
	}
	fmt.Printf("\nPASSED: all %d sampled reads matched\n", samples)
}

func testCrossGenerationRestart() {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Restart: persistence across generations")
	fmt.Println(strings.Repeat("=", 60))

	dir, err := os.MkdirTemp("", "kvsbench-restart")
	if err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	first := openBench(dir)
	if err := first.Set("k", "v1"); err != nil {
		log.Fatalf("set v1: %v", err)
	}
	if err := first.Close(); err != nil {
		log.Fatalf("close: %v", err)
	}

	second := openBench(dir)
	if err := second.Set("k", "v2"); err != nil {
		log.Fatalf("set v2: %v", err)
	}
	if err := second.Close(); err != nil {
		log.Fatalf("close: %v", err)
	}

	third := openBench(dir)
	defer third.Close()
	got, err := third.Get("k")
	if err != nil {
		log.Fatalf("get k: %v", err)
	}
	if got != "v2" {
		fmt.Printf("FAILED: expected v2, got %q\n", got)
		os.Exit(1)
	}

	fmt.Println("PASSED: value from the second generation survived a third open")
}
