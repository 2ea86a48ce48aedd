/*
	Churn-heavy load generator. Overwrites and removes a small key universe
	over and over so the server rolls segments and compacts.
*/

package main

import (
	"flag"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/0xRadioAc7iv/go-kvs/internal"
	"github.com/0xRadioAc7iv/go-kvs/kvs"
)

const (
	concurrency = 6

	// Fixed universe
	totalKeys   = 100
	totalValues = 100

	// Per-cycle behavior
	keysPerCycleWrite  = 20
	keysPerCycleDelete = 10
	cyclesPerWorker    = 5000

	sleepBetweenCycles = 10 * time.Millisecond

	progressEvery = 500
)

var (
	host = flag.String("host", internal.DEFAULT_HOST, "kvs server host")
	port = flag.Int("port", internal.DEFAULT_PORT, "kvs server port")
)

func main() {
	flag.Parse()

	start := time.Now()
	fmt.Printf("Starting churn-heavy load against %s:%d\n", *host, *port)

	keys := makeKeys(totalKeys)
	values := makeValues(totalValues)

	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(id, keys, values)
		}(i)
	}

	wg.Wait()
	fmt.Printf("Load finished in %v\n", time.Since(start))

	report()
}

// report prints how many keys survived and compacts the result.
func report() {
	client, err := kvs.Connect(kvs.WithHost(*host), kvs.WithPort(*port))
	if err != nil {
		fmt.Printf("connect error: %v\n", err)
		return
	}
	defer client.Close()

	n, err := client.Count()
	if err != nil {
		fmt.Printf("count error: %v\n", err)
		return
	}
	fmt.Printf("%d keys live\n", n)

	if err := client.Compact(); err != nil {
		fmt.Printf("compact error: %v\n", err)
	}
}

func runWorker(id int, keys []string, values []string) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	client, err := kvs.Connect(kvs.WithHost(*host), kvs.WithPort(*port))
	if err != nil {
		fmt.Printf("[worker %d] connect error: %v\n", id, err)
		return
	}
	defer client.Close()

	for cycle := 1; cycle <= cyclesPerWorker; cycle++ {

		// ---- WRITE / OVERWRITE PHASE ----
		for i := 0; i < keysPerCycleWrite; i++ {
			key := keys[rng.Intn(len(keys))]
			val := values[rng.Intn(len(values))]

			if err := client.Set(key, val); err != nil {
				fmt.Printf("[worker %d] set error: %v\n", id, err)
				return
			}
		}

		// ---- DELETE PHASE ----
		for i := 0; i < keysPerCycleDelete; i++ {
			key := keys[rng.Intn(len(keys))]

			// another worker may have removed it already
			if err := client.Remove(key); err != nil && !errors.Is(err, kvs.ErrKeyNotFound) {
				fmt.Printf("[worker %d] rm error: %v\n", id, err)
				return
			}
		}

		// ---- REWRITE PHASE (forces overwrite garbage) ----
		for i := 0; i < keysPerCycleWrite/2; i++ {
			key := keys[rng.Intn(len(keys))]
			val := values[rng.Intn(len(values))]

			if err := client.Set(key, val); err != nil {
				fmt.Printf("[worker %d] rewrite error: %v\n", id, err)
				return
			}
		}

		if cycle%progressEvery == 0 {
			fmt.Printf("[worker %d] completed %d cycles\n", id, cycle)
		}

		if sleepBetweenCycles > 0 {
			time.Sleep(sleepBetweenCycles)
		}
	}
}

func makeKeys(n int) []string {
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = fmt.Sprintf("key-%03d", i)
	}
	return keys
}

func makeValues(n int) []string {
	values := make([]string, n)
	for i := 0; i < n; i++ {
		values[i] = fmt.Sprintf("value-%03d-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx", i)
	}
	return values
}
