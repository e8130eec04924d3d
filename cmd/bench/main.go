// Command bench runs a synthetic read/mutate workload against the query
// cache and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	pmet "github.com/avoronkov/querycache/metrics/prom"
	"github.com/avoronkov/querycache/query"
)

func main() {
	// ---- Flags ----
	var (
		staleTime  = flag.Duration("stale", 50*time.Millisecond, "freshness window")
		cacheTime  = flag.Duration("retain", time.Second, "retention after last use")
		maxEntries = flag.Int("max", 0, "idle entry cap (0 = unbounded)")

		workers   = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration  = flag.Duration("duration", 10*time.Second, "benchmark duration")
		mutatePct = flag.Int("mutates", 5, "mutation percentage [0..100]")

		keys    = flag.Int("keys", 100_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		netLat  = flag.Duration("latency", time.Millisecond, "simulated fetch latency")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "querycache", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build cache ----
	c := query.New[string](query.Options[string]{
		DefaultStaleTime: *staleTime,
		DefaultCacheTime: *cacheTime,
		MaxEntries:       *maxEntries,
		Metrics:          metrics,
	})
	defer func() { _ = c.Close() }()

	// ---- Snapshot flags for goroutines ----
	keysMax := uint64(*keys - 1)
	latency := *netLat
	mutates := *mutatePct

	fetch := func(ctx context.Context) (string, error) {
		time.Sleep(latency)
		return "v", nil
	}

	// ---- Load generation ----
	var reads, mutations, total uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var g errgroup.Group
	for w := 0; w < *workers; w++ {
		id := w
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(*seed + int64(id)*9973))
			localZipf := rand.NewZipf(localR, *zipfS, *zipfV, keysMax)

			for ctx.Err() == nil {
				k := query.NewKey(query.S("k"), query.I(int64(localZipf.Uint64())))
				atomic.AddUint64(&total, 1)
				if int(localR.Int31n(100)) < mutates {
					atomic.AddUint64(&mutations, 1)
					_, _ = c.Mutate(context.Background(), k, "w", query.MutateOptions[string]{
						Mutator: func(context.Context, any) (string, error) {
							time.Sleep(latency)
							return "w", nil
						},
						Apply: func(string, any) string { return "w" },
					})
				} else {
					atomic.AddUint64(&reads, 1)
					_, _ = c.Read(context.Background(), k, fetch, query.ReadOptions{})
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	fmt.Printf("workers=%d keys=%d stale=%v retain=%v dur=%v seed=%d\n",
		*workers, *keys, *staleTime, *cacheTime, elapsed, *seed)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  mutations=%d\n",
		ops, float64(ops)/elapsed.Seconds(), atomic.LoadUint64(&reads), atomic.LoadUint64(&mutations))
	fmt.Printf("Len()=%d\n", c.Len())
}
