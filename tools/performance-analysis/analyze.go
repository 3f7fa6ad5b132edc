// analyze repeatedly scrapes a running hpilo-exporter and reports poll
// health: whether hpilo_up held at 1, how long cycles take, and how many
// series each scrape carried. Useful when tuning refresh_interval against a
// slow iLO channel.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/prometheus/common/expfmt"
)

type scrapeResult struct {
	duration      time.Duration
	seriesCount   int
	up            float64
	cycleDuration float64
	err           error
}

func main() {
	var (
		endpoint = flag.String("endpoint", "http://localhost:9416/metrics", "hpilo-exporter metrics endpoint")
		runs     = flag.Int("runs", 5, "Number of scrapes")
		interval = flag.Duration("interval", 2*time.Second, "Pause between scrapes")
	)
	flag.Parse()

	results := make([]scrapeResult, 0, *runs)
	for i := 0; i < *runs; i++ {
		if i > 0 {
			time.Sleep(*interval)
		}
		r := scrape(*endpoint)
		results = append(results, r)
		if r.err != nil {
			fmt.Printf("run %d: %v\n", i+1, r.err)
			continue
		}
		fmt.Printf("run %d: %s, %d series, hpilo_up=%.0f, last cycle %.2fs\n",
			i+1, r.duration.Round(time.Millisecond), r.seriesCount, r.up, r.cycleDuration)
	}

	report(results)
}

func scrape(endpoint string) scrapeResult {
	start := time.Now()
	resp, err := http.Get(endpoint)
	if err != nil {
		return scrapeResult{err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return scrapeResult{err: fmt.Errorf("scrape returned %s", resp.Status)}
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return scrapeResult{err: fmt.Errorf("parsing metrics: %w", err)}
	}

	r := scrapeResult{duration: time.Since(start), up: -1}
	for name, family := range families {
		r.seriesCount += len(family.GetMetric())
		switch name {
		case "hpilo_up":
			r.up = family.GetMetric()[0].GetGauge().GetValue()
		case "hpilo_exporter_collector_duration_seconds":
			r.cycleDuration = family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return r
}

func report(results []scrapeResult) {
	var ok []scrapeResult
	upHeld := true
	for _, r := range results {
		if r.err != nil {
			continue
		}
		ok = append(ok, r)
		if r.up != 1 {
			upHeld = false
		}
	}
	if len(ok) == 0 {
		fmt.Println("\nno successful scrapes")
		os.Exit(1)
	}

	durations := make([]time.Duration, len(ok))
	for i, r := range ok {
		durations[i] = r.duration
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	var total time.Duration
	for _, d := range durations {
		total += d
	}

	fmt.Printf("\n%d/%d scrapes succeeded\n", len(ok), len(results))
	fmt.Printf("scrape latency: min %s  median %s  max %s  mean %s\n",
		durations[0].Round(time.Millisecond),
		durations[len(durations)/2].Round(time.Millisecond),
		durations[len(durations)-1].Round(time.Millisecond),
		(total / time.Duration(len(durations))).Round(time.Millisecond))
	if upHeld {
		fmt.Println("hpilo_up held at 1 across all scrapes")
	} else {
		fmt.Println("WARNING: hpilo_up dropped during the run; check exporter logs")
		os.Exit(1)
	}
}
