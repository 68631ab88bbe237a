// Command healthcheck probes the local liveness endpoint and exits 0 when it
// answers 200, 1 otherwise. Meant for container HEALTHCHECK instructions.
package main

import (
	"flag"
	"net/http"
	"os"
	"time"
)

func main() {
	url := flag.String("url", "", "endpoint to probe (default http://127.0.0.1:$PORT/)")
	flag.Parse()

	os.Exit(probe(target(*url, os.Getenv("PORT")), 3*time.Second))
}

func target(url, port string) string {
	if url != "" {
		return url
	}
	if port == "" {
		port = "3000"
	}
	return "http://127.0.0.1:" + port + "/"
}

func probe(url string, timeout time.Duration) int {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}
