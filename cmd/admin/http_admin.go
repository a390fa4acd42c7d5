package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func currentCmd(args []string) {
	fs := flag.NewFlagSet("current", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	mesh := fs.Bool("mesh", false, "include mesh buffers")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/v1/current"
	if *mesh {
		u += "?mesh=1"
	}
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	printResponse(resp)
}

func regenerateCmd(args []string) {
	fs := flag.NewFlagSet("regenerate", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	rank := fs.Int("rank", 2, "2 or 3")
	seed := fs.String("seed", "", "seed override")
	random := fs.Bool("random", false, "draw the seed from the clock")
	pin := fs.Bool("pin", false, "archive the snapshot")
	_ = fs.Parse(args)

	body, _ := json.Marshal(map[string]any{"rank": *rank, "seed": *seed, "use_random_seed": *random, "pin": *pin})
	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/regenerate"
	req, _ := http.NewRequest(http.MethodPost, u, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	cl := &http.Client{Timeout: 60 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	printResponse(resp)
}

func printResponse(resp *http.Response) {
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
