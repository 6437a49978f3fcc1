//go:build ignore

package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/muurk/yeebridge/internal/dispatch"
	"github.com/muurk/yeebridge/internal/protocol"
	"github.com/muurk/yeebridge/internal/server"
)

// Summarises a JSONL capture written by "yeebridge serve --analysis-dir" and
// re-decodes every captured payload with the current decoder, flagging
// sessions whose outcome would now differ.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run tools/analyze-captures.go <jsonl-file>")
		fmt.Println("Example: go run tools/analyze-captures.go captures/capture-20250301-101500.jsonl")
		os.Exit(1)
	}

	filename := os.Args[1]
	f, err := os.Open(filename)
	if err != nil {
		fmt.Printf("Error opening file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var (
		records   []server.Record
		outcomes  = make(map[server.Outcome]int)
		methods   = make(map[string]int)
		clients   = make(map[string]int)
		mismatch  int
		totalTime time.Duration
	)

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec server.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			fmt.Printf("Error parsing line %d: %v\n", line, err)
			continue
		}
		records = append(records, rec)
		outcomes[rec.Outcome]++
		if rec.Method != "" {
			methods[rec.Method]++
		}
		clients[hostOf(rec.RemoteAddr)]++
		totalTime += rec.Duration
	}
	if err := scanner.Err(); err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== yeebridge Capture Analyzer ===\n")
	fmt.Printf("File: %s\n", filename)
	fmt.Printf("Sessions: %d\n", len(records))
	if len(records) > 0 {
		fmt.Printf("Average session: %v\n", totalTime/time.Duration(len(records)))
	}

	fmt.Printf("\nOutcomes:\n")
	printCounts(stringKeys(outcomes))

	fmt.Printf("\nMethods:\n")
	printCounts(methods)

	fmt.Printf("\nClients:\n")
	printCounts(clients)

	fmt.Printf("\nReplay:\n")
	d := dispatch.New()
	for i, rec := range records {
		if rec.PayloadHex == "" {
			continue
		}
		payload, err := hex.DecodeString(rec.PayloadHex)
		if err != nil {
			fmt.Printf("  #%d bad payload_hex: %v\n", i+1, err)
			continue
		}

		req, err := protocol.Decode(payload)
		switch {
		case err != nil && rec.Outcome != server.OutcomeMalformed:
			mismatch++
			fmt.Printf("  #%d was %s, now malformed: %v\n", i+1, rec.Outcome, err)
		case err == nil && rec.Outcome == server.OutcomeMalformed:
			mismatch++
			fmt.Printf("  #%d was malformed, now decodes as %s\n", i+1, req)
		case err == nil && rec.Outcome != server.OutcomeTransportError:
			// Dispatching in capture order reproduces the toggle sequence
			result := d.Dispatch(req)
			if result.Mapped && rec.Code != "" && rec.Code != string(rune(result.Code)) {
				mismatch++
				fmt.Printf("  #%d code was %s, now %s\n", i+1, rec.Code, result.Code)
			}
		}
	}
	if mismatch == 0 {
		fmt.Printf("  all %d sessions reproduce\n", len(records))
	}
}

func hostOf(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}

func stringKeys(m map[server.Outcome]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func printCounts(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })
	for _, k := range keys {
		fmt.Printf("  %-20s %d\n", k, counts[k])
	}
}
