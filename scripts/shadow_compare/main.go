// Command shadow_compare replays read-only requests against the legacy
// platform API and the Go scheduling API and reports status/body diffs.
// Used during cutover to prove endpoint parity before switching traffic.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type targetsFile struct {
	Targets []target `json:"targets"`
	// Keys stripped from both bodies before comparison. Timestamps and
	// generated ids never match across systems.
	IgnoreKeys []string `json:"ignoreKeys"`
}

type result struct {
	Target         target
	LegacyStatus   int
	GoStatus       int
	StatusMatch    bool
	BodyMatch      bool
	Err            error
	GoDuration     time.Duration
	LegacyDuration time.Duration
}

func main() {
	var (
		goBase      string
		legacyBase  string
		token       string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&goBase, "go-base", "http://localhost:8080", "Go API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000", "Legacy platform base URL")
	flag.StringVar(&token, "token", os.Getenv("SHADOW_COMPARE_TOKEN"), "Bearer token sent to both APIs")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	cfg, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		results  []result
		breaking int
		optional int
	)

	for _, tgt := range cfg.Targets {
		res := compare(client, goBase, legacyBase, token, tgt, cfg.IgnoreKeys)
		if res.Err != nil || !res.StatusMatch || !res.BodyMatch {
			if tgt.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) (*targetsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg targetsFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return &cfg, nil
}

func compare(client *http.Client, goBase, legacyBase, token string, tgt target, ignore []string) result {
	res := result{Target: tgt}

	goBody, goStatus, goDur, err := fetch(client, goBase, token, tgt)
	if err != nil {
		res.Err = fmt.Errorf("go request failed: %w", err)
		return res
	}
	legacyBody, legacyStatus, legacyDur, err := fetch(client, legacyBase, token, tgt)
	if err != nil {
		res.Err = fmt.Errorf("legacy request failed: %w", err)
		return res
	}

	res.GoStatus = goStatus
	res.LegacyStatus = legacyStatus
	res.GoDuration = goDur
	res.LegacyDuration = legacyDur
	res.StatusMatch = goStatus == legacyStatus
	res.BodyMatch = bodiesEqual(goBody, legacyBody, ignore)
	return res
}

func fetch(client *http.Client, base, token string, tgt target) ([]byte, int, time.Duration, error) {
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, 0, err
	}
	return body, resp.StatusCode, time.Since(start), nil
}

func bodiesEqual(a, b []byte, ignore []string) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	normalize(&aj, ignore)
	normalize(&bj, ignore)
	return reflect.DeepEqual(aj, bj)
}

func normalize(v *interface{}, ignore []string) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for _, key := range ignore {
			delete(val, key)
		}
		for k, v2 := range val {
			normalize(&v2, ignore)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2, ignore)
			val[i] = v2
		}
	case float64:
		// JSON numbers decode as float64; fold integral values so 4
		// and 4.0 compare equal across serializers.
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func printReport(results []result) {
	fmt.Println("Shadow Compare Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "ERROR"
		} else if !res.StatusMatch || !res.BodyMatch {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		if res.Err != nil {
			fmt.Printf("  Error: %v\n", res.Err)
			continue
		}
		fmt.Printf("  Go: %d (%s) | Legacy: %d (%s)\n", res.GoStatus, res.GoDuration, res.LegacyStatus, res.LegacyDuration)
		fmt.Printf("  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Target.Critical)
	}
}
