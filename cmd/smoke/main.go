package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"package-dashboard/internal/packages"
)

type historyResp struct {
	Items []struct {
		Type      string    `json:"type"`
		Text      string    `json:"text"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"items"`
	Total int `json:"total"`
}

func main() {
	base := envOr("API_BASE_URL", "http://localhost:8000")

	baseFlag := flag.String("base", base, "API base URL (e.g., http://localhost:8000)")
	source := flag.String("import", "", "Snapshot to enqueue for import before the run (path visible to the worker, or s3://bucket/key)")
	waitImport := flag.Duration("wait-import", 15*time.Second, "How long to poll for packages after enqueueing an import")
	flag.Parse()

	httpc := &http.Client{Timeout: 12 * time.Second}
	api := *baseFlag + "/api"

	// 0) Optionally load a snapshot through the worker
	if *source != "" {
		if err := doJSON(httpc, http.MethodPost, api+"/imports", map[string]any{"source": *source}, http.StatusAccepted, &map[string]any{}); err != nil {
			fatalf("enqueue import: %v", err)
		}
		fmt.Printf("✅ Enqueued import of %s\n", *source)
	}

	// 1) Find a package
	deadline := time.Now().Add(*waitImport)
	var list []packages.Package
	for {
		if err := doJSON(httpc, http.MethodGet, api+"/packages?limit=1", nil, http.StatusOK, &list); err != nil {
			fatalf("list packages: %v", err)
		}
		if len(list) > 0 || *source == "" || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Second)
	}
	if len(list) == 0 {
		fatalf("no packages stored; run with -import <snapshot>")
	}
	pkg := list[0]
	fmt.Printf("✅ Using package %s (%s)\n", pkg.Name, pkg.ID)
	pkgURL := api + "/packages/" + pkg.ID

	// 2) Add a comment
	var updated packages.Package
	if err := doJSON(httpc, http.MethodPost, pkgURL+"/comments", map[string]any{"buildType": "CI Build", "text": "smoke: investigating"}, http.StatusCreated, &updated); err != nil {
		fatalf("add comment: %v", err)
	}
	fmt.Printf("✅ Added comment, latest is now %q\n", packages.Summary(&updated))

	// 3) Read it back from the history
	var hist historyResp
	if err := doJSON(httpc, http.MethodGet, pkgURL+"/comments?page=1", nil, http.StatusOK, &hist); err != nil {
		fatalf("history: %v", err)
	}
	if len(hist.Items) == 0 || hist.Items[0].Text != "smoke: investigating" {
		fatalf("newest history entry is not the smoke comment: %s", compactJSON(hist))
	}
	ts := hist.Items[0].Timestamp.Format(time.RFC3339Nano)
	fmt.Printf("✅ History has %d comments\n", hist.Total)

	// 4) Edit, then delete it
	ref := map[string]any{"type": "CI", "timestamp": ts, "text": "smoke: resolved"}
	if err := doJSON(httpc, http.MethodPut, pkgURL+"/comments/edit", ref, http.StatusOK, &updated); err != nil {
		fatalf("edit comment: %v", err)
	}
	fmt.Println("✅ Edited comment")
	delete(ref, "text")
	if err := doJSON(httpc, http.MethodDelete, pkgURL+"/comments/delete", ref, http.StatusOK, &updated); err != nil {
		fatalf("delete comment: %v", err)
	}
	fmt.Printf("✅ Deleted comment, latest is back to %q\n", packages.Summary(&updated))

	// 5) Flip and restore the CI broken flag
	for _, v := range []bool{!pkg.CIBroken, pkg.CIBroken} {
		if err := doJSON(httpc, http.MethodPut, pkgURL+"/broken-state", map[string]any{"ciBroken": v}, http.StatusOK, &updated); err != nil {
			fatalf("broken state: %v", err)
		}
	}
	fmt.Println("✅ Toggled CI broken flag")

	fmt.Printf("🎉 Smoke run OK. Package=%s\n", pkg.Name)
}

// --- helpers ---

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func doJSON(c *http.Client, method, url string, body any, want int, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, method, url, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("%s %s -> %d: %s", method, url, res.StatusCode, string(b))
	}
	if out != nil {
		return json.NewDecoder(res.Body).Decode(out)
	}
	return nil
}

func compactJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func fatalf(format string, args ...any) {
	fmt.Printf("❌ "+format+"\n", args...)
	os.Exit(1)
}
