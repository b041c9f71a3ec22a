package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	moinmoin "github.com/escapewindow/ep-moinmoin-export"
	"github.com/escapewindow/ep-moinmoin-export/padstore"
)

func main() {
	root := "testdata"
	fixtures := filepath.Join(root, "pads.yaml")
	f, err := os.Open(fixtures)
	if err != nil {
		fatalf("open %s: %v", fixtures, err)
	}
	defer f.Close()

	ctx := context.Background()
	mem := padstore.NewMemory()
	ids, err := padstore.LoadYAML(ctx, f, mem)
	if err != nil {
		fatalf("load %s: %v", fixtures, err)
	}
	if len(ids) == 0 {
		fatalf("no pads found in %s", fixtures)
	}
	store := padstore.New(mem)
	for _, id := range ids {
		out, err := moinmoin.Export(ctx, moinmoin.ExportRequest{Store: store, PadID: id})
		if err != nil {
			fatalf("export %s: %v", id, err)
		}
		goldenPath := filepath.Join(root, id+".moin")
		if err := os.WriteFile(goldenPath, []byte(out), 0o644); err != nil {
			fatalf("write %s: %v", goldenPath, err)
		}
		fmt.Fprintf(os.Stdout, "wrote %s\n", goldenPath)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
