// Command ctecompose composes root query files with the named SQL
// resources they reference, writing one standalone WITH-qualified query
// per root file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/olekukonko/tablewriter"

	"github.com/zerotable/ztdsql/compose"
	"github.com/zerotable/ztdsql/format"
)

func main() {
	var (
		resourceDir = flag.String("resources", "cte", "directory of named SQL resource files")
		outDir      = flag.String("out", "dist", "output directory for composed queries")
		preset      = flag.String("preset", "postgres", "formatter preset: postgres, mysql, sqlite, sqlserver")
		configPath  = flag.String("config", "", "JSON file with formatter option overrides")
		verbose     = flag.Bool("verbose", false, "print a per-file report of composed and missing names")
		watch       = flag.Bool("watch", false, "recompose when resource or root files change")
	)
	flag.Parse()

	targets := flag.Args()
	if len(targets) == 0 {
		targets = []string{"root"}
	}

	opts, err := loadOptions(*preset, *configPath)
	if err != nil {
		log.Fatal(err)
	}

	run := func() {
		if err := composeAll(targets, *resourceDir, *outDir, opts, *verbose); err != nil {
			log.Print(err)
		}
	}
	run()

	if !*watch {
		return
	}
	if err := watchLoop(append([]string{*resourceDir}, targets...), run); err != nil {
		log.Fatal(err)
	}
}

func loadOptions(preset, configPath string) (*format.Options, error) {
	opts, err := format.Preset(preset)
	if err != nil {
		return nil, err
	}
	if configPath == "" {
		return opts, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", configPath, err)
	}
	return opts, nil
}

func composeAll(targets []string, resourceDir, outDir string, opts *format.Options, verbose bool) error {
	index, err := compose.BuildIndex(resourceDir)
	if err != nil {
		return err
	}
	roots, err := rootFiles(targets)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	var rows [][]string
	for _, root := range roots {
		report, err := compose.Compose(root, index, opts)
		if err != nil {
			return err
		}
		dest := filepath.Join(outDir, filepath.Base(root))
		if err := os.WriteFile(dest, []byte(report.SQL+"\n"), 0o644); err != nil {
			return err
		}
		log.Printf("composed %s (%d ctes)", dest, len(report.CTEs))
		rows = append(rows, []string{
			filepath.Base(root),
			strings.Join(report.CTEs, ", "),
			strings.Join(report.Missing, ", "),
		})
	}

	if verbose {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"File", "CTEs", "Missing"})
		table.AppendBulk(rows)
		table.Render()
	}
	return nil
}

// rootFiles expands each target into the .sql files it names: a file
// target is taken as is, a directory target contributes its .sql files.
func rootFiles(targets []string) ([]string, error) {
	var files []string
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, target)
			continue
		}
		entries, err := os.ReadDir(target)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".sql") {
				continue
			}
			files = append(files, filepath.Join(target, e.Name()))
		}
	}
	return files, nil
}

func watchLoop(paths []string, run func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if err := watcher.Add(p); err != nil {
				return err
			}
		}
	}
	log.Print("watching for changes")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".sql") {
				continue
			}
			log.Printf("change detected: %s", event.Name)
			run()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}
