package main

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/matsen/biblio/internal/config"
	"github.com/matsen/biblio/internal/enrich"
	"github.com/matsen/biblio/internal/entry"
	"github.com/matsen/biblio/internal/eutils"
	"github.com/matsen/biblio/internal/export"
	"github.com/matsen/biblio/internal/importer"
	"github.com/matsen/biblio/internal/schema"
	"github.com/matsen/biblio/internal/storage"
)

// DefaultWorkers is the repair parallelism when neither --workers nor the
// config sets one.
const DefaultWorkers = 4

// mustLoadSchema loads the built-in schema extended by --schema or the
// configured overlay, exits on error.
func mustLoadSchema() *schema.Schema {
	path := schemaPath
	if path == "" {
		path = cfg.Schema
	}
	sch, err := schema.Load(path)
	if err != nil {
		exitWithError(ExitConfigError, "loading schema: %v", err)
	}
	return sch
}

// parseInputSchema validates an input schema name. Empty selects the
// default for the input format.
func parseInputSchema(name string) (importer.Schema, error) {
	if name == "" {
		return "", nil
	}
	return importer.ParseSchema(name)
}

// mustLoadEntries reads entries from path, exits on error.
func mustLoadEntries(path, format, inputSchema string) []entry.Entry {
	s, err := parseInputSchema(inputSchema)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	entries, err := storage.Load(path, storage.Format(format), s, logrus.StandardLogger())
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	logrus.WithFields(logrus.Fields{"path": path, "entries": len(entries)}).Info("loaded entries")
	return entries
}

// workerCount returns --workers, the configured worker count, or
// DefaultWorkers.
func workerCount() int {
	switch {
	case workers > 0:
		return workers
	case cfg.Workers > 0:
		return cfg.Workers
	}
	return DefaultWorkers
}

// newPMCIDClient creates an E-utilities client backed by the persistent
// cache. The returned function closes the cache.
func newPMCIDClient() (*eutils.Client, func()) {
	opts := []eutils.ClientOption{eutils.WithLogger(logrus.StandardLogger())}
	if key := config.GetConfigValue(config.NCBIAPIKeyEnv, cfg.NCBIAPIKey); key != "" {
		opts = append(opts, eutils.WithAPIKey(key))
	}

	closeCache := func() {}
	if cfg.EUtilsCache != "" {
		cache, err := eutils.OpenSQLiteCache(cfg.EUtilsCache)
		if err != nil {
			logrus.WithError(err).Warn("PMCID cache unavailable, using memory only")
		} else {
			opts = append(opts, eutils.WithCache(cache))
			closeCache = func() { cache.Close() }
		}
	}
	return eutils.NewClient(opts...), closeCache
}

// newEngine creates a repair engine that resolves PMCIDs through NCBI.
func newEngine(sch *schema.Schema) (*enrich.Engine, func()) {
	client, closeClient := newPMCIDClient()
	engine := enrich.New(sch,
		enrich.WithResolver(client),
		enrich.WithLogger(logrus.StandardLogger()),
	)
	return engine, closeClient
}

// lookupExitCode maps a repair or lookup failure to an exit code: NCBI
// failures get ExitLookupError, everything else ExitError.
func lookupExitCode(err error) int {
	if eutils.IsLookupError(err) {
		return ExitLookupError
	}
	return ExitError
}

// offlineResolver registers the PMCID rule without contacting NCBI. It
// never finds a PMCID.
type offlineResolver struct{}

func (offlineResolver) PMCID(context.Context, string) (string, error) { return "", nil }

// outputOptions controls rendering of the output file.
type outputOptions struct {
	Markdown export.MarkdownOptions
	// Append adds BibTeX entries missing from an existing file.
	Append bool
}

// writeEntries writes entries to path, dispatching BibTeX and Markdown to
// the export renderers.
func writeEntries(path, format string, entries []entry.Entry, opts outputOptions) (storage.Format, error) {
	f, err := storage.ResolveFormat(path, storage.Format(format))
	if err != nil {
		return "", err
	}

	switch f {
	case storage.FormatBibTeX:
		if opts.Append {
			n, err := export.AppendBibTeX(path, entries)
			if err != nil {
				return f, err
			}
			logrus.WithField("added", n).Info("appended BibTeX entries")
			return f, nil
		}
		return f, writeRendered(path, func(w *strings.Builder) error {
			w.WriteString(export.ToBibTeXList(entries))
			return nil
		})
	case storage.FormatMarkdown:
		return f, writeRendered(path, func(w *strings.Builder) error {
			return export.Markdown(w, entries, opts.Markdown)
		})
	}
	return f, storage.Write(path, entries, f)
}

// writeRendered renders in memory before creating path.
func writeRendered(path string, render func(w *strings.Builder) error) (err error) {
	var b strings.Builder
	if err := render(&b); err != nil {
		return err
	}

	w, err := storage.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = w.Write([]byte(b.String()))
	return err
}

// countChanged counts entries that differ between before and after.
func countChanged(before, after []entry.Entry) int {
	n := 0
	for i := range before {
		if i < len(after) && !reflect.DeepEqual(before[i], after[i]) {
			n++
		}
	}
	return n
}

// splitList splits comma-separated flag values and drops blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
