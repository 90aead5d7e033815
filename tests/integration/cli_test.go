// Package integration provides end-to-end tests for the biblio commands.
package integration

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

var (
	biblioBinary     string
	biblioBinaryOnce sync.Once
	biblioBinaryErr  error
)

// getBiblioBinary builds the biblio binary once and returns its path.
func getBiblioBinary(t *testing.T) string {
	t.Helper()
	biblioBinaryOnce.Do(func() {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			biblioBinaryErr = os.ErrInvalid
			return
		}
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))

		tmpDir, err := os.MkdirTemp("", "biblio-test-*")
		if err != nil {
			biblioBinaryErr = err
			return
		}
		biblioBinary = filepath.Join(tmpDir, "biblio")

		cmd := exec.Command("go", "build", "-o", biblioBinary, "./cmd/biblio")
		cmd.Dir = moduleRoot
		if output, err := cmd.CombinedOutput(); err != nil {
			biblioBinaryErr = &buildError{output: string(output), err: err}
			return
		}
	})
	if biblioBinaryErr != nil {
		t.Fatalf("failed to build biblio: %v", biblioBinaryErr)
	}
	return biblioBinary
}

type buildError struct {
	output string
	err    error
}

func (e *buildError) Error() string {
	return e.err.Error() + ": " + e.output
}

// Fixtures carry no PMIDs so repair never reaches NCBI.
const refsJSONL = `{"type":"JournalArticle","title":"Paper A","authors":["Smith J","Doe A"],"year":"2020","journal":"Nature","doi":"10.1000/a"}
{"type":"Preprint","title":"Paper B","authors":["Doe A"],"year":"2021","arxiv_id":"2103.00001"}
`

// setupWorkDir creates a working directory holding refs.jsonl with
// isolated XDG config and cache homes.
func setupWorkDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, sub := range []string{"config", "cache"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, dir, "refs.jsonl", refsJSONL)
	return dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// runBiblio runs biblio in dir and returns stdout and the exit code.
func runBiblio(t *testing.T, dir string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(getBiblioBinary(t), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(dir, "config"),
		"XDG_CACHE_HOME="+filepath.Join(dir, "cache"),
		"NCBI_API_KEY=",
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		return string(out), exitErr.ExitCode()
	case err != nil:
		t.Fatalf("running biblio %v: %v\nstderr: %s", args, err, stderr.String())
	}
	return string(out), 0
}

func TestRepair(t *testing.T) {
	dir := setupWorkDir(t)

	out, code := runBiblio(t, dir, "repair", "-i", "refs.jsonl", "-o", "repaired.jsonl")
	if code != 0 {
		t.Fatalf("repair exit code = %d\nOutput: %s", code, out)
	}

	var resp struct {
		Status  string `json:"status"`
		Format  string `json:"format"`
		Entries int    `json:"entries"`
		Changed int    `json:"changed"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("failed to parse repair output: %v\nOutput: %s", err, out)
	}
	if resp.Status != "written" || resp.Format != "jsonl" || resp.Entries != 2 || resp.Changed != 1 {
		t.Errorf("unexpected repair response %+v", resp)
	}

	repaired := readFile(t, dir, "repaired.jsonl")
	for _, want := range []string{`"doi":"10.48550/2103.00001"`, `"journal":"arXiv"`} {
		if !strings.Contains(repaired, want) {
			t.Errorf("repaired output missing %s:\n%s", want, repaired)
		}
	}
}

func TestRepair_UnknownRule(t *testing.T) {
	dir := setupWorkDir(t)

	out, code := runBiblio(t, dir, "repair", "-i", "refs.jsonl", "-o", "out.jsonl", "--rule", "nope")
	if code != 1 {
		t.Errorf("exit code = %d, want 1\nOutput: %s", code, out)
	}
	if !strings.Contains(out, "unknown rule") {
		t.Errorf("expected unknown rule error, got: %s", out)
	}
}

func TestValidate(t *testing.T) {
	dir := setupWorkDir(t)

	out, code := runBiblio(t, dir, "validate", "-i", "refs.jsonl")
	if code != 0 {
		t.Fatalf("validate exit code = %d on clean input\nOutput: %s", code, out)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("expected no diagnostics, got: %s", out)
	}

	writeFile(t, dir, "dups.jsonl", refsJSONL+`{"title":"Paper C","doi":"10.1000/a"}`+"\n")
	out, code = runBiblio(t, dir, "validate", "-i", "dups.jsonl")
	if code != 3 {
		t.Fatalf("validate exit code = %d on duplicates, want 3\nOutput: %s", code, out)
	}

	var diags []struct {
		Type     string   `json:"type"`
		Severity string   `json:"severity"`
		Key      []string `json:"key"`
	}
	if err := json.Unmarshal([]byte(out), &diags); err != nil {
		t.Fatalf("failed to parse validate output: %v\nOutput: %s", err, out)
	}
	if len(diags) != 1 || diags[0].Type != "duplicate" || strings.Join(diags[0].Key, ",") != "doi" {
		t.Errorf("expected one doi duplicate, got %+v", diags)
	}
}

func TestValidate_NoTitleUnique(t *testing.T) {
	dir := setupWorkDir(t)
	writeFile(t, dir, "titles.jsonl", `{"title":"Same"}`+"\n"+`{"title":"Same"}`+"\n")

	if out, code := runBiblio(t, dir, "validate", "-i", "titles.jsonl"); code != 3 {
		t.Errorf("validate exit code = %d on repeated titles, want 3\nOutput: %s", code, out)
	}
	out, code := runBiblio(t, dir, "validate", "-i", "titles.jsonl", "--no-title-unique")
	if code != 0 {
		t.Errorf("validate --no-title-unique exit code = %d, want 0\nOutput: %s", code, out)
	}
}

func TestMerge(t *testing.T) {
	dir := setupWorkDir(t)
	writeFile(t, dir, "curated.yaml", "- doi: 10.1000/a\n  volume: \"12\"\n- doi: 10.9999/unmatched\n  volume: \"99\"\n")

	out, code := runBiblio(t, dir, "merge", "-i", "refs.jsonl", "-m", "curated.yaml", "-o", "merged.jsonl")
	if code != 0 {
		t.Fatalf("merge exit code = %d\nOutput: %s", code, out)
	}

	merged := readFile(t, dir, "merged.jsonl")
	if !strings.Contains(merged, `"volume":"12"`) {
		t.Errorf("merged output missing volume from matching source:\n%s", merged)
	}
	if strings.Contains(merged, `"volume":"99"`) {
		t.Errorf("unmatched source entry should be ignored:\n%s", merged)
	}
}

func TestMerge_DuplicateSource(t *testing.T) {
	dir := setupWorkDir(t)
	writeFile(t, dir, "curated.jsonl", `{"doi":"10.1000/a","volume":"1"}`+"\n"+`{"doi":"10.1000/a","volume":"2"}`+"\n")

	out, code := runBiblio(t, dir, "merge", "-i", "refs.jsonl", "-m", "curated.jsonl", "-o", "merged.jsonl")
	if code != 3 {
		t.Errorf("exit code = %d, want 3\nOutput: %s", code, out)
	}
	if _, err := os.Stat(filepath.Join(dir, "merged.jsonl")); !os.IsNotExist(err) {
		t.Errorf("no output should be written on duplicate keys")
	}
}

func TestExportBibTeX(t *testing.T) {
	dir := setupWorkDir(t)

	out, code := runBiblio(t, dir, "export", "-i", "refs.jsonl", "-o", "refs.bib", "--repair")
	if code != 0 {
		t.Fatalf("export exit code = %d\nOutput: %s", code, out)
	}

	bib := readFile(t, dir, "refs.bib")
	for _, want := range []string{"@article{Smith2020,", "@article{Doe2021,", "author = {Smith, J. and Doe, A.}", "doi = {10.48550/2103.00001}"} {
		if !strings.Contains(bib, want) {
			t.Errorf("BibTeX output missing %q:\n%s", want, bib)
		}
	}

	// Appending the same entries again adds nothing.
	if out, code := runBiblio(t, dir, "export", "-i", "refs.jsonl", "-o", "refs.bib", "--repair", "--append"); code != 0 {
		t.Fatalf("export --append exit code = %d\nOutput: %s", code, out)
	}
	if got := readFile(t, dir, "refs.bib"); strings.Count(got, "@article") != 2 {
		t.Errorf("append should not duplicate entries:\n%s", got)
	}
}

func TestExportMarkdown(t *testing.T) {
	dir := setupWorkDir(t)

	out, code := runBiblio(t, dir, "export", "-i", "refs.jsonl", "-o", "cv.md", "-a", "Doe A")
	if code != 0 {
		t.Fatalf("export exit code = %d\nOutput: %s", code, out)
	}

	md := readFile(t, dir, "cv.md")
	if strings.Index(md, "## 2021") > strings.Index(md, "## 2020") {
		t.Errorf("years should be listed newest first:\n%s", md)
	}
	if !strings.Contains(md, "Smith J, **Doe A**") {
		t.Errorf("markdown should highlight Doe A:\n%s", md)
	}
}

func TestExportAnnotatePosition(t *testing.T) {
	dir := setupWorkDir(t)

	out, code := runBiblio(t, dir, "export", "-i", "refs.jsonl", "-o", "annotated.jsonl", "-a", "Doe A", "--annotate-position")
	if code != 0 {
		t.Fatalf("export exit code = %d\nOutput: %s", code, out)
	}

	annotated := readFile(t, dir, "annotated.jsonl")
	for _, want := range []string{`"position":2`, `"role":"senior"`, `"num_authors":2`} {
		if !strings.Contains(annotated, want) {
			t.Errorf("annotated output missing %s:\n%s", want, annotated)
		}
	}
}

func TestRules(t *testing.T) {
	dir := setupWorkDir(t)

	out, code := runBiblio(t, dir, "rules")
	if code != 0 {
		t.Fatalf("rules exit code = %d\nOutput: %s", code, out)
	}
	var names []string
	if err := json.Unmarshal([]byte(out), &names); err != nil {
		t.Fatalf("failed to parse rules output: %v\nOutput: %s", err, out)
	}
	want := []string{"doi_from_arxiv", "PMC_from_PMID", "infer_urls", "infer_journal"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("rules = %v, want %v", names, want)
	}
}

func TestProjectConfig(t *testing.T) {
	dir := setupWorkDir(t)
	writeFile(t, dir, ".biblio.yml", "workers: -1\n")

	out, code := runBiblio(t, dir, "rules")
	if code != 2 {
		t.Errorf("exit code = %d with invalid project config, want 2\nOutput: %s", code, out)
	}
}
