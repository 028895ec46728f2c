// Package cli renders sectionkit command output as text or JSON.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/sectionkit/internal/ai"
	"github.com/hyperjump/sectionkit/internal/models"
	"github.com/hyperjump/sectionkit/internal/sections"
	"github.com/hyperjump/sectionkit/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const previewChars = 300

// ParseFormat validates a --output flag value. The empty string means text.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (use text or json)", s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteExtraction writes the result of text extraction.
func WriteExtraction(w io.Writer, res *models.ExtractedText, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "Format: %s | %d words, %d characters, %d %s\n\n",
		res.Format, res.Stats.Words, res.Stats.Characters,
		res.Stats.Paragraphs, utils.Plural(res.Stats.Paragraphs, "paragraph"))
	fmt.Fprintln(w, res.Text)
	return nil
}

// WriteGeneration writes generated sections with the provider summary and any
// entries that were dropped during validation.
func WriteGeneration(w io.Writer, res *ai.GenerationResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "\nGenerated %d %s with %s/%s in %dms (tokens: %d in, %d out)\n",
		len(res.Sections), utils.Plural(len(res.Sections), "section"),
		res.Provider, res.Model, res.Duration.Milliseconds(), res.InputTokens, res.OutputTokens)
	if res.Truncated {
		fmt.Fprintln(w, "Note: input was truncated to fit the token budget.")
	}
	fmt.Fprintln(w)
	writeSectionsText(w, res.Sections)
	writeDropped(w, res.Dropped)
	return nil
}

// WriteSections writes a section list, for example a page loaded from storage.
func WriteSections(w io.Writer, list []models.Section, dropped []sections.Dropped, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"sections": list, "dropped": dropped})
	}
	fmt.Fprintf(w, "\n%d %s\n\n", len(list), utils.Plural(len(list), "section"))
	writeSectionsText(w, list)
	writeDropped(w, dropped)
	return nil
}

func writeSectionsText(w io.Writer, list []models.Section) {
	for i, sec := range list {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%d] %s  (id: %s)\n", i+1, sec.Type, sec.ID)
		writeFields(w, sec.Data, "  ")
		fmt.Fprintln(w)
	}
}

// writeFields prints scalar fields first, then repeaters with their items.
func writeFields(w io.Writer, data map[string]interface{}, indent string) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := data[k].(string); ok && s != "" {
			fmt.Fprintf(w, "%s%s: %s\n", indent, k, utils.Truncate(s, previewChars))
		}
	}
	for _, k := range keys {
		items, ok := data[k].([]interface{})
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s%s: %d %s\n", indent, k, len(items), utils.Plural(len(items), "item"))
		for j, item := range items {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%s  #%d\n", indent, j+1)
			writeFields(w, m, indent+"    ")
		}
	}
}

func writeDropped(w io.Writer, dropped []sections.Dropped) {
	if len(dropped) == 0 {
		return
	}
	fmt.Fprintf(w, "Dropped (%d):\n", len(dropped))
	for _, d := range dropped {
		t := d.Type
		if t == "" {
			t = "?"
		}
		fmt.Fprintf(w, "  #%d %s: %s\n", d.Index+1, t, d.Reason)
	}
}

// WriteSectionTypes lists the registered section types with their fields.
func WriteSectionTypes(w io.Writer, schemas []*sections.Schema, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"types": schemas})
	}
	for _, s := range schemas {
		fmt.Fprintf(w, "%s (%s)\n", s.Type, s.Label)
		for _, f := range s.Fields {
			switch f.Kind {
			case sections.KindRepeater:
				names := make([]string, 0, len(f.Item))
				for _, it := range f.Item {
					names = append(names, it.Name)
				}
				fmt.Fprintf(w, "  %-18s repeater, max %d [%s]\n", f.Name, f.MaxItems, strings.Join(names, ", "))
			case sections.KindEnum:
				fmt.Fprintf(w, "  %-18s enum (%s)\n", f.Name, strings.Join(f.Options, "|"))
			default:
				fmt.Fprintf(w, "  %-18s %s\n", f.Name, f.Kind)
			}
		}
	}
	return nil
}

// WriteStatus writes store counts, AI configuration and watcher state.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Documents: %d\n", st.Documents)
	fmt.Fprintf(w, "Pages:     %d\n", st.Pages)
	if len(st.UnsavedPages) > 0 {
		fmt.Fprintf(w, "Unsaved:   %s\n", strings.Join(st.UnsavedPages, ", "))
	}
	if st.DatabasePath != "" {
		fmt.Fprintf(w, "Database:  %s\n", st.DatabasePath)
	}
	if st.DiskUsageBytes != nil {
		fmt.Fprintf(w, "Disk:      %s\n", FormatBytes(*st.DiskUsageBytes))
	}
	if st.AI != nil {
		key := "missing"
		if st.AI.KeyConfigured {
			key = "configured"
		}
		fmt.Fprintf(w, "AI:        %s/%s (API key %s)\n", st.AI.Provider, st.AI.Model, key)
	}
	if st.Watch != nil {
		s := st.Watch.Stats
		fmt.Fprintf(w, "Watching:  %d\n", len(st.Watch.Directories))
		for _, d := range st.Watch.Directories {
			fmt.Fprintf(w, "  %s\n", d)
		}
		fmt.Fprintf(w, "Imports:   %d imported, %d skipped, %d failed, %d removed, %d pending\n",
			s.Imported, s.Skipped, s.Failed, s.Removed, s.Pending)
		if !s.LastImport.IsZero() {
			fmt.Fprintf(w, "Last:      %s at %s\n", s.LastPath, s.LastImport.Format(time.RFC3339))
		}
		if s.LastError != "" {
			fmt.Fprintf(w, "Error:     %s\n", s.LastError)
		}
	}
	return nil
}

// WriteDirectories writes a list of watched directories.
func WriteDirectories(w io.Writer, dirs []string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"directories": dirs})
	}
	if len(dirs) == 0 {
		fmt.Fprintln(w, "No watched directories.")
		return nil
	}
	for _, d := range dirs {
		fmt.Fprintln(w, d)
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix, e.g. "1.5 MiB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
