package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/ctmflow/internal/ir"
)

// Document is a rendered plan. Values are limited to string, bool, int64,
// []any and map[string]any so the document can be canonically hashed.
type Document map[string]any

// Event list keys and their engine type tags.
const (
	KeyEventsToAdd     = "eventsToAdd"
	KeyEventsToWaitFor = "eventsToWaitFor"
	KeyEventsToDelete  = "eventsToDelete"
)

// ErrKeyConflict is returned when two entries of one folder render to the
// same key, e.g. a phase named like a job's object name.
var ErrKeyConflict = errors.New("document key conflict")

// Render converts a compiled plan into the engine document.
func Render(plan *ir.CompiledPlan) (Document, error) {
	f := plan.Folder
	folder := map[string]any{"Type": "Folder"}
	setNonEmpty(folder, "ControlmServer", f.ControlmServer)
	setNonEmpty(folder, "OrderMethod", f.OrderMethod)
	setNonEmpty(folder, "SiteStandard", f.SiteStandard)
	setNonEmpty(folder, "Application", f.Application)
	setNonEmpty(folder, "SubApplication", f.SubApplication)

	for _, j := range plan.Jobs {
		if err := put(folder, j.ObjectName, renderJob(j, f), f.Name); err != nil {
			return nil, err
		}
	}

	for _, ph := range plan.Phases {
		sub := map[string]any{"Type": "SubFolder"}
		setNonEmpty(sub, "Description", ph.Description)
		addEvents(sub, ph.Events)
		for _, j := range ph.Jobs {
			if err := put(sub, j.ObjectName, renderJob(j, f), ph.Name); err != nil {
				return nil, err
			}
		}
		if err := put(folder, ph.Name, sub, f.Name); err != nil {
			return nil, err
		}
	}

	return Document{f.Name: folder}, nil
}

// renderJob merges the job's registry fields with the folder-wide job
// defaults; fields set on the job win.
func renderJob(j *ir.PlanJob, f ir.Folder) map[string]any {
	out := make(map[string]any, len(j.Fields)+8)
	for k, v := range j.Fields {
		out[k] = v
	}
	out["Type"] = j.EngineType

	defaults := []struct{ key, value string }{
		{"RunAs", f.RunAs},
		{"Host", f.Host},
		{"Application", f.Application},
		{"SubApplication", f.SubApplication},
	}
	for _, d := range defaults {
		if _, set := out[d.key]; !set {
			setNonEmpty(out, d.key, d.value)
		}
	}

	addEvents(out, j.Events)
	return out
}

func addEvents(m map[string]any, ev ir.EventLists) {
	if len(ev.Add) > 0 {
		m[KeyEventsToAdd] = eventList("AddEvents", ev.Add)
	}
	if len(ev.Wait) > 0 {
		m[KeyEventsToWaitFor] = eventList("WaitForEvents", ev.Wait)
	}
	if len(ev.Delete) > 0 {
		m[KeyEventsToDelete] = eventList("DeleteEvents", ev.Delete)
	}
}

func eventList(kind string, names []string) map[string]any {
	events := make([]any, len(names))
	for i, name := range names {
		events[i] = map[string]any{"Event": name}
	}
	return map[string]any{"Type": kind, "Events": events}
}

func setNonEmpty(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func put(m map[string]any, key string, value any, parent string) error {
	if _, exists := m[key]; exists {
		return fmt.Errorf("%w: %q appears twice in %q", ErrKeyConflict, key, parent)
	}
	m[key] = value
	return nil
}

// Marshal writes the document as two-space indented JSON with sorted keys
// and a trailing newline. HTML characters are not escaped.
func Marshal(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any(doc)); err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return buf.Bytes(), nil
}

// Hash returns the document's content hash: SHA-256 over its RFC 8785
// canonical form, domain separated from other hashes.
func Hash(doc Document) (string, error) {
	return ir.PlanHash(doc)
}

// Folder returns the name of the document's single root folder.
func (d Document) Folder() string {
	for name := range d {
		return name
	}
	return ""
}

// JobCount returns the number of jobs in the document.
func (d Document) JobCount() int {
	n := 0
	for _, v := range d {
		n += countJobs(v)
	}
	return n
}

func countJobs(v any) int {
	m, ok := v.(map[string]any)
	if !ok {
		return 0
	}
	switch t, _ := m["Type"].(string); t {
	case "Folder", "SubFolder":
		n := 0
		for k, child := range m {
			if k != KeyEventsToAdd && k != KeyEventsToWaitFor && k != KeyEventsToDelete {
				n += countJobs(child)
			}
		}
		return n
	case "":
		return 0
	default:
		return 1
	}
}
