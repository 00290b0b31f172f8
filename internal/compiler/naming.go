package compiler

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultJobPrefix is prepended to every rendered job object name.
const DefaultJobPrefix = "zzt"

// ObjectName renders a business label as an engine object name:
// "{prefix}-{label}" with accents folded, whitespace turned into hyphens
// and every other character outside [A-Za-z0-9_-] removed.
func ObjectName(prefix, label string) string {
	name := sanitizeName(label)
	if prefix == "" {
		return name
	}
	return prefix + "-" + name
}

// sanitizeName never returns an empty string; labels with no usable
// characters become "job".
func sanitizeName(label string) string {
	folded, _, err := transform.String(foldAccents(), label)
	if err != nil {
		folded = label
	}

	var b strings.Builder
	lastHyphen := true
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r) || r == '-':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'):
			b.WriteRune(r)
			lastHyphen = false
		}
	}

	name := strings.TrimRight(b.String(), "-")
	if name == "" {
		return "job"
	}
	return name
}

// foldAccents decomposes, drops combining marks and recomposes, so
// "Café Reports" folds to "Cafe Reports". Transformers are stateful, so a
// fresh chain is built per call.
func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Attribute keys the rendered document writes beside job and phase
// entries of a folder and of a subfolder.
var (
	folderAttributes    = []string{"Type", "ControlmServer", "OrderMethod", "SiteStandard", "Application", "SubApplication"}
	subfolderAttributes = []string{"Type", "Description", "eventsToAdd", "eventsToWaitFor", "eventsToDelete"}
)

// checkObjectNames reports entries that would share a key in the rendered
// document: job object names equal to an attribute of their container,
// and phases named like a folder attribute or a root-level job.
func checkObjectNames(g *Graph, prefix string) Errors {
	var errs Errors
	rootJobs := make(map[string]string) // object name -> job id

	for _, n := range g.Nodes {
		name := ObjectName(prefix, n.Spec.Label())
		attrs := subfolderAttributes
		if n.Spec.Subfolder == "" {
			attrs = folderAttributes
			rootJobs[name] = n.ID()
		}
		if slices.Contains(attrs, name) {
			errs = append(errs, &CompileError{
				Code:    ObjectNameConflict,
				Message: fmt.Sprintf("job %q renders as %q, which is a folder attribute", n.ID(), name),
				JobIDs:  []string{n.ID()},
			})
		}
	}

	for _, ph := range g.Phases {
		if id, ok := rootJobs[ph.Name]; ok {
			errs = append(errs, &CompileError{
				Code:    ObjectNameConflict,
				Message: fmt.Sprintf("phase %q has the same name as root-level job %q", ph.Name, id),
				JobIDs:  []string{id},
			})
		} else if slices.Contains(folderAttributes, ph.Name) {
			errs = append(errs, &CompileError{
				Code:    ObjectNameConflict,
				Message: fmt.Sprintf("phase %q is named like a folder attribute", ph.Name),
			})
		}
	}
	return errs
}
