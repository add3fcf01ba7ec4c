// Package plan scrapes structured plans out of free-form model text.
package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Step is one numbered plan step.
type Step struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is the structured result of parsing planner output. Steps keep
// the order in which their numbers first appeared.
type Document struct {
	Project string
	Reply   string
	Focus   string
	Steps   *orderedmap.OrderedMap[int, string]
	Summary string
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Steps: orderedmap.New[int, string]()}
}

// StepList returns the steps in order.
func (d *Document) StepList() []Step {
	out := make([]Step, 0, d.Steps.Len())
	for pair := d.Steps.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Step{Number: pair.Key, Text: pair.Value})
	}
	return out
}

// Empty reports whether nothing was captured.
func (d *Document) Empty() bool {
	return d.Project == "" && d.Reply == "" && d.Focus == "" && d.Summary == "" && d.Steps.Len() == 0
}

// String renders the canonical text form. Parsing it yields an equal document.
func (d *Document) String() string {
	var b strings.Builder
	header := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s %s\n", name, value)
		}
	}
	header(headerProject, d.Project)
	header(headerReply, d.Reply)
	header(headerFocus, d.Focus)
	if d.Steps.Len() > 0 {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(headerPlan + "\n")
		for pair := d.Steps.Oldest(); pair != nil; pair = pair.Next() {
			fmt.Fprintf(&b, "Step %d: %s\n", pair.Key, pair.Value)
		}
	}
	if d.Summary != "" {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s\n", headerSummary, d.Summary)
	}
	return b.String()
}

// Markdown renders the document for terminal display.
func (d *Document) Markdown() string {
	var b strings.Builder
	if d.Project != "" {
		fmt.Fprintf(&b, "# %s\n\n", d.Project)
	}
	if d.Reply != "" {
		fmt.Fprintf(&b, "%s\n\n", d.Reply)
	}
	if d.Focus != "" {
		fmt.Fprintf(&b, "**Focus:** %s\n\n", d.Focus)
	}
	if d.Steps.Len() > 0 {
		b.WriteString("## Plan\n\n")
		for pair := d.Steps.Oldest(); pair != nil; pair = pair.Next() {
			fmt.Fprintf(&b, "%d. %s\n", pair.Key, pair.Value)
		}
		b.WriteByte('\n')
	}
	if d.Summary != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n", d.Summary)
	}
	return b.String()
}

type documentJSON struct {
	Project string `json:"project"`
	Reply   string `json:"reply"`
	Focus   string `json:"focus"`
	Steps   []Step `json:"steps"`
	Summary string `json:"summary"`
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentJSON{
		Project: d.Project,
		Reply:   d.Reply,
		Focus:   d.Focus,
		Steps:   d.StepList(),
		Summary: d.Summary,
	})
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var raw documentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Document{
		Project: raw.Project,
		Reply:   raw.Reply,
		Focus:   raw.Focus,
		Steps:   orderedmap.New[int, string](),
		Summary: raw.Summary,
	}
	for _, s := range raw.Steps {
		d.Steps.Set(s.Number, s.Text)
	}
	return nil
}
