package plan

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	headerProject = "Project Name:"
	headerReply   = "Your Reply to the Human Prompter:"
	headerFocus   = "Current Focus:"
	headerPlan    = "Plan:"
	headerSummary = "Summary:"
)

type section int

const (
	sectionNone section = iota
	sectionProject
	sectionReply
	sectionFocus
	sectionPlans
	sectionSummary
)

// headers are checked in order against each trimmed line; the first prefix
// match switches section and seeds the field with the rest of the line.
// Inside the plan only Plan: and Summary: switch; any other header-like line
// there continues the current step.
var headers = []struct {
	prefix  string
	section section
}{
	{headerPlan, sectionPlans},
	{headerSummary, sectionSummary},
	{headerProject, sectionProject},
	{headerReply, sectionReply},
	{"Reply:", sectionReply},
	{headerFocus, sectionFocus},
	{"Focus:", sectionFocus},
}

var stepHeader = regexp.MustCompile(`^(?:- \[[ xX]\] )?Step\s*(\d+):\s*(.*)$`)

const codeFence = "```"

// Parse scrapes a Document out of planner text. It never fails: text that
// does not fit the layout is ignored and leaves fields empty.
func Parse(text string) *Document {
	doc := NewDocument()
	var (
		current section
		step    int
		project strings.Builder
		reply   strings.Builder
		focus   strings.Builder
		summary strings.Builder
	)
	appendTo := func(b *strings.Builder, s string) {
		if s == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		if next, rest, ok := matchHeader(line, current); ok {
			current = next
			switch next {
			case sectionPlans:
				step = 0
			case sectionSummary:
				summary.Reset()
				appendTo(&summary, strings.TrimSpace(strings.ReplaceAll(rest, codeFence, "")))
			case sectionProject:
				project.Reset()
				appendTo(&project, rest)
			case sectionReply:
				reply.Reset()
				appendTo(&reply, rest)
			case sectionFocus:
				focus.Reset()
				appendTo(&focus, rest)
			}
			continue
		}
		if line == "" {
			continue
		}

		switch current {
		case sectionProject, sectionReply, sectionFocus:
			if n, body, ok := matchStep(line); ok {
				current = sectionPlans
				step = n
				doc.Steps.Set(n, strings.TrimSpace(body))
				continue
			}
		}

		switch current {
		case sectionPlans:
			if n, body, ok := matchStep(line); ok {
				step = n
				doc.Steps.Set(n, strings.TrimSpace(body))
				continue
			}
			if step > 0 {
				prev, _ := doc.Steps.Get(step)
				if prev == "" {
					doc.Steps.Set(step, line)
				} else {
					doc.Steps.Set(step, prev+" "+line)
				}
			}
		case sectionSummary:
			appendTo(&summary, strings.TrimSpace(strings.ReplaceAll(line, codeFence, "")))
		case sectionReply:
			appendTo(&reply, line)
		case sectionFocus:
			appendTo(&focus, line)
		}
	}

	doc.Project = strings.TrimSpace(project.String())
	doc.Reply = strings.TrimSpace(reply.String())
	doc.Focus = strings.TrimSpace(focus.String())
	doc.Summary = strings.TrimSpace(summary.String())
	return doc
}

func matchHeader(line string, current section) (section, string, bool) {
	for _, h := range headers {
		if current == sectionPlans && h.section != sectionPlans && h.section != sectionSummary {
			continue
		}
		if strings.HasPrefix(line, h.prefix) {
			return h.section, strings.TrimSpace(line[len(h.prefix):]), true
		}
	}
	return sectionNone, "", false
}

func matchStep(line string) (int, string, bool) {
	m := stepHeader.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, "", false
	}
	return n, m[2], true
}
