package farmer

import (
	"fmt"
	"strings"
)

// The MSN shopping page hides everything behind nested shadow roots, so plain
// selectors cannot reach its elements. A shadowStep is one hop through the
// composed tree; a path of steps compiles to a script that resolves the
// target element and runs a small body against it.
type shadowStep struct {
	kind stepKind
	arg  string
	idx  int
}

type stepKind int

const (
	stepTag stepKind = iota
	stepShadow
	stepQuery
	stepClass
	stepChild
)

func tag(name string) shadowStep { return shadowStep{kind: stepTag, arg: name} }

func shadow() shadowStep { return shadowStep{kind: stepShadow} }

func query(selector string) shadowStep { return shadowStep{kind: stepQuery, arg: selector} }

func class(name string) shadowStep { return shadowStep{kind: stepClass, arg: name} }

func child(i int) shadowStep { return shadowStep{kind: stepChild, idx: i} }

// shadowEval compiles a path walk followed by body, with the resolved element
// bound to `el`. Any miss along the path yields null, never a script error.
func shadowEval(path []shadowStep, body string) string {
	var b strings.Builder
	b.WriteString("(() => { try {\nlet el = document;\n")
	for _, step := range path {
		switch step.kind {
		case stepTag:
			fmt.Fprintf(&b, "el = el.getElementsByTagName(%q)[0];\n", step.arg)
		case stepShadow:
			b.WriteString("el = el.shadowRoot;\n")
		case stepQuery:
			fmt.Fprintf(&b, "el = el.querySelector(%q);\n", step.arg)
		case stepClass:
			fmt.Fprintf(&b, "el = el.getElementsByClassName(%q)[0];\n", step.arg)
		case stepChild:
			fmt.Fprintf(&b, "el = el.children[%d];\n", step.idx)
		}
		b.WriteString("if (!el) return null;\n")
	}
	b.WriteString(body)
	b.WriteString("\n} catch (e) { return null; } })()")
	return b.String()
}
