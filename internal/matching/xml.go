package matching

import (
	"errors"
	"strings"

	"github.com/beevik/etree"
)

// XML placeholders a stubbed document may use in element text or attribute
// values.
const (
	placeholderRegexPrefix = "${xmlunit.matchesRegex("
	placeholderRegexSuffix = ")}"
	placeholderIgnore      = "${xmlunit.ignore}"
)

var errNoRoot = errors.New("document has no root element")

// xmlMatch compares two XML documents structurally. When either side fails to
// parse, the raw bodies are compared as strings.
func (m *Matcher) xmlMatch(stubbed, asserting string, tokens map[string]string) bool {
	want, err := parseXML(stubbed)
	if err != nil {
		m.degrade(DegradedXML, "stubbed", err)
		return m.StringsMatch(stubbed, asserting, TokenPost, tokens)
	}
	got, err := parseXML(asserting)
	if err != nil {
		m.degrade(DegradedXML, "asserting", err)
		return m.StringsMatch(stubbed, asserting, TokenPost, tokens)
	}
	return m.elementsEqual(want, got, tokens)
}

func parseXML(s string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, errNoRoot
	}
	return root, nil
}

// elementsEqual compares name, attributes, normalized text and child
// elements. Children are paired regardless of order. Names are compared by
// namespace URI and local name, so documents that only differ in prefixes
// match.
func (m *Matcher) elementsEqual(want, got *etree.Element, tokens map[string]string) bool {
	if want.Tag != got.Tag || want.NamespaceURI() != got.NamespaceURI() {
		return false
	}
	wa, ga := attributes(want), attributes(got)
	if len(wa) != len(ga) {
		return false
	}
	for k, v := range wa {
		gv, ok := ga[k]
		if !ok || !m.xmlValueMatch(v, gv, tokens) {
			return false
		}
	}
	if !m.xmlValueMatch(elementText(want), elementText(got), tokens) {
		return false
	}

	wc, gc := want.ChildElements(), got.ChildElements()
	if len(wc) != len(gc) {
		return false
	}
	used := make([]bool, len(gc))
next:
	for _, w := range wc {
		for i, g := range gc {
			if used[i] {
				continue
			}
			// Pairing attempts write into a scratch map so a failed pairing
			// leaves no tokens behind.
			scratch := map[string]string{}
			if m.elementsEqual(w, g, scratch) {
				used[i] = true
				for k, v := range scratch {
					tokens[k] = v
				}
				continue next
			}
		}
		return false
	}
	return true
}

// xmlValueMatch compares text or attribute values, honouring placeholders.
func (m *Matcher) xmlValueMatch(want, got string, tokens map[string]string) bool {
	if want == placeholderIgnore {
		return true
	}
	if strings.HasPrefix(want, placeholderRegexPrefix) && strings.HasSuffix(want, placeholderRegexSuffix) {
		expr := strings.TrimSuffix(strings.TrimPrefix(want, placeholderRegexPrefix), placeholderRegexSuffix)
		return m.patterns.Match(expr, got, TokenPost, tokens)
	}
	return want == got
}

// attributes returns the element's attribute values keyed by namespace URI
// and local name. Namespace declarations are not attributes.
func attributes(e *etree.Element) map[string]string {
	out := make(map[string]string, len(e.Attr))
	for i := range e.Attr {
		a := &e.Attr[i]
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		key := a.Key
		if a.Space != "" {
			key = "{" + a.NamespaceURI() + "}" + a.Key
		}
		out[key] = a.Value
	}
	return out
}

// elementText returns the element's direct character data with whitespace
// collapsed. Comments and processing instructions are skipped.
func elementText(e *etree.Element) string {
	var sb strings.Builder
	for _, t := range e.Child {
		if cd, ok := t.(*etree.CharData); ok {
			sb.WriteString(cd.Data)
			sb.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
