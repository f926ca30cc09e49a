package synth

import (
	"fmt"
	mathrand "math/rand/v2"
	"strings"

	"github.com/beevik/etree"
	"github.com/getmocknode/mocknode/pkg/mock"
	"gopkg.in/yaml.v3"
)

// RandomText generates a self-contained fragment of the requested
// sub-type. length sizes the output (paragraphs, elements, or rows
// depending on the sub-type); values below 1 are clamped to 1.
func RandomText(textType mock.TextType, length int) string {
	if length < 1 {
		length = 1
	}
	if length > 1000 {
		length = 1000
	}

	switch textType {
	case mock.TextHTML:
		return randomHTML(length)
	case mock.TextXML:
		return randomXML(length)
	case mock.TextYAML:
		return randomYAML(length)
	case mock.TextCSV:
		return randomCSV(length)
	default:
		return randomPlain(length)
	}
}

func randomPlain(paragraphs int) string {
	var b strings.Builder
	for i := 0; i < paragraphs; i++ {
		if i > 0 {
			b.WriteString("\n\n")
		}
		sentences := mathrand.IntN(3) + 2
		for j := 0; j < sentences; j++ {
			if j > 0 {
				b.WriteByte(' ')
			}
			s := sentence(mathrand.IntN(6) + 4)
			b.WriteString(strings.ToUpper(s[:1]) + s[1:] + ".")
		}
	}
	return b.String()
}

func randomHTML(sections int) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><title>")
	b.WriteString(sentence(2))
	b.WriteString("</title></head>\n<body>\n")
	for i := 0; i < sections; i++ {
		fmt.Fprintf(&b, "  <section>\n    <h2>%s</h2>\n    <p>%s</p>\n  </section>\n",
			sentence(3), sentence(10))
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// randomXML builds a well-formed document with etree so escaping and
// indentation are always valid.
func randomXML(records int) string {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("records")
	for i := 0; i < records; i++ {
		rec := root.CreateElement("record")
		rec.CreateAttr("id", fmt.Sprintf("%d", i+1))
		rec.CreateElement("name").SetText(fullName())
		rec.CreateElement("city").SetText(pick(cities))
		rec.CreateElement("status").SetText(pick(statuses))
	}
	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return "<records/>"
	}
	return out
}

func randomYAML(entries int) string {
	type entry struct {
		Name   string `yaml:"name"`
		City   string `yaml:"city"`
		Role   string `yaml:"role"`
		Active bool   `yaml:"active"`
	}
	list := make([]entry, entries)
	for i := range list {
		list[i] = entry{
			Name:   fullName(),
			City:   pick(cities),
			Role:   pick(roles),
			Active: mathrand.IntN(2) == 0,
		}
	}
	out, err := yaml.Marshal(map[string]any{"entries": list})
	if err != nil {
		return "entries: []\n"
	}
	return string(out)
}

func randomCSV(rows int) string {
	var b strings.Builder
	b.WriteString("id,name,email,city,status\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%d,%s,%s,%s,%s\n",
			i+1, fullName(), pick(words)+"@"+pick(domains), pick(cities), pick(statuses))
	}
	return b.String()
}
