package fina

import (
	"fmt"

	"github.com/beevik/etree"
	"gopkg.in/yaml.v3"
)

// xmlToYAML renders an XML document as a YAML tree keyed by local element
// names. The archival collaborator stores these alongside the raw XML so
// operators can read an exchange without an XML tool.
func xmlToYAML(xmlData []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlData); err != nil {
		return nil, fmt.Errorf("parsing XML for summary: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	return yaml.Marshal(map[string]any{root.Tag: elementToValue(root)})
}

// responseToYAML summarizes a SOAP response: the first Body child, with
// Signature subtrees dropped for readability.
func responseToYAML(xmlData []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlData); err != nil {
		return nil, fmt.Errorf("parsing response for summary: %w", err)
	}

	var body *etree.Element
	if root := doc.Root(); root != nil {
		walk(root, func(el *etree.Element) {
			if body == nil && el.Tag == "Body" {
				body = el
			}
		})
	}
	if body == nil || len(body.ChildElements()) == 0 {
		return nil, fmt.Errorf("response has no SOAP Body content")
	}

	main := body.ChildElements()[0]
	return yaml.Marshal(map[string]any{main.Tag: elementToValue(main)})
}

func elementToValue(el *etree.Element) any {
	children := el.ChildElements()
	if len(children) == 0 {
		return el.Text()
	}
	result := make(map[string]any, len(children))
	for _, child := range children {
		if child.Tag == "Signature" {
			continue
		}
		result[child.Tag] = elementToValue(child)
	}
	return result
}
