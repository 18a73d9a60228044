package fina

import (
	"strings"

	"fiskal/internal/core/receipt"

	"github.com/beevik/etree"
)

// ServiceFault is the authority's structured error.
type ServiceFault struct {
	Code    string
	Message string
}

// Retryable reports whether the fault is a service/availability condition
// rather than a data fault. Service fault codes carry an "s" prefix
// (s001…); everything else means the submission itself was rejected and
// resubmitting unchanged data will fail again.
func (f ServiceFault) Retryable() bool {
	return strings.HasPrefix(strings.ToLower(f.Code), "s")
}

// Reply is the interpreted authority response: either a JIR or at least
// one fault.
type Reply struct {
	JIR    string
	Faults []ServiceFault
}

// Interpret parses the raw response body. A body that yields neither a JIR
// nor a structured fault is the ambiguous outcome: the attempt must not be
// assumed successful just because a response arrived, and must not be
// resubmitted automatically because the authority may already have
// registered it.
func Interpret(body []byte) (Reply, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return Reply{}, receipt.Ambiguousf("unparseable authority response: %v", err)
	}

	root := doc.Root()
	if root == nil {
		return Reply{}, receipt.Ambiguousf("empty authority response")
	}

	var reply Reply
	walk(root, func(el *etree.Element) {
		switch el.Tag {
		case "Jir":
			if reply.JIR == "" {
				reply.JIR = strings.TrimSpace(el.Text())
			}
		case "Greska":
			fault := ServiceFault{}
			for _, child := range el.ChildElements() {
				switch child.Tag {
				case "SifraGreske":
					fault.Code = strings.TrimSpace(child.Text())
				case "PorukaGreske":
					fault.Message = strings.TrimSpace(child.Text())
				}
			}
			if fault.Code != "" || fault.Message != "" {
				reply.Faults = append(reply.Faults, fault)
			}
		}
	})

	if reply.JIR == "" && len(reply.Faults) == 0 {
		return Reply{}, receipt.Ambiguousf("authority response carries neither JIR nor fault")
	}
	return reply, nil
}

func walk(el *etree.Element, visit func(*etree.Element)) {
	visit(el)
	for _, child := range el.ChildElements() {
		walk(child, visit)
	}
}
