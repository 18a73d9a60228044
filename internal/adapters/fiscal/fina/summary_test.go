package fina

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestXMLToYAML(t *testing.T) {
	doc := BuildRequest(testIdentity(), testParams())
	xmlData, err := doc.WriteToBytes()
	if err != nil {
		t.Fatalf("serializing: %v", err)
	}

	out, err := xmlToYAML(xmlData)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(out, &tree); err != nil {
		t.Fatalf("summary is not valid YAML: %v", err)
	}

	zahtjev, ok := tree["RacunZahtjev"].(map[string]any)
	if !ok {
		t.Fatalf("missing RacunZahtjev root, got %v", tree)
	}
	racun, ok := zahtjev["Racun"].(map[string]any)
	if !ok {
		t.Fatalf("missing Racun section, got %v", zahtjev)
	}
	if racun["IznosUkupno"] != "25.50" {
		t.Errorf("unexpected amount in summary: %v", racun["IznosUkupno"])
	}
}

func TestResponseToYAMLDropsSignature(t *testing.T) {
	response := `<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <tns:RacunOdgovor xmlns:tns="http://www.apis-it.hr/fin/2012/types/f73">
      <tns:Jir>abc-123</tns:Jir>
      <Signature xmlns="http://www.w3.org/2000/09/xmldsig#">
        <SignatureValue>AAAA</SignatureValue>
      </Signature>
    </tns:RacunOdgovor>
  </soap:Body>
</soap:Envelope>`

	out, err := responseToYAML([]byte(response))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(out, &tree); err != nil {
		t.Fatalf("summary is not valid YAML: %v", err)
	}
	odgovor, ok := tree["RacunOdgovor"].(map[string]any)
	if !ok {
		t.Fatalf("missing RacunOdgovor, got %v", tree)
	}
	if odgovor["Jir"] != "abc-123" {
		t.Errorf("missing JIR in summary: %v", odgovor)
	}
	if _, present := odgovor["Signature"]; present {
		t.Error("signature subtree must be dropped from the summary")
	}
}

func TestResponseToYAMLRejectsEmptyBody(t *testing.T) {
	response := `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body/></soap:Envelope>`
	if _, err := responseToYAML([]byte(response)); err == nil {
		t.Error("expected error for empty SOAP body")
	}
}
