package fina

import (
	"encoding/base64"
	"fmt"

	"github.com/beevik/etree"
	"github.com/leifj/signedxml"
)

// XML-DSig algorithm URIs required by the CIS signature profile. SHA-1 and
// RSA-SHA1 are what the authority verifies against; substituting stronger
// algorithms makes the signature invalid to them.
const (
	algExcC14N    = "http://www.w3.org/2001/10/xml-exc-c14n#"
	algEnveloped  = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	algRSASHA1    = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	algDigestSHA1 = "http://www.w3.org/2000/09/xmldsig#sha1"

	nsSOAPEnv = "http://schemas.xmlsoap.org/soap/envelope/"
)

// Signer wraps a RacunZahtjev in the enveloped digital-signature profile
// the authority verifies: exclusive canonicalization, RSA-SHA1 signature
// over a SHA-1 digest of the root element, certificate and issuer/serial
// embedded in KeyInfo.
type Signer struct {
	creds *SigningContext
}

func NewSigner(creds *SigningContext) *Signer {
	return &Signer{creds: creds}
}

// Sign appends the signature template to doc's root (which must carry the
// Id attribute nodeID), then computes digest and signature value over the
// canonicalized document. Returns the finished document serialized for the
// wire.
func (s *Signer) Sign(doc *etree.Document, nodeID string) ([]byte, error) {
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	if root.SelectAttrValue("Id", "") != nodeID {
		return nil, fmt.Errorf("root element Id does not match signature reference %q", nodeID)
	}

	s.appendSignatureTemplate(root, nodeID)

	xmlStr, err := doc.WriteToString()
	if err != nil {
		return nil, fmt.Errorf("serializing document for signing: %w", err)
	}

	signer, err := signedxml.NewSigner(xmlStr)
	if err != nil {
		return nil, fmt.Errorf("creating XML signer: %w", err)
	}
	signer.SetReferenceIDAttribute("Id")

	signed, err := signer.Sign(s.creds.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("signing document: %w", err)
	}

	return []byte(signed), nil
}

// Verify checks the enveloped signature against the signing certificate.
// Used in tests and diagnostics; the authority performs the authoritative
// verification.
func (s *Signer) Verify(signedXML []byte) error {
	validator, err := signedxml.NewValidator(string(signedXML))
	if err != nil {
		return fmt.Errorf("creating XML validator: %w", err)
	}

	validator.Certificates = append(validator.Certificates, *s.creds.Certificate())
	validator.SetReferenceIDAttribute("Id")

	if _, err := validator.ValidateReferences(); err != nil {
		return fmt.Errorf("signature validation failed: %w", err)
	}
	return nil
}

func (s *Signer) appendSignatureTemplate(root *etree.Element, nodeID string) {
	cert := s.creds.Certificate()

	sig := root.CreateElement("Signature")
	sig.CreateAttr("xmlns", nsDS)

	signedInfo := sig.CreateElement("SignedInfo")

	c14n := signedInfo.CreateElement("CanonicalizationMethod")
	c14n.CreateAttr("Algorithm", algExcC14N)

	sigMethod := signedInfo.CreateElement("SignatureMethod")
	sigMethod.CreateAttr("Algorithm", algRSASHA1)

	ref := signedInfo.CreateElement("Reference")
	ref.CreateAttr("URI", "#"+nodeID)

	transforms := ref.CreateElement("Transforms")
	transforms.CreateElement("Transform").CreateAttr("Algorithm", algEnveloped)
	transforms.CreateElement("Transform").CreateAttr("Algorithm", algExcC14N)

	ref.CreateElement("DigestMethod").CreateAttr("Algorithm", algDigestSHA1)
	// signedxml fills digest and signature values during Sign.
	ref.CreateElement("DigestValue").SetText("")

	sig.CreateElement("SignatureValue").SetText("")

	keyInfo := sig.CreateElement("KeyInfo")
	x509Data := keyInfo.CreateElement("X509Data")
	x509Data.CreateElement("X509Certificate").SetText(base64.StdEncoding.EncodeToString(cert.Raw))

	issuerSerial := x509Data.CreateElement("X509IssuerSerial")
	issuerSerial.CreateElement("X509IssuerName").SetText(cert.Issuer.String())
	issuerSerial.CreateElement("X509SerialNumber").SetText(cert.SerialNumber.String())
}

// WrapSOAP embeds the signed document in the SOAP 1.1 envelope the service
// expects as the request body.
func WrapSOAP(signed []byte) ([]byte, error) {
	inner := etree.NewDocument()
	if err := inner.ReadFromBytes(signed); err != nil {
		return nil, fmt.Errorf("parsing signed document: %w", err)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	envelope := doc.CreateElement("soapenv:Envelope")
	envelope.CreateAttr("xmlns:soapenv", nsSOAPEnv)
	body := envelope.CreateElement("soapenv:Body")
	body.AddChild(inner.Root())

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializing envelope: %w", err)
	}
	return out, nil
}
