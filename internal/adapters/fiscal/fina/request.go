package fina

import (
	"strconv"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// Protocol constants for the f73 schema.
const (
	nsTNS = "http://www.apis-it.hr/fin/2012/types/f73"
	nsXSI = "http://www.w3.org/2001/XMLSchema-instance"
	nsDS  = "http://www.w3.org/2000/09/xmldsig#"

	// NacinPlac K: card payment. The engine fiscalizes confirmed card
	// payments only.
	paymentMethodCard = "K"
	// OznSlijed P: numbering sequence scoped to the premises.
	sequenceMarkPremises = "P"
)

// Identity carries the issuing entity's protocol identifiers.
type Identity struct {
	CompanyOIB  string
	OperatorOIB string
	LocationID  string
	RegisterID  string
}

// RequestParams are the per-attempt fields of a RacunZahtjev.
type RequestParams struct {
	MessageID     string // IdPoruke, one UUID per attempt
	NodeID        string // signature reference target, Id attribute on the root
	RequestTime   string // attempt time, already in protocol local format
	PaymentTime   string // original payment time, already in protocol local format
	ReceiptNumber int64
	Amount        decimal.Decimal
	ZKI           string
}

// BuildRequest assembles the RacunZahtjev document: header with message
// identifiers, business section with the receipt fields and the protective
// code. Pure data-to-document transformation; no I/O, no crypto.
//
// The VAT section reflects the reverse-charge/exempt case: the full amount
// appears as IznosOslobPdv and IznosUkupno with no rate breakdown.
func BuildRequest(id Identity, p RequestParams) *etree.Document {
	amount := p.Amount.StringFixed(2)

	doc := etree.NewDocument()

	root := doc.CreateElement("tns:RacunZahtjev")
	root.CreateAttr("xmlns:tns", nsTNS)
	root.CreateAttr("xmlns:xsi", nsXSI)
	root.CreateAttr("Id", p.NodeID)

	header := root.CreateElement("tns:Zaglavlje")
	header.CreateElement("tns:IdPoruke").SetText(p.MessageID)
	header.CreateElement("tns:DatumVrijeme").SetText(p.RequestTime)

	racun := root.CreateElement("tns:Racun")
	racun.CreateElement("tns:Oib").SetText(id.CompanyOIB)
	racun.CreateElement("tns:USustPdv").SetText("true")
	racun.CreateElement("tns:DatVrijeme").SetText(p.PaymentTime)
	racun.CreateElement("tns:OznSlijed").SetText(sequenceMarkPremises)

	brRac := racun.CreateElement("tns:BrRac")
	brRac.CreateElement("tns:BrOznRac").SetText(strconv.FormatInt(p.ReceiptNumber, 10))
	brRac.CreateElement("tns:OznPosPr").SetText(id.LocationID)
	brRac.CreateElement("tns:OznNapUr").SetText(id.RegisterID)

	racun.CreateElement("tns:IznosOslobPdv").SetText(amount)
	racun.CreateElement("tns:IznosUkupno").SetText(amount)
	racun.CreateElement("tns:NacinPlac").SetText(paymentMethodCard)
	racun.CreateElement("tns:OibOper").SetText(id.OperatorOIB)
	racun.CreateElement("tns:ZastKod").SetText(p.ZKI)
	racun.CreateElement("tns:NakDost").SetText("false")

	return doc
}
