package fina

import (
	"testing"

	"github.com/shopspring/decimal"
)

func testIdentity() Identity {
	return Identity{
		CompanyOIB:  "12345678901",
		OperatorOIB: "98765432109",
		LocationID:  "POSL1",
		RegisterID:  "1",
	}
}

func testParams() RequestParams {
	return RequestParams{
		MessageID:     "9d6f5bb6-39b5-4f5c-a3f1-111111111111",
		NodeID:        "G0123456789abcde",
		RequestTime:   "14.03.2025T13:30:07",
		PaymentTime:   "14.03.2025T13:30:00",
		ReceiptNumber: 42,
		Amount:        decimal.RequireFromString("25.5"),
		ZKI:           "aabbccddeeff00112233445566778899",
	}
}

func TestBuildRequestStructure(t *testing.T) {
	doc := BuildRequest(testIdentity(), testParams())

	root := doc.Root()
	if root.Tag != "RacunZahtjev" {
		t.Fatalf("unexpected root element %q", root.Tag)
	}
	if got := root.SelectAttrValue("Id", ""); got != "G0123456789abcde" {
		t.Errorf("root Id attribute: got %q", got)
	}
	if got := root.SelectAttrValue("xmlns:tns", ""); got != nsTNS {
		t.Errorf("tns namespace: got %q", got)
	}

	checks := []struct {
		path string
		want string
	}{
		{"./tns:Zaglavlje/tns:IdPoruke", "9d6f5bb6-39b5-4f5c-a3f1-111111111111"},
		{"./tns:Zaglavlje/tns:DatumVrijeme", "14.03.2025T13:30:07"},
		{"./tns:Racun/tns:Oib", "12345678901"},
		{"./tns:Racun/tns:USustPdv", "true"},
		{"./tns:Racun/tns:DatVrijeme", "14.03.2025T13:30:00"},
		{"./tns:Racun/tns:OznSlijed", "P"},
		{"./tns:Racun/tns:BrRac/tns:BrOznRac", "42"},
		{"./tns:Racun/tns:BrRac/tns:OznPosPr", "POSL1"},
		{"./tns:Racun/tns:BrRac/tns:OznNapUr", "1"},
		{"./tns:Racun/tns:IznosOslobPdv", "25.50"},
		{"./tns:Racun/tns:IznosUkupno", "25.50"},
		{"./tns:Racun/tns:NacinPlac", "K"},
		{"./tns:Racun/tns:OibOper", "98765432109"},
		{"./tns:Racun/tns:ZastKod", "aabbccddeeff00112233445566778899"},
		{"./tns:Racun/tns:NakDost", "false"},
	}

	for _, c := range checks {
		el := root.FindElement(c.path)
		if el == nil {
			t.Errorf("missing element %s", c.path)
			continue
		}
		if el.Text() != c.want {
			t.Errorf("%s: got %q, want %q", c.path, el.Text(), c.want)
		}
	}
}

func TestBuildRequestElementOrder(t *testing.T) {
	doc := BuildRequest(testIdentity(), testParams())

	racun := doc.Root().FindElement("./tns:Racun")
	if racun == nil {
		t.Fatal("missing Racun element")
	}

	wantOrder := []string{
		"Oib", "USustPdv", "DatVrijeme", "OznSlijed", "BrRac",
		"IznosOslobPdv", "IznosUkupno", "NacinPlac", "OibOper", "ZastKod", "NakDost",
	}
	children := racun.ChildElements()
	if len(children) != len(wantOrder) {
		t.Fatalf("expected %d children, got %d", len(wantOrder), len(children))
	}
	for i, child := range children {
		if child.Tag != wantOrder[i] {
			t.Errorf("child %d: got %q, want %q", i, child.Tag, wantOrder[i])
		}
	}
}

func TestBuildRequestAmountAlwaysTwoDecimals(t *testing.T) {
	p := testParams()
	p.Amount = decimal.RequireFromString("100")
	doc := BuildRequest(testIdentity(), p)

	el := doc.Root().FindElement("./tns:Racun/tns:IznosUkupno")
	if el == nil || el.Text() != "100.00" {
		t.Errorf("whole amounts must still carry two decimals, got %v", el)
	}
}
