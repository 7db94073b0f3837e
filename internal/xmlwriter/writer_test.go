package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generatedAt = time.Date(2025, time.April, 2, 8, 30, 0, 0, time.UTC)

// pain008 decodes the parts of the document the tests look at.
type pain008 struct {
	XMLName xml.Name `xml:"Document"`
	Header  struct {
		MsgID   string `xml:"MsgId"`
		CreDtTm string `xml:"CreDtTm"`
		NbOfTxs int    `xml:"NbOfTxs"`
		CtrlSum string `xml:"CtrlSum"`
		Name    string `xml:"InitgPty>Nm"`
	} `xml:"CstmrDrctDbtInitn>GrpHdr"`
	Payment struct {
		SeqTp        string `xml:"PmtTpInf>SeqTp"`
		LclInstrm    string `xml:"PmtTpInf>LclInstrm>Cd"`
		CollectionDt string `xml:"ReqdColltnDt"`
		CreditorIBAN string `xml:"CdtrAcct>Id>IBAN"`
		SchemeID     string `xml:"CdtrSchmeId>Id>PrvtId>Othr>Id"`
		Transactions []struct {
			EndToEndID string `xml:"PmtId>EndToEndId"`
			Amount     struct {
				Currency string `xml:"Ccy,attr"`
				Value    string `xml:",chardata"`
			} `xml:"InstdAmt"`
			MandateID string `xml:"DrctDbtTx>MndtRltdInf>MndtId"`
			Signed    string `xml:"DrctDbtTx>MndtRltdInf>DtOfSgntr"`
			BIC       string `xml:"DbtrAgt>FinInstnId>BIC"`
			OtherID   string `xml:"DbtrAgt>FinInstnId>Othr>Id"`
			Name      string `xml:"Dbtr>Nm"`
			IBAN      string `xml:"DbtrAcct>Id>IBAN"`
			Text      string `xml:"RmtInf>Ustrd"`
		} `xml:"DrctDbtTxInf"`
	} `xml:"CstmrDrctDbtInitn>PmtInf"`
}

func sampleRemittance() Remittance {
	joined := time.Date(2019, 9, 1, 0, 0, 0, 0, time.UTC)
	return Remittance{
		InitiatingParty: "Club Excursionista",
		Creditor: Creditor{
			Name:     "Club Excursionista",
			IBAN:     "ES9121000418450200051332",
			BIC:      "CAIXESBBXXX",
			SchemeID: "ES12000G12345678",
		},
		SequenceType:   "RCUR",
		CollectionDate: time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC),
		RemittanceText: "Quota de soci",
		Members: []model.Member{
			{Code: "0001", Name: "Anna & Co", IBAN: "DE89370400440532013000", BIC: "DEUTDEFF", Dues: 45.5, JoinDate: &joined},
			{Code: "0002", Name: "Biel", IBAN: "GB82WEST12345698765432", Dues: 0.1},
			{Code: "0003", Name: "Carla", IBAN: "ES9121000418450200051332", BIC: "CAIXESBBXXX", Dues: 0.2},
		},
	}
}

func generate(t *testing.T, r Remittance) ([]byte, pain008) {
	t.Helper()
	options := DefaultGenerateOptions()
	options.Now = func() time.Time { return generatedAt }

	out, err := GenerateSEPA(r, options)
	require.NoError(t, err)

	var doc pain008
	require.NoError(t, xml.Unmarshal(out, &doc))
	return out, doc
}

func TestGenerateSEPA(t *testing.T) {
	out, doc := generate(t, sampleRemittance())

	assert.True(t, bytes.HasPrefix(out, []byte(`<?xml version="1.0" encoding="UTF-8"?>`)))
	assert.Contains(t, string(out), `<Document xmlns="`+Namespace+`">`)

	assert.Len(t, doc.Header.MsgID, 32)
	assert.NotContains(t, doc.Header.MsgID, "-")
	assert.Equal(t, "2025-04-02T08:30:00", doc.Header.CreDtTm)
	assert.Equal(t, 3, doc.Header.NbOfTxs)
	assert.Equal(t, "45.80", doc.Header.CtrlSum)
	assert.Equal(t, "Club Excursionista", doc.Header.Name)

	assert.Equal(t, "RCUR", doc.Payment.SeqTp)
	assert.Equal(t, "CORE", doc.Payment.LclInstrm)
	assert.Equal(t, "2025-04-07", doc.Payment.CollectionDt)
	assert.Equal(t, "ES9121000418450200051332", doc.Payment.CreditorIBAN)
	assert.Equal(t, "ES12000G12345678", doc.Payment.SchemeID)

	require.Len(t, doc.Payment.Transactions, 3)
	first := doc.Payment.Transactions[0]
	assert.Equal(t, "0001", first.EndToEndID)
	assert.Equal(t, "0001", first.MandateID)
	assert.Equal(t, "EUR", first.Amount.Currency)
	assert.Equal(t, "45.50", first.Amount.Value)
	assert.Equal(t, "2019-09-01", first.Signed)
	assert.Equal(t, "DEUTDEFF", first.BIC)
	assert.Equal(t, "Anna & Co", first.Name)
	assert.Equal(t, "Quota de soci", first.Text)

	second := doc.Payment.Transactions[1]
	assert.Equal(t, "0.10", second.Amount.Value)
	assert.Equal(t, "2025-04-02", second.Signed)
	assert.Empty(t, second.BIC)
	assert.Equal(t, "NOTPROVIDED", second.OtherID)
}

func TestGenerateSEPA_FixedMessageIDAndLongName(t *testing.T) {
	r := sampleRemittance()
	r.Members = r.Members[:1]
	r.Members[0].Name = strings.Repeat("ñ", 80)

	options := DefaultGenerateOptions()
	options.MessageID = "REMESA-2025-04"
	options.IncludeXMLDeclaration = false
	out, err := GenerateSEPA(r, options)
	require.NoError(t, err)

	var doc pain008
	require.NoError(t, xml.Unmarshal(out, &doc))
	assert.Equal(t, "REMESA-2025-04", doc.Header.MsgID)
	assert.Equal(t, 70, len([]rune(doc.Payment.Transactions[0].Name)))
	assert.True(t, bytes.HasPrefix(out, []byte("<Document")))
}

func TestGenerateSEPA_Rejects(t *testing.T) {
	r := sampleRemittance()
	r.Creditor.SchemeID = ""
	_, err := GenerateSEPA(r, DefaultGenerateOptions())
	assert.True(t, errors.Is(err, apperror.ErrConfiguration))

	r = sampleRemittance()
	r.Members = nil
	_, err = GenerateSEPA(r, DefaultGenerateOptions())
	assert.Error(t, err)
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;c&gt; &quot;d&quot; &apos;e&apos;", escapeXML(`a & b <c> "d" 'e'`))
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.05", formatCents(toCents(0.05)))
	assert.Equal(t, "12.00", formatCents(toCents(12)))
	assert.Equal(t, "20.00", formatCents(toCents(19.999)))
}
