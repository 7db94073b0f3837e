// =============================================================================
// Roster Sync - SEPA XML Writer
// =============================================================================
//
// Generates SEPA direct debit initiation documents (ISO 20022
// pain.008.001.02) for collecting member dues.
//
// XML STRUCTURE:
//
//   <Document xmlns="urn:iso:std:iso:20022:tech:xsd:pain.008.001.02">
//     <CstmrDrctDbtInitn>
//       <GrpHdr>                       <!-- message id, totals, initiator -->
//       <PmtInf>                       <!-- one payment block -->
//         <PmtTpInf>                   <!-- SEPA / CORE / sequence type -->
//         <ReqdColltnDt>
//         <Cdtr> <CdtrAcct> <CdtrAgt>  <!-- the club -->
//         <CdtrSchmeId>                <!-- creditor identifier -->
//         <DrctDbtTxInf>               <!-- one per member -->
//           <PmtId><EndToEndId>        <!-- member code -->
//           <InstdAmt Ccy="EUR">
//           <DrctDbtTx><MndtRltdInf>   <!-- mandate id = member code -->
//           <DbtrAgt> <Dbtr> <DbtrAcct>
//           <RmtInf><Ustrd>
//       </PmtInf>
//     </CstmrDrctDbtInitn>
//   </Document>
//
// Amounts are written with two decimals and summed in cents so CtrlSum always
// equals the sum of the transaction amounts.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/model"
	"github.com/google/uuid"
)

// Namespace is the pain.008.001.02 document namespace.
const Namespace = "urn:iso:std:iso:20022:tech:xsd:pain.008.001.02"

const (
	maxNameLength = 70
	maxIDLength   = 35
	maxTextLength = 140
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// XMLVersion is the XML version for the declaration.
	// Default: "1.0"
	XMLVersion string

	// Encoding is the encoding for the XML declaration.
	// Default: "UTF-8"
	Encoding string

	// MessageID overrides the generated message id.
	// Default: "" (a UUID without dashes)
	MessageID string

	// Now is the creation timestamp.
	// Default: time.Now
	Now func() time.Time
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		XMLVersion:            "1.0",
		Encoding:              "UTF-8",
		Now:                   time.Now,
	}
}

// =============================================================================
// REMITTANCE
// =============================================================================

// Creditor is the organisation collecting the dues.
type Creditor struct {
	Name string
	IBAN string
	BIC  string
	// SchemeID is the SEPA creditor identifier (e.g. ES12000B12345678).
	SchemeID string
}

// Remittance is one collection run.
type Remittance struct {
	InitiatingParty string
	Creditor        Creditor

	// SequenceType is FRST, RCUR, OOFF or FNAL.
	SequenceType   string
	CollectionDate time.Time
	RemittanceText string

	// Members must already be validated; each needs a name, IBAN and
	// positive dues.
	Members []model.Member
}

// Totals returns the number of transactions and the control sum in cents.
func (r Remittance) Totals() (int, int64) {
	var cents int64
	for _, member := range r.Members {
		cents += toCents(member.Dues)
	}
	return len(r.Members), cents
}

func (r Remittance) check() error {
	var missing []string
	if r.Creditor.Name == "" && r.InitiatingParty == "" {
		missing = append(missing, "creditor name")
	}
	if r.Creditor.IBAN == "" {
		missing = append(missing, "creditor IBAN")
	}
	if r.Creditor.SchemeID == "" {
		missing = append(missing, "creditor identifier")
	}
	if len(missing) > 0 {
		return fmt.Errorf("remittance is missing %s: %w", strings.Join(missing, ", "), apperror.ErrConfiguration)
	}
	if len(r.Members) == 0 {
		return fmt.Errorf("remittance has no members")
	}
	return nil
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// GenerateSEPA renders a pain.008.001.02 document for the remittance.
//
// PARAMETERS:
//   - remittance: Creditor data and the members to collect from.
//   - options: Formatting options. Empty strings and a nil Now take the
//     values of DefaultGenerateOptions.
//
// RETURNS:
//   - The XML document as a byte slice.
//   - An error wrapping apperror.ErrConfiguration when creditor data is
//     missing, or an error when there is nothing to collect.
func GenerateSEPA(remittance Remittance, options GenerateOptions) ([]byte, error) {
	if err := remittance.check(); err != nil {
		return nil, err
	}
	options = withDefaults(options)

	now := options.Now()
	messageID := options.MessageID
	if messageID == "" {
		messageID = newID()
	}

	var buffer bytes.Buffer
	if options.IncludeXMLDeclaration {
		buffer.WriteString(fmt.Sprintf("<?xml version=\"%s\" encoding=\"%s\"?>\n",
			options.XMLVersion, options.Encoding))
	}

	document := XMLElement{
		XMLName:    xml.Name{Local: "Document"},
		Attributes: []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: Namespace}},
		Children: []XMLElement{
			element("CstmrDrctDbtInitn",
				buildGroupHeader(remittance, messageID, now),
				buildPaymentInfo(remittance, now),
			),
		},
	}
	writeElement(&buffer, document, options.Indent, 0)

	return buffer.Bytes(), nil
}

func withDefaults(options GenerateOptions) GenerateOptions {
	defaults := DefaultGenerateOptions()
	if options.Indent == "" {
		options.Indent = defaults.Indent
	}
	if options.XMLVersion == "" {
		options.XMLVersion = defaults.XMLVersion
	}
	if options.Encoding == "" {
		options.Encoding = defaults.Encoding
	}
	if options.Now == nil {
		options.Now = defaults.Now
	}
	return options
}

// =============================================================================
// XML DOCUMENT BUILDING
// =============================================================================

// XMLElement represents a generic XML element.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr   `xml:",attr"`
	Value      string       `xml:",chardata"`
	Children   []XMLElement `xml:",any"`
}

func buildGroupHeader(r Remittance, messageID string, now time.Time) XMLElement {
	count, cents := r.Totals()
	initiator := r.InitiatingParty
	if initiator == "" {
		initiator = r.Creditor.Name
	}

	return element("GrpHdr",
		createSimpleElement("MsgId", truncate(messageID, maxIDLength)),
		createSimpleElement("CreDtTm", now.Format("2006-01-02T15:04:05")),
		createSimpleElement("NbOfTxs", fmt.Sprintf("%d", count)),
		createSimpleElement("CtrlSum", formatCents(cents)),
		element("InitgPty", createSimpleElement("Nm", truncate(initiator, maxNameLength))),
	)
}

func buildPaymentInfo(r Remittance, now time.Time) XMLElement {
	count, cents := r.Totals()
	creditorName := r.Creditor.Name
	if creditorName == "" {
		creditorName = r.InitiatingParty
	}
	collection := r.CollectionDate
	if collection.IsZero() {
		collection = now
	}

	payment := element("PmtInf",
		createSimpleElement("PmtInfId", truncate(newID(), maxIDLength)),
		createSimpleElement("PmtMtd", "DD"),
		createSimpleElement("NbOfTxs", fmt.Sprintf("%d", count)),
		createSimpleElement("CtrlSum", formatCents(cents)),
		element("PmtTpInf",
			element("SvcLvl", createSimpleElement("Cd", "SEPA")),
			element("LclInstrm", createSimpleElement("Cd", "CORE")),
			createSimpleElement("SeqTp", r.SequenceType),
		),
		createSimpleElement("ReqdColltnDt", collection.Format(model.DateLayout)),
		element("Cdtr", createSimpleElement("Nm", truncate(creditorName, maxNameLength))),
		element("CdtrAcct", element("Id", createSimpleElement("IBAN", r.Creditor.IBAN))),
		agent("CdtrAgt", r.Creditor.BIC),
		createSimpleElement("ChrgBr", "SLEV"),
		element("CdtrSchmeId",
			element("Id",
				element("PrvtId",
					element("Othr",
						createSimpleElement("Id", r.Creditor.SchemeID),
						element("SchmeNm", createSimpleElement("Prtry", "SEPA")),
					),
				),
			),
		),
	)

	for _, member := range r.Members {
		payment.Children = append(payment.Children, buildTransaction(member, r.RemittanceText, now))
	}
	return payment
}

// buildTransaction constructs one DrctDbtTxInf element.
//
// STRUCTURE:
//   <DrctDbtTxInf>
//     <PmtId><EndToEndId>0042</EndToEndId></PmtId>
//     <InstdAmt Ccy="EUR">45.00</InstdAmt>
//     <DrctDbtTx><MndtRltdInf>...</MndtRltdInf></DrctDbtTx>
//     <DbtrAgt>...</DbtrAgt>
//     <Dbtr><Nm>...</Nm></Dbtr>
//     <DbtrAcct><Id><IBAN>...</IBAN></Id></DbtrAcct>
//     <RmtInf><Ustrd>...</Ustrd></RmtInf>
//   </DrctDbtTxInf>
func buildTransaction(member model.Member, text string, now time.Time) XMLElement {
	signed := now
	if member.JoinDate != nil {
		signed = *member.JoinDate
	}

	amount := createSimpleElement("InstdAmt", formatCents(toCents(member.Dues)))
	amount.Attributes = []xml.Attr{{Name: xml.Name{Local: "Ccy"}, Value: "EUR"}}

	tx := element("DrctDbtTxInf",
		element("PmtId", createSimpleElement("EndToEndId", truncate(member.Code, maxIDLength))),
		amount,
		element("DrctDbtTx",
			element("MndtRltdInf",
				createSimpleElement("MndtId", truncate(member.Code, maxIDLength)),
				createSimpleElement("DtOfSgntr", signed.Format(model.DateLayout)),
			),
		),
		agent("DbtrAgt", member.BIC),
		element("Dbtr", createSimpleElement("Nm", truncate(member.Name, maxNameLength))),
		element("DbtrAcct", element("Id", createSimpleElement("IBAN", member.IBAN))),
	)
	if text != "" {
		tx.Children = append(tx.Children, element("RmtInf", createSimpleElement("Ustrd", truncate(text, maxTextLength))))
	}
	return tx
}

// agent renders a financial institution. Without a BIC the institution is
// marked NOTPROVIDED.
func agent(name, bic string) XMLElement {
	if bic == "" {
		return element(name, element("FinInstnId", element("Othr", createSimpleElement("Id", "NOTPROVIDED"))))
	}
	return element(name, element("FinInstnId", createSimpleElement("BIC", bic)))
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// createSimpleElement creates a simple XML element with a text value.
func createSimpleElement(name, value string) XMLElement {
	return XMLElement{
		XMLName: xml.Name{Local: name},
		Value:   value,
	}
}

func element(name string, children ...XMLElement) XMLElement {
	return XMLElement{
		XMLName:  xml.Name{Local: name},
		Children: children,
	}
}

func newID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, elem XMLElement, indent string, level int) {
	// Write indentation.
	buffer.WriteString(strings.Repeat(indent, level))

	// Write opening tag.
	buffer.WriteString("<")
	buffer.WriteString(elem.XMLName.Local)

	// Write attributes.
	for _, attr := range elem.Attributes {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", attr.Name.Local, escapeXML(attr.Value)))
	}

	if len(elem.Children) == 0 && elem.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if elem.Value != "" {
		buffer.WriteString(escapeXML(elem.Value))
	} else {
		buffer.WriteString("\n")
		for _, child := range elem.Children {
			writeElement(buffer, child, indent, level+1)
		}
		buffer.WriteString(strings.Repeat(indent, level))
	}

	// Write closing tag.
	buffer.WriteString("</")
	buffer.WriteString(elem.XMLName.Local)
	buffer.WriteString(">\n")
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}
