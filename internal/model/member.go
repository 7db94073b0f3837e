// =============================================================================
// Roster Sync - Member Model
// =============================================================================
//
// Member maps one row of the legacy member table. Column names are kept
// exactly as the table defines them; the Go field names describe what each
// column holds.
//
// COLUMN ORDER:
//   Columns is the single source of truth for the field order used by the
//   backup writer (CSV header and row values) and the backup verifier.
//
// =============================================================================

package model

import (
	"strconv"
	"time"
)

// DefaultTable is the member table name used when none is configured.
const DefaultTable = "G_Socis"

// DateLayout is the calendar date format used in backups and reports.
const DateLayout = "2006-01-02"

// Member is a persisted roster entry.
type Member struct {
	Code             string     `gorm:"column:FAMID;primaryKey;size:20"`
	Name             string     `gorm:"column:FAMNom;size:200"`
	Address          string     `gorm:"column:FAMAdressa;size:200"`
	City             string     `gorm:"column:FAMPoblacio;size:100"`
	PostalCode       string     `gorm:"column:FAMCodPos;size:10"`
	Phone            string     `gorm:"column:FAMTelefon;size:30"`
	Mobile           string     `gorm:"column:FAMMobil;size:30"`
	Email            string     `gorm:"column:FAMEmail;size:150"`
	JoinDate         *time.Time `gorm:"column:FAMDataAlta"`
	IBAN             string     `gorm:"column:FAMIBAN;size:34"`
	BIC              string     `gorm:"column:FAMBIC;size:11"`
	IsDeactivated    bool       `gorm:"column:bBaixa;not null;default:false"`
	Notes            string     `gorm:"column:FAMObservacions;size:500"`
	NationalID       string     `gorm:"column:FAMNIF;size:20"`
	BirthDate        *time.Time `gorm:"column:FAMDataNaixement"`
	Dues             float64    `gorm:"column:FAMQuota;not null;default:0"`
	DeactivationDate *time.Time `gorm:"column:FAMDataBaixa"`
	Sex              string     `gorm:"column:FAMSexe;size:1"`
	PartnerCode      string     `gorm:"column:FAMSociReferencia;size:20"`
	DirectDebit      bool       `gorm:"column:FAMbPagamentDomiciliat;not null;default:false"`
	ReceiptCollected bool       `gorm:"column:FAMbRebutCobrat;not null;default:false"`
	CounterPayment   bool       `gorm:"column:FAMPagamentFinestreta;not null;default:false"`
	EmergencyPhone   string     `gorm:"column:FAMTelefonEmergencia;size:30"`
}

// TableName returns the default table; repositories override it with
// db.Table when a different table is configured.
func (Member) TableName() string {
	return DefaultTable
}

// Column names of the member table.
const (
	ColCode             = "FAMID"
	ColName             = "FAMNom"
	ColAddress          = "FAMAdressa"
	ColCity             = "FAMPoblacio"
	ColPostalCode       = "FAMCodPos"
	ColPhone            = "FAMTelefon"
	ColMobile           = "FAMMobil"
	ColEmail            = "FAMEmail"
	ColJoinDate         = "FAMDataAlta"
	ColIBAN             = "FAMIBAN"
	ColBIC              = "FAMBIC"
	ColIsDeactivated    = "bBaixa"
	ColNotes            = "FAMObservacions"
	ColNationalID       = "FAMNIF"
	ColBirthDate        = "FAMDataNaixement"
	ColDues             = "FAMQuota"
	ColDeactivationDate = "FAMDataBaixa"
	ColSex              = "FAMSexe"
	ColPartnerCode      = "FAMSociReferencia"
	ColDirectDebit      = "FAMbPagamentDomiciliat"
	ColReceiptCollected = "FAMbRebutCobrat"
	ColCounterPayment   = "FAMPagamentFinestreta"
	ColEmergencyPhone   = "FAMTelefonEmergencia"
)

// Columns lists every member column in canonical order.
var Columns = []string{
	ColCode,
	ColName,
	ColAddress,
	ColCity,
	ColPostalCode,
	ColPhone,
	ColMobile,
	ColEmail,
	ColJoinDate,
	ColIBAN,
	ColBIC,
	ColIsDeactivated,
	ColNotes,
	ColNationalID,
	ColBirthDate,
	ColDues,
	ColDeactivationDate,
	ColSex,
	ColPartnerCode,
	ColDirectDebit,
	ColReceiptCollected,
	ColCounterPayment,
	ColEmergencyPhone,
}

// Record renders the member as strings in Columns order.
func (m Member) Record() []string {
	return []string{
		m.Code,
		m.Name,
		m.Address,
		m.City,
		m.PostalCode,
		m.Phone,
		m.Mobile,
		m.Email,
		formatDate(m.JoinDate),
		m.IBAN,
		m.BIC,
		strconv.FormatBool(m.IsDeactivated),
		m.Notes,
		m.NationalID,
		formatDate(m.BirthDate),
		strconv.FormatFloat(m.Dues, 'f', -1, 64),
		formatDate(m.DeactivationDate),
		m.Sex,
		m.PartnerCode,
		strconv.FormatBool(m.DirectDebit),
		strconv.FormatBool(m.ReceiptCollected),
		strconv.FormatBool(m.CounterPayment),
		m.EmergencyPhone,
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// SameDay reports whether two optional dates fall on the same UTC calendar day.
// Two nil dates are equal; nil never equals a set date.
func SameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
