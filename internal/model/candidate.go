package model

import (
	"fmt"
	"time"
)

// =============================================================================
// CANDIDATE
// =============================================================================

// Candidate is one spreadsheet row describing a member who should be active.
type Candidate struct {
	// Row is the 1-based sheet row the candidate was read from.
	Row int

	// Identity is the normalized identity used for matching.
	Identity string

	Code          string
	Name          string
	NationalID    string
	Address       string
	PostalCode    string
	City          string
	Phone         string
	Mobile        string
	Email         string
	PaymentMethod string
	DirectDebit   bool
	IBAN          string
	BIC           string
	JoinDate      *time.Time
}

// NewMember builds the record inserted for a candidate with no persisted
// match. Fields the sheet does not carry take their zero values.
func (c Candidate) NewMember() Member {
	return Member{
		Code:        c.Code,
		Name:        c.Name,
		Address:     c.Address,
		City:        c.City,
		PostalCode:  c.PostalCode,
		Phone:       c.Phone,
		Mobile:      c.Mobile,
		Email:       c.Email,
		JoinDate:    c.JoinDate,
		IBAN:        c.IBAN,
		BIC:         c.BIC,
		NationalID:  c.NationalID,
		DirectDebit: c.DirectDebit,
	}
}

// Update builds the field set written onto an existing member.
func (c Candidate) Update() MemberUpdate {
	return MemberUpdate{
		Name:        c.Name,
		Address:     c.Address,
		City:        c.City,
		PostalCode:  c.PostalCode,
		Phone:       c.Phone,
		Mobile:      c.Mobile,
		Email:       c.Email,
		IBAN:        c.IBAN,
		BIC:         c.BIC,
		NationalID:  c.NationalID,
		DirectDebit: c.DirectDebit,
		JoinDate:    c.JoinDate,
	}
}

// =============================================================================
// BATCH
// =============================================================================

// RowIssue records why a sheet row was left out of the batch.
type RowIssue struct {
	Row     int
	Message string
}

func (i RowIssue) String() string {
	return fmt.Sprintf("row %d: %s", i.Row, i.Message)
}

// Batch is the ordered output of the spreadsheet reader.
type Batch struct {
	Candidates []Candidate

	// SkippedNoIdentity counts rows dropped for lacking an identity.
	SkippedNoIdentity int

	// DuplicateIdentities counts rows superseded by a later row with the
	// same identity.
	DuplicateIdentities int

	Issues []RowIssue
}

// =============================================================================
// MEMBER UPDATE
// =============================================================================

// MemberUpdate is the mutable field set written when a candidate matches a
// persisted member. Applying it always reactivates the member.
type MemberUpdate struct {
	Name        string
	Address     string
	City        string
	PostalCode  string
	Phone       string
	Mobile      string
	Email       string
	IBAN        string
	BIC         string
	NationalID  string
	DirectDebit bool

	// JoinDate is only written when the sheet provides one.
	JoinDate *time.Time
}

// Changes reports whether applying the update would alter m.
func (u MemberUpdate) Changes(m Member) bool {
	if m.IsDeactivated || m.DeactivationDate != nil {
		return true
	}
	if u.JoinDate != nil && !SameDay(u.JoinDate, m.JoinDate) {
		return true
	}
	return u.Name != m.Name ||
		u.Address != m.Address ||
		u.City != m.City ||
		u.PostalCode != m.PostalCode ||
		u.Phone != m.Phone ||
		u.Mobile != m.Mobile ||
		u.Email != m.Email ||
		u.IBAN != m.IBAN ||
		u.BIC != m.BIC ||
		u.NationalID != m.NationalID ||
		u.DirectDebit != m.DirectDebit
}

// Values returns the column/value map used for the UPDATE statement.
func (u MemberUpdate) Values() map[string]interface{} {
	values := map[string]interface{}{
		ColName:             u.Name,
		ColAddress:          u.Address,
		ColCity:             u.City,
		ColPostalCode:       u.PostalCode,
		ColPhone:            u.Phone,
		ColMobile:           u.Mobile,
		ColEmail:            u.Email,
		ColIBAN:             u.IBAN,
		ColBIC:              u.BIC,
		ColNationalID:       u.NationalID,
		ColDirectDebit:      u.DirectDebit,
		ColIsDeactivated:    false,
		ColDeactivationDate: nil,
	}
	if u.JoinDate != nil {
		values[ColJoinDate] = *u.JoinDate
	}
	return values
}
