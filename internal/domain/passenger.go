package domain

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Columns is the fixed header of the export, in output order.
var Columns = []string{
	"Facebook ID", "First Name", "Last Name",
	"Email", "Phone Number", "Postal Code", "Country", "Driver",
}

// Passenger is the canonical shape both sources are normalized into before
// merging. An unset field has Valid == false.
type Passenger struct {
	UserID      sql.NullString `json:"uid"`
	FacebookID  sql.NullString `json:"facebookId"`
	FirstName   sql.NullString `json:"firstName"`
	LastName    sql.NullString `json:"lastName"`
	Email       sql.NullString `json:"email"`
	PhoneNumber sql.NullString `json:"phoneNumber"`
	PostalCode  sql.NullString `json:"postalCode"`
	Country     sql.NullString `json:"country"`
	IsDriver    bool           `json:"driver"` // document source only
}

// Row renders the passenger in Columns order. Unset fields become "".
func (p Passenger) Row() []string {
	return []string{
		p.FacebookID.String,
		p.FirstName.String,
		p.LastName.String,
		p.Email.String,
		p.PhoneNumber.String,
		p.PostalCode.String,
		p.Country.String,
		strconv.FormatBool(p.IsDriver),
	}
}

// Text returns a set field holding s.
func Text(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// Relational column names kept from a Users row. Anything else is dropped.
const (
	ColUserID      = "uid"
	ColFirstName   = "firstName"
	ColLastName    = "lastName"
	ColEmail       = "email"
	ColPostalCode  = "postalCode"
	ColPhoneNumber = "phoneNumber"
	ColCountry     = "country"
)

// PassengerFromRow reduces a relational row (column → value) to the
// canonical subset. SQL NULL and missing columns stay unset.
func PassengerFromRow(row map[string]any) Passenger {
	return Passenger{
		UserID:      columnText(row, ColUserID),
		FirstName:   columnText(row, ColFirstName),
		LastName:    columnText(row, ColLastName),
		Email:       columnText(row, ColEmail),
		PostalCode:  columnText(row, ColPostalCode),
		PhoneNumber: columnText(row, ColPhoneNumber),
		Country:     columnText(row, ColCountry),
	}
}

func columnText(row map[string]any, col string) sql.NullString {
	v, ok := row[col]
	if !ok || v == nil {
		return sql.NullString{}
	}
	switch val := v.(type) {
	case string:
		return Text(val)
	case []byte:
		return Text(string(val))
	case time.Time:
		return Text(val.Format(time.RFC3339))
	default:
		return Text(fmt.Sprint(val))
	}
}
