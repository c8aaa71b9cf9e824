package domain

import "database/sql"

// Merge fills every field the document record left unset with the
// relational value. Document values always win; IsDriver is never taken
// from rel. A nil rel yields doc unchanged.
func Merge(doc Passenger, rel *Passenger) Passenger {
	if rel == nil {
		return doc
	}
	return Passenger{
		UserID:      coalesce(doc.UserID, rel.UserID),
		FacebookID:  coalesce(doc.FacebookID, rel.FacebookID),
		FirstName:   coalesce(doc.FirstName, rel.FirstName),
		LastName:    coalesce(doc.LastName, rel.LastName),
		Email:       coalesce(doc.Email, rel.Email),
		PhoneNumber: coalesce(doc.PhoneNumber, rel.PhoneNumber),
		PostalCode:  coalesce(doc.PostalCode, rel.PostalCode),
		Country:     coalesce(doc.Country, rel.Country),
		IsDriver:    doc.IsDriver,
	}
}

func coalesce(a, b sql.NullString) sql.NullString {
	if a.Valid {
		return a
	}
	return b
}
