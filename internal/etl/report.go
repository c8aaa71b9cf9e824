package etl

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"passengerexport/internal/domain"
)

// PassengerReport is a document-store record as decoded at the BSON
// boundary. Fields are kept as RawValue so their BSON type is explicit:
// presence and shape are read from Type, never guessed from Go values.
type PassengerReport struct {
	Data bson.RawValue `bson:"data"`
}

// reportData is the `data` sub-document of a report.
type reportData struct {
	UID         bson.RawValue `bson:"uid"`
	Name        bson.RawValue `bson:"name"`
	Email       bson.RawValue `bson:"email"`
	PhoneNumber bson.RawValue `bson:"phoneNumber"`
	FacebookID  bson.RawValue `bson:"facebookId"`
	Driver      bson.RawValue `bson:"driver"`
}

type reportName struct {
	FirstName bson.RawValue `bson:"firstName"`
	LastName  bson.RawValue `bson:"lastName"`
}

// DecodeReport decodes a raw BSON document.
func DecodeReport(raw bson.Raw) (PassengerReport, error) {
	var r PassengerReport
	if err := bson.Unmarshal(raw, &r); err != nil {
		return PassengerReport{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}

// Normalize projects a report onto the canonical passenger shape.
//
// A missing or non-document `data` leaves everything unset. IsDriver is true
// only when `data.driver` is an embedded document; a boolean `driver: true`
// does not count. First and last names are read only from a `name`
// sub-document.
//
// A field stored as null is present: it renders empty and is not filled from
// the relational row. Only an absent field is left unset. A null uid is
// treated as absent since it can never match a user.
func Normalize(r PassengerReport) domain.Passenger {
	var p domain.Passenger

	doc, ok := r.Data.DocumentOK()
	if !ok {
		return p
	}
	var d reportData
	if err := bson.Unmarshal(doc, &d); err != nil {
		return p
	}

	if !isNull(d.UID) {
		p.UserID = scalar(d.UID)
	}
	p.Email = scalar(d.Email)
	p.PhoneNumber = scalar(d.PhoneNumber)
	p.FacebookID = scalar(d.FacebookID)
	p.IsDriver = d.Driver.Type == bson.TypeEmbeddedDocument

	if nameDoc, ok := d.Name.DocumentOK(); ok {
		var n reportName
		if err := bson.Unmarshal(nameDoc, &n); err == nil {
			p.FirstName = scalar(n.FirstName)
			p.LastName = scalar(n.LastName)
		}
	}
	return p
}

func isNull(v bson.RawValue) bool {
	return v.Type == bson.TypeNull || v.Type == bson.TypeUndefined
}

// scalar renders a BSON value as text. An absent value is unset; null and
// undefined are present and empty. Strings are copied verbatim.
func scalar(v bson.RawValue) sql.NullString {
	switch v.Type {
	case 0:
		return sql.NullString{}
	case bson.TypeNull, bson.TypeUndefined:
		return domain.Text("")
	case bson.TypeString:
		return domain.Text(v.StringValue())
	case bson.TypeInt32:
		return domain.Text(strconv.FormatInt(int64(v.Int32()), 10))
	case bson.TypeInt64:
		return domain.Text(strconv.FormatInt(v.Int64(), 10))
	case bson.TypeDouble:
		return domain.Text(formatNumber(v.Double()))
	case bson.TypeBoolean:
		return domain.Text(strconv.FormatBool(v.Boolean()))
	default:
		return domain.Text(v.String())
	}
}

// formatNumber prints a double the way a JavaScript Number is stringified:
// plain decimal between 1e-6 and 1e21, exponent form outside that range.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
