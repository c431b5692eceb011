package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// DescriptionPlaceholder is rendered for items without a description.
const DescriptionPlaceholder = "N/A"

// ItemID is the opaque identifier assigned by the items service.
//
// The console never creates one. On the wire it may be a JSON string or a number;
// both decode to the same textual form.
type ItemID string

func (id ItemID) String() string { return string(id) }

func (id *ItemID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("item_id: expected string or number, got %s", string(b))
	}
	*id = ItemID(n.String())
	return nil
}

type Item struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	// Price is nil when the entered value was not a number; it is then sent as JSON null.
	Price *float64 `json:"price"`
	Tax   float64  `json:"tax"`
}

type StoredItem struct {
	ItemID ItemID `json:"item_id"`
	Item   Item   `json:"item"`
}

// FormValues are the raw, unparsed values of the item form.
type FormValues struct {
	// ItemID is the hidden field, only set when the form was populated from a row.
	ItemID      string
	Name        string
	Description string
	Price       string
	Tax         string
}

// Item converts the form into a request payload.
//
// Price stays nil when unparsable. Tax falls back to 0 when missing or unparsable.
func (f FormValues) Item() Item {
	it := Item{
		Name:  f.Name,
		Price: ParseDecimal(f.Price),
	}
	if d := f.Description; d != "" {
		it.Description = &d
	}
	if tax := ParseDecimal(f.Tax); tax != nil {
		it.Tax = *tax
	}
	return it
}

// FormValuesFor fills a form from a stored item (the edit flow).
func FormValuesFor(s StoredItem) FormValues {
	f := FormValues{
		ItemID: s.ItemID.String(),
		Name:   s.Item.Name,
		Tax:    strconv.FormatFloat(s.Item.Tax, 'f', -1, 64),
	}
	if s.Item.Description != nil {
		f.Description = *s.Item.Description
	}
	if s.Item.Price != nil {
		f.Price = strconv.FormatFloat(*s.Item.Price, 'f', -1, 64)
	}
	return f
}

// decimalPrefix is the longest leading run that reads as a decimal number.
var decimalPrefix = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// ParseDecimal reads the leading number of s and ignores whatever follows it,
// so "12abc" is 12 and "0.1x" is 0.1. It returns nil for blank input, input
// that does not start with a number, and NaN or infinite values.
func ParseDecimal(s string) *float64 {
	m := decimalPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

var half = big.NewFloat(0.5)

// FormatMoney renders exactly two decimals from the exact binary value.
// An exact tie rounds away from zero (0.125 renders "0.13"); anything else
// rounds to the nearest cent, so 9.005, stored as 9.00500000000000078,
// renders "9.01" and 2.675, stored as 2.67499999999999982, renders "2.67".
func FormatMoney(v float64) string {
	if v == 0 {
		v = 0 // drops the sign of -0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}

	cents := new(big.Float).SetPrec(256).SetFloat64(math.Abs(v))
	cents.Mul(cents, big.NewFloat(100))
	whole, _ := cents.Int(nil)
	frac := new(big.Float).SetPrec(256).SetInt(whole)
	frac.Sub(cents, frac)
	if frac.Cmp(half) != 0 {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}

	digits := whole.Add(whole, big.NewInt(1)).String()
	for len(digits) < 3 {
		digits = "0" + digits
	}
	out := digits[:len(digits)-2] + "." + digits[len(digits)-2:]
	if v < 0 {
		out = "-" + out
	}
	return out
}

// Row is the rendered form of one stored item.
type Row struct {
	ItemID      string `json:"item_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Tax         string `json:"tax"`
}

func RowFor(s StoredItem) Row {
	r := Row{
		ItemID:      s.ItemID.String(),
		Name:        s.Item.Name,
		Description: DescriptionPlaceholder,
		Price:       DescriptionPlaceholder,
		Tax:         FormatMoney(s.Item.Tax),
	}
	if s.Item.Description != nil && *s.Item.Description != "" {
		r.Description = *s.Item.Description
	}
	if s.Item.Price != nil {
		r.Price = FormatMoney(*s.Item.Price)
	}
	return r
}

// Rows keeps the server order.
func Rows(items []StoredItem) []Row {
	out := make([]Row, 0, len(items))
	for _, it := range items {
		out = append(out, RowFor(it))
	}
	return out
}

// Cells returns the table cells in column order.
func (r Row) Cells() []string {
	return []string{r.ItemID, r.Name, r.Description, r.Price, r.Tax}
}

// FindByName returns the first item whose name equals name exactly (case-sensitive).
func FindByName(items []StoredItem, name string) (StoredItem, bool) {
	for _, it := range items {
		if it.Item.Name == name {
			return it, true
		}
	}
	return StoredItem{}, false
}
