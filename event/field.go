package event

import (
	"fmt"
	"math/bits"
	"strings"
)

// Field is a bitmask selecting event data fields. Combine fields with bitwise-or.
type Field uint32

const (
	FieldSubdevice          Field = 0x0001
	FieldChannel            Field = 0x0002
	FieldStartCounter       Field = 0x0004
	FieldTimeTag            Field = 0x0008
	FieldDif1               Field = 0x0010
	FieldDif2               Field = 0x0020
	FieldTime               Field = 0x0040
	FieldMasterResetCounter Field = 0x0080
	FieldADC                Field = 0x0100
	FieldSignal1Bit         Field = 0x0200

	// FieldX is the x detector coordinate, an alias of FieldDif1.
	FieldX = FieldDif1
	// FieldY is the y detector coordinate, an alias of FieldDif2.
	FieldY = FieldDif2

	// AllFields selects every known field.
	AllFields = FieldSubdevice | FieldChannel | FieldStartCounter | FieldTimeTag |
		FieldDif1 | FieldDif2 | FieldTime | FieldMasterResetCounter | FieldADC | FieldSignal1Bit

	// TDCFields are the fields a TDC event stream can provide.
	TDCFields = FieldSubdevice | FieldChannel | FieldStartCounter | FieldTimeTag | FieldTime
)

var fieldNames = []struct {
	field Field
	name  string
}{
	{FieldSubdevice, "subdevice"},
	{FieldChannel, "channel"},
	{FieldStartCounter, "start_counter"},
	{FieldTimeTag, "time_tag"},
	{FieldDif1, "dif1"},
	{FieldDif2, "dif2"},
	{FieldTime, "time"},
	{FieldMasterResetCounter, "master_rst_counter"},
	{FieldADC, "adc"},
	{FieldSignal1Bit, "signal1bit"},
}

// Has reports whether every bit of other is set in f.
func (f Field) Has(other Field) bool {
	return other != 0 && f&other == other
}

// Count returns the number of selected fields.
func (f Field) Count() int {
	return bits.OnesCount32(uint32(f & AllFields))
}

// Fields returns the selected single-bit fields in ascending bit order.
func (f Field) Fields() []Field {
	result := make([]Field, 0, f.Count())
	for _, fn := range fieldNames {
		if f&fn.field != 0 {
			result = append(result, fn.field)
		}
	}

	return result
}

// Name returns the dataset name of a single-bit field, or an empty string.
func (f Field) Name() string {
	for _, fn := range fieldNames {
		if fn.field == f {
			return fn.name
		}
	}

	return ""
}

// String returns the selected field names joined by "|".
func (f Field) String() string {
	if f == 0 {
		return "none"
	}

	names := make([]string, 0, f.Count())
	for _, field := range f.Fields() {
		names = append(names, field.Name())
	}
	if unknown := f &^ AllFields; unknown != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(unknown)))
	}

	return strings.Join(names, "|")
}

// ParseFields parses a comma or "|" separated list of field names. "x", "y" and
// "master_reset_counter" are accepted as aliases.
func ParseFields(s string) (Field, error) {
	var result Field
	for _, token := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' }) {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}

		switch token {
		case "x":
			result |= FieldX
			continue
		case "y":
			result |= FieldY
			continue
		case "master_reset_counter":
			result |= FieldMasterResetCounter
			continue
		}

		found := false
		for _, fn := range fieldNames {
			if fn.name == token {
				result |= fn.field
				found = true

				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown event field %q", token)
		}
	}

	return result, nil
}
