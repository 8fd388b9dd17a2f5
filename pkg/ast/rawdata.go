package ast

// RawData holds the flattened initializer for a typed constant: parallel
// arrays of decoded values and the simple-type code each one was declared
// with. Multi-dimensional array initializers are flattened row-major.
type RawData struct {
	Data            []any // int64, float64, string, or bool per element
	SimpleTypeCodes []SimpleTypeCode
}

// Append records one initializer element in declaration order.
func (r *RawData) Append(value any, code SimpleTypeCode) {
	r.Data = append(r.Data, value)
	r.SimpleTypeCodes = append(r.SimpleTypeCodes, code)
}

// Len reports how many scalar elements the raw data holds.
func (r *RawData) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Data)
}
