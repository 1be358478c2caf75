package source

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
)

// Source dataset keys. These names exist only in this file.
const (
	keySourceID = "id kategori"
	keyMain     = "kategori"
	keySub1     = "kategori-1"
	keySub2     = "kategori-2"
	keySub3     = "kategori-3"
	keySub4     = "kategori-4"
	keyImage1   = "gbr-1"
	keyImage2   = "gbr-2"
	keyImage3   = "gbr-3"
	keyImage4   = "4"
)

// MapRawRecord translates one flat source object into a typed record.
// Values are kept verbatim: sentinels and empty strings survive so the
// normalizer can decide what they mean. Numbers are rendered as their
// JSON text; null, arrays and objects count as absent.
func MapRawRecord(raw map[string]json.RawMessage) domain.SourceCategoryRecord {
	rec := domain.SourceCategoryRecord{
		SourceID: parseSourceID(raw[keySourceID]),
		Sub1:     optional(raw[keySub1]),
		Sub2:     optional(raw[keySub2]),
		Sub3:     optional(raw[keySub3]),
		Sub4:     optional(raw[keySub4]),
		Image1:   optional(raw[keyImage1]),
		Image2:   optional(raw[keyImage2]),
		Image3:   optional(raw[keyImage3]),
		Image4:   optional(raw[keyImage4]),
	}
	if main, ok := scalar(raw[keyMain]); ok {
		rec.MainCategory = main
	}
	return rec
}

// parseSourceID accepts integers, integral floats and numeric strings.
// Anything else, including non-positive ids, maps to 0.
func parseSourceID(raw json.RawMessage) int64 {
	s, ok := scalar(raw)
	if !ok {
		return 0
	}
	s = strings.TrimSpace(s)

	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		if id <= 0 {
			return 0
		}
		return id
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f != math.Trunc(f) || f > math.MaxInt64 {
		return 0
	}
	return int64(f)
}

func optional(raw json.RawMessage) *string {
	s, ok := scalar(raw)
	if !ok {
		return nil
	}
	return &s
}

func scalar(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return "", false
	}

	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
