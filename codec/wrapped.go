package codec

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Date is a wrapped (year:u32, month:u8, day:u8) triple — a bijection
// over a fixed-width record.
type dateCodec struct{}

// Date is the fixed-width (year, month, day) codec.
var Date Codec[time.Time] = dateCodec{}

func (dateCodec) Width() int { return 6 }
func (dateCodec) SizeOf(time.Time) int { return 6 }

func (dateCodec) ReadAt(v *View, off int) (time.Time, error) {
	year, err := v.GetU32BE(off)
	if err != nil {
		return time.Time{}, err
	}
	month, err := v.GetU8(off + 4)
	if err != nil {
		return time.Time{}, err
	}
	day, err := v.GetU8(off + 5)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(int(year), time.Month(month), int(day), 0, 0, 0, 0, time.UTC), nil
}

func (dateCodec) WriteAt(val time.Time, v *View, off int) error {
	if err := v.SetU32BE(off, uint32(val.Year())); err != nil {
		return err
	}
	if err := v.SetU8(off+4, uint8(val.Month())); err != nil {
		return err
	}
	return v.SetU8(off+5, uint8(val.Day()))
}

// Timestamp is a wrapped i32 of seconds since the Unix epoch.
type timestampCodec struct{}

// Timestamp is the fixed-width seconds-since-epoch codec.
var Timestamp Codec[time.Time] = timestampCodec{}

func (timestampCodec) Width() int { return 4 }
func (timestampCodec) SizeOf(time.Time) int { return 4 }

func (timestampCodec) ReadAt(v *View, off int) (time.Time, error) {
	secs, err := v.GetI32BE(off)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(secs), 0).UTC(), nil
}

func (timestampCodec) WriteAt(val time.Time, v *View, off int) error {
	return v.SetI32BE(off, int32(val.Unix()))
}

// JSON is a wrapped type: any Go value marshaled to a UTF-8 JSON string,
// stored inside a variable-width envelope (the JSON form of this column
// type is the string itself; raw-bytes columns render as base64 instead).
type jsonCodec struct{}

// JSONValue is the variable-width JSON-as-UTF-8-string codec.
var JSONValue Codec[any] = jsonCodec{}

func (jsonCodec) SizeOf(val any) int {
	b, _ := json.Marshal(val)
	return 4 + len(b)
}

func (jsonCodec) ReadAt(v *View, off int) (any, error) {
	n, err := v.GetU32BE(off)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	b, err := v.GetBytes(off+4, int(n))
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (jsonCodec) WriteAt(val any, v *View, off int) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	if err := v.SetU32BE(off, uint32(len(b))); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return v.SetBytes(off+4, b)
}

// Base64OfBytes renders raw bytes as their JSON base64 form.
func Base64OfBytes(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// BytesOfBase64 parses the JSON base64 form back into raw bytes.
func BytesOfBase64(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }
