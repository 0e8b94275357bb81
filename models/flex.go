package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

var jsonNull = []byte("null")

// FlexInt accepts a JSON number, a numeric string, or null.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*f = 0
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding int from %s: %w", data, err)
		}
		n = json.Number(strings.TrimSpace(s))
	}
	if n == "" {
		*f = 0
		return nil
	}

	v, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return fmt.Errorf("decoding int from %s: %w", data, err)
	}
	*f = FlexInt(int(v))
	return nil
}

// FlexBool accepts true/false, 0/1, "0"/"1"/"true"/"false", or null.
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*f = false
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexBool(b)
		return nil
	}

	var i FlexInt
	if err := i.UnmarshalJSON(data); err == nil {
		*f = i != 0
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding bool from %s: %w", data, err)
	}
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("decoding bool from %s: %w", data, err)
	}
	*f = FlexBool(v)
	return nil
}

// FlexString accepts a JSON string, a number, or null.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding string from %s: %w", data, err)
	}
	*f = FlexString(n.String())
	return nil
}
