package wire

import (
	"encoding/json"
	"io"
	"mime"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// Format selects the message encoding.
type Format string

// Supported formats.
const (
	CBOR Format = "cbor"
	JSON Format = "json"
)

// Content types of the formats.
const (
	ContentTypeCBOR = "application/cbor"
	ContentTypeJSON = "application/json"
)

// ParseFormat maps "cbor" or "json" to a Format.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case CBOR, JSON:
		return Format(name), nil
	}
	return "", errors.Errorf("unknown format %q, want cbor or json", name)
}

// FormatForContentType returns CBOR for application/cbor and JSON for
// anything else.
func FormatForContentType(contentType string) Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && mediaType == ContentTypeCBOR {
		return CBOR
	}
	return JSON
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == CBOR {
		return ContentTypeCBOR
	}
	return ContentTypeJSON
}

// Encode writes v to w.
func (f Format) Encode(w io.Writer, v any) error {
	if f == CBOR {
		return cbor.NewEncoder(w).Encode(v)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Decode reads one message from r into v. Syntax errors and invalid
// tensors are reported as ErrMalformed.
func (f Format) Decode(r io.Reader, v any) error {
	var err error
	if f == CBOR {
		err = cbor.NewDecoder(r).Decode(v)
	} else {
		err = json.NewDecoder(r).Decode(v)
	}
	if err != nil {
		if errors.Is(err, ErrMalformed) {
			return err
		}
		return errors.Wrapf(ErrMalformed, "%s: %v", f, err)
	}
	return nil
}

// DecodeRequest reads a Request from r and checks that it names an
// operator.
func DecodeRequest(f Format, r io.Reader) (*Request, error) {
	var req Request
	if err := f.Decode(r, &req); err != nil {
		return nil, err
	}
	if req.Op == "" {
		return nil, errors.Wrap(ErrMalformed, "request without op")
	}
	return &req, nil
}

// UnmarshalCBOR decodes a tensor and its data as the slice type its dtype
// travels as.
func (t *Tensor) UnmarshalCBOR(b []byte) error {
	var msg struct {
		DType string          `cbor:"dtype"`
		Shape []int           `cbor:"shape"`
		Data  cbor.RawMessage `cbor:"data"`
	}
	if err := cbor.Unmarshal(b, &msg); err != nil {
		return errors.Wrapf(ErrMalformed, "tensor: %v", err)
	}
	data, err := decodeData(msg.DType, msg.Shape, func(v any) error {
		if len(msg.Data) == 0 {
			return nil
		}
		return cbor.Unmarshal(msg.Data, v)
	})
	if err != nil {
		return err
	}
	*t = Tensor{DType: msg.DType, Shape: msg.Shape, Data: data}
	return nil
}

// UnmarshalJSON is the JSON counterpart of UnmarshalCBOR.
func (t *Tensor) UnmarshalJSON(b []byte) error {
	var msg struct {
		DType string          `json:"dtype"`
		Shape []int           `json:"shape"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &msg); err != nil {
		return errors.Wrapf(ErrMalformed, "tensor: %v", err)
	}
	data, err := decodeData(msg.DType, msg.Shape, func(v any) error {
		if len(msg.Data) == 0 {
			return nil
		}
		return json.Unmarshal(msg.Data, v)
	})
	if err != nil {
		return err
	}
	*t = Tensor{DType: msg.DType, Shape: msg.Shape, Data: data}
	return nil
}
