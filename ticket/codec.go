package ticket

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const ticketFormatVersionCurrent = 1

const maxStringLen = 1<<16 - 1

const (
	flagIssuedAt     = 1 << 0
	flagExpiresAt    = 1 << 1
	flagIsPersistent = 1 << 2
	flagAllowRefresh = 1 << 3
)

// ErrInvalidPayload is returned by Decode for payloads that are not a valid
// encoded ticket. Callers on the retrieval path treat it as a cache miss.
var ErrInvalidPayload = errors.New("invalid ticket payload")

// Encode serializes a ticket to the versioned binary cache payload.
// The claim multiset, scheme, and properties round-trip exactly.
func Encode(t *Ticket) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(ticketFormatVersionCurrent)

	if err := writeString(&buf, t.Scheme); err != nil {
		return nil, errors.New("scheme too long")
	}

	var flags byte
	if t.Properties.IssuedAt != nil {
		flags |= flagIssuedAt
	}
	if t.Properties.ExpiresAt != nil {
		flags |= flagExpiresAt
	}
	if t.Properties.IsPersistent {
		flags |= flagIsPersistent
	}
	if t.Properties.AllowRefresh {
		flags |= flagAllowRefresh
	}
	buf.WriteByte(flags)

	if t.Properties.IssuedAt != nil {
		if err := binary.Write(&buf, binary.BigEndian, t.Properties.IssuedAt.UnixNano()); err != nil {
			return nil, err
		}
	}
	if t.Properties.ExpiresAt != nil {
		if err := binary.Write(&buf, binary.BigEndian, t.Properties.ExpiresAt.UnixNano()); err != nil {
			return nil, err
		}
	}

	if len(t.Claims) > maxStringLen {
		return nil, errors.New("too many claims")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(t.Claims))); err != nil {
		return nil, err
	}
	for _, c := range t.Claims {
		if err := writeString(&buf, c.Type); err != nil {
			return nil, errors.New("claim type too long")
		}
		if err := writeString(&buf, c.Value); err != nil {
			return nil, errors.New("claim value too long")
		}
	}

	return buf.Bytes(), nil
}

// Decode reconstructs a ticket from an encoded payload. Any structural
// defect yields ErrInvalidPayload.
func Decode(data []byte) (*Ticket, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil || version != ticketFormatVersionCurrent {
		return nil, ErrInvalidPayload
	}

	t := &Ticket{}

	if t.Scheme, err = readString(reader); err != nil {
		return nil, ErrInvalidPayload
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, ErrInvalidPayload
	}
	t.Properties.IsPersistent = flags&flagIsPersistent != 0
	t.Properties.AllowRefresh = flags&flagAllowRefresh != 0

	if flags&flagIssuedAt != 0 {
		at, err := readTime(reader)
		if err != nil {
			return nil, ErrInvalidPayload
		}
		t.Properties.IssuedAt = &at
	}
	if flags&flagExpiresAt != 0 {
		at, err := readTime(reader)
		if err != nil {
			return nil, ErrInvalidPayload
		}
		t.Properties.ExpiresAt = &at
	}

	var count uint16
	if err := binary.Read(reader, binary.BigEndian, &count); err != nil {
		return nil, ErrInvalidPayload
	}
	// Every claim occupies at least four length bytes.
	if int(count)*4 > reader.Len() {
		return nil, ErrInvalidPayload
	}

	if count > 0 {
		t.Claims = make([]Claim, 0, count)
	}
	for i := 0; i < int(count); i++ {
		var c Claim
		if c.Type, err = readString(reader); err != nil {
			return nil, ErrInvalidPayload
		}
		if c.Value, err = readString(reader); err != nil {
			return nil, ErrInvalidPayload
		}
		t.Claims = append(t.Claims, c)
	}

	if reader.Len() != 0 {
		return nil, ErrInvalidPayload
	}

	return t, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > maxStringLen {
		return errors.New("string too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	var length uint16
	if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
		return "", err
	}
	if int(length) > reader.Len() {
		return "", ErrInvalidPayload
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

func readTime(reader *bytes.Reader) (time.Time, error) {
	var nanos int64
	if err := binary.Read(reader, binary.BigEndian, &nanos); err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, nanos).UTC(), nil
}
