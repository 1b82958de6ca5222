package discovery

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/broadcast-assistant/ba-go/pkg/wire"
)

// URIPrefix starts every Broadcast Audio URI.
const URIPrefix = "BLUETOOTH:"

// Broadcast Audio URI field tags.
const (
	TagUUID          = "UUID"
	TagBroadcastName = "BN"
	TagBroadcastCode = "BC"
	TagAddressType   = "AT"
	TagAddress       = "AD"
	TagAdvertisingID = "AS"
	TagBroadcastID   = "BI"
	TagPAInterval    = "PI"
	TagSubgroupCount = "NS"
	TagBISSync       = "BS"
	TagStandardQual  = "SQ"
	TagHighQual      = "HQ"
	TagMetadata      = "SM"
)

// Token is one field of a Broadcast Audio URI.
//
// Value depends on Type:
//
//	AD        wire.Address (public; apply the AT token for the real type)
//	AT, AS    uint8
//	BI        uint32
//	PI, UUID  uint16
//	BN        string
//	BC, SM    []byte
//	NS, SQ,
//	HQ        uint8
//	BS        uint32
//	others    string, unparsed
type Token struct {
	Type  string
	Value any
}

// ParseBroadcastAudioURI splits a Broadcast Audio URI into tokens, in the
// order they appear. Repeated tags are kept.
func ParseBroadcastAudioURI(uri string) ([]Token, error) {
	if !strings.HasPrefix(uri, URIPrefix) {
		return nil, ErrInvalidPrefix
	}

	body := strings.TrimPrefix(uri, URIPrefix)
	body = strings.TrimSuffix(body, ";;")

	var tokens []Token
	for _, field := range strings.Split(body, ";") {
		if field == "" {
			continue
		}
		tag, raw, ok := strings.Cut(field, ":")
		if !ok || tag == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidField, field)
		}

		value, err := parseTokenValue(tag, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tag, err)
		}
		tokens = append(tokens, Token{Type: tag, Value: value})
	}

	return tokens, nil
}

// FindToken returns the first token with the given tag.
func FindToken(tokens []Token, tag string) (Token, bool) {
	for _, t := range tokens {
		if t.Type == tag {
			return t, true
		}
	}
	return Token{}, false
}

func parseTokenValue(tag, raw string) (any, error) {
	switch tag {
	case TagAddress:
		addr, err := wire.ParseAddress(raw, wire.AddressTypePublic)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return addr, nil

	case TagAddressType, TagSubgroupCount, TagStandardQual, TagHighQual:
		return parseUint(raw, 10, 8, func(v uint64) any { return uint8(v) })

	case TagAdvertisingID:
		return parseUint(raw, 16, 8, func(v uint64) any { return uint8(v) })

	case TagBroadcastID:
		return parseUint(raw, 16, 24, func(v uint64) any { return uint32(v) })

	case TagBISSync:
		return parseUint(raw, 16, 32, func(v uint64) any { return uint32(v) })

	case TagPAInterval, TagUUID:
		return parseUint(raw, 16, 16, func(v uint64) any { return uint16(v) })

	case TagBroadcastName:
		b, err := decodeBase64(raw)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, fmt.Errorf("%w: name is not UTF-8", ErrInvalidValue)
		}
		return string(b), nil

	case TagBroadcastCode:
		b, err := decodeBase64(raw)
		if err != nil {
			return nil, err
		}
		if len(b) > wire.BroadcastCodeSize {
			return nil, fmt.Errorf("%w: broadcast code longer than %d bytes", ErrInvalidValue, wire.BroadcastCodeSize)
		}
		return b, nil

	case TagMetadata:
		b, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return b, nil

	default:
		return raw, nil
	}
}

func parseUint(raw string, base, bits int, conv func(uint64) any) (any, error) {
	v, err := strconv.ParseUint(raw, base, bits)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidValue, raw)
	}
	return conv(v), nil
}

// decodeBase64 accepts padded and unpadded standard encoding.
func decodeBase64(raw string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return b, nil
	}
	b, err := base64.RawStdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64", ErrInvalidValue)
	}
	return b, nil
}
